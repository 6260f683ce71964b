package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examportal/exam-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestExamRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	rows := sqlmock.NewRows([]string{"id", "year", "subject", "status", "total_questions", "questions", "created_at", "updated_at"}).
		AddRow("math-2024", 2024, "Mathematics", "available", 2, []byte(`[]`), time.Now(), time.Now()).
		AddRow("math-2023", 2023, "Mathematics", "archived", 0, []byte(`[]`), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, year, subject, status, total_questions, questions, created_at, updated_at").
		WillReturnRows(rows)

	exams, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "math-2024", exams[0].ID)
	assert.Equal(t, models.ExamStatusArchived, exams[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryGetNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectQuery("SELECT id, year, subject").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("INSERT INTO exams").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	exam := &models.Exam{ID: "math-2024", Year: 2024, Subject: "Mathematics", Status: models.ExamStatusAvailable}
	err := repo.Upsert(context.Background(), exam)
	require.NoError(t, err)
	assert.False(t, exam.CreatedAt.IsZero())
	assert.False(t, exam.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryUpdateMetadataNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("UPDATE exams SET").
		WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	year := 2025
	err := repo.UpdateMetadata(context.Background(), "missing", ExamMetadataUpdate{Year: &year})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("DELETE FROM exams").
		WithArgs("math-2024").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "math-2024"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
