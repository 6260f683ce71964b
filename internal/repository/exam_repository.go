package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/examportal/exam-portal-api/internal/models"
)

// ExamRepository manages persistence for authored exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// List returns every stored exam, newest year first.
func (r *ExamRepository) List(ctx context.Context) ([]models.Exam, error) {
	const query = `SELECT id, year, subject, status, total_questions, questions, created_at, updated_at
        FROM exams ORDER BY year DESC, id ASC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Get fetches one exam by id. Returns sql.ErrNoRows when absent.
func (r *ExamRepository) Get(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, year, subject, status, total_questions, questions, created_at, updated_at
        FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Upsert inserts the exam or replaces the stored row with the same id.
func (r *ExamRepository) Upsert(ctx context.Context, exam *models.Exam) error {
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, year, subject, status, total_questions, questions, created_at, updated_at)
        VALUES (:id, :year, :subject, :status, :total_questions, :questions, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
            year = EXCLUDED.year,
            subject = EXCLUDED.subject,
            status = EXCLUDED.status,
            total_questions = EXCLUDED.total_questions,
            questions = EXCLUDED.questions,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("upsert exam: %w", err)
	}
	return nil
}

// ExamMetadataUpdate carries the editable exam fields. Nil fields are left
// untouched.
type ExamMetadataUpdate struct {
	Year    *int
	Subject *string
	Status  *models.ExamStatus
}

// UpdateMetadata applies a partial metadata update. Returns sql.ErrNoRows
// when the exam does not exist.
func (r *ExamRepository) UpdateMetadata(ctx context.Context, id string, update ExamMetadataUpdate) error {
	const query = `UPDATE exams SET
            year = COALESCE($2, year),
            subject = COALESCE($3, subject),
            status = COALESCE($4, status),
            updated_at = $5
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, update.Year, update.Subject, update.Status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update exam metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update exam metadata: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a stored exam. Returns sql.ErrNoRows when absent.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
