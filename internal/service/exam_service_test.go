package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/internal/repository"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type mockExamStore struct {
	exams   map[string]*models.Exam
	listErr error
	getErr  error
}

func newMockExamStore() *mockExamStore {
	return &mockExamStore{exams: make(map[string]*models.Exam)}
}

func (m *mockExamStore) List(ctx context.Context) ([]models.Exam, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Exam, 0, len(m.exams))
	for _, exam := range m.exams {
		out = append(out, *exam)
	}
	return out, nil
}

func (m *mockExamStore) Get(ctx context.Context, id string) (*models.Exam, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	exam, ok := m.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *exam
	return &copied, nil
}

func (m *mockExamStore) Upsert(ctx context.Context, exam *models.Exam) error {
	copied := *exam
	m.exams[exam.ID] = &copied
	return nil
}

func (m *mockExamStore) UpdateMetadata(ctx context.Context, id string, update repository.ExamMetadataUpdate) error {
	exam, ok := m.exams[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Year != nil {
		exam.Year = *update.Year
	}
	if update.Subject != nil {
		exam.Subject = *update.Subject
	}
	if update.Status != nil {
		exam.Status = *update.Status
	}
	return nil
}

func (m *mockExamStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.exams[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.exams, id)
	return nil
}

type mockPreferenceStore struct {
	archived map[string]bool
	deleted  map[string]bool
	err      error
}

func newMockPreferenceStore() *mockPreferenceStore {
	return &mockPreferenceStore{archived: make(map[string]bool), deleted: make(map[string]bool)}
}

func (m *mockPreferenceStore) ArchivedExamIDs(ctx context.Context) (map[string]bool, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.archived, nil
}

func (m *mockPreferenceStore) ToggleArchived(ctx context.Context, examID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.archived[examID] {
		delete(m.archived, examID)
		return false, nil
	}
	m.archived[examID] = true
	return true, nil
}

func (m *mockPreferenceStore) DeletedBuiltinIDs(ctx context.Context) (map[string]bool, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.deleted, nil
}

func (m *mockPreferenceStore) MarkBuiltinDeleted(ctx context.Context, examID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted[examID] = true
	return nil
}

func newExamService(exams *mockExamStore, prefs *mockPreferenceStore) *ExamService {
	return NewExamService(exams, prefs, validator.New(), zap.NewNop())
}

func TestExamServiceListMergesStoredOverBuiltin(t *testing.T) {
	store := newMockExamStore()
	store.exams["math-2024"] = &models.Exam{ID: "math-2024", Year: 2024, Subject: "Mathematics", Status: models.ExamStatusAvailable, TotalQuestions: 10}
	store.exams["sci-2025"] = &models.Exam{ID: "sci-2025", Year: 2025, Subject: "Science", Status: models.ExamStatusAvailable, TotalQuestions: 20, Questions: models.QuestionList{{ID: "q1"}}}
	svc := newExamService(store, newMockPreferenceStore())

	exams, err := svc.ListExams(context.Background())
	require.NoError(t, err)

	// 6 built-ins, one shadowed by the stored copy, plus one stored-only.
	require.Len(t, exams, 7)
	assert.Equal(t, "sci-2025", exams[0].ID)
	assert.Equal(t, "math-2024", exams[1].ID)
	assert.Equal(t, 10, exams[1].TotalQuestions)

	for _, exam := range exams {
		assert.Nil(t, exam.Questions, "listing must not carry question bodies")
	}
}

func TestExamServiceListAppliesArchiveOverlay(t *testing.T) {
	prefs := newMockPreferenceStore()
	prefs.archived["math-2023"] = true
	svc := newExamService(newMockExamStore(), prefs)

	exams, err := svc.ListExams(context.Background())
	require.NoError(t, err)

	for _, exam := range exams {
		if exam.ID == "math-2023" {
			assert.Equal(t, models.ExamStatusArchived, exam.Status)
		} else {
			assert.Equal(t, models.ExamStatusAvailable, exam.Status)
		}
	}
}

func TestExamServiceListHidesDeletedBuiltins(t *testing.T) {
	prefs := newMockPreferenceStore()
	prefs.deleted["math-2019"] = true
	svc := newExamService(newMockExamStore(), prefs)

	exams, err := svc.ListExams(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 5)
	for _, exam := range exams {
		assert.NotEqual(t, "math-2019", exam.ID)
	}
}

func TestExamServiceListDegradesToBuiltinsWhenStoreDown(t *testing.T) {
	store := newMockExamStore()
	store.listErr = errors.New("connection refused")
	svc := newExamService(store, newMockPreferenceStore())

	exams, err := svc.ListExams(context.Background())
	require.NoError(t, err)
	assert.Len(t, exams, 6)
}

func TestExamServiceGetExam(t *testing.T) {
	svc := newExamService(newMockExamStore(), newMockPreferenceStore())

	exam, err := svc.GetExam(context.Background(), "math-2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, exam.Year)
	assert.NotEmpty(t, exam.Questions)

	_, err = svc.GetExam(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExamServiceGetExamDeletedBuiltin(t *testing.T) {
	prefs := newMockPreferenceStore()
	prefs.deleted["math-2024"] = true
	svc := newExamService(newMockExamStore(), prefs)

	_, err := svc.GetExam(context.Background(), "math-2024")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExamServiceGetQuestionsEmptyIsNotError(t *testing.T) {
	svc := newExamService(newMockExamStore(), newMockPreferenceStore())

	questions, err := svc.GetExamQuestions(context.Background(), "math-2022")
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestExamServiceDeleteStoredAndBuiltin(t *testing.T) {
	store := newMockExamStore()
	store.exams["custom-1"] = &models.Exam{ID: "custom-1", Year: 2024, Subject: "Custom Exam"}
	prefs := newMockPreferenceStore()
	svc := newExamService(store, prefs)

	require.NoError(t, svc.DeleteExam(context.Background(), "custom-1"))
	assert.NotContains(t, store.exams, "custom-1")

	require.NoError(t, svc.DeleteExam(context.Background(), "math-2020"))
	assert.True(t, prefs.deleted["math-2020"])

	err := svc.DeleteExam(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExamServiceToggleArchive(t *testing.T) {
	prefs := newMockPreferenceStore()
	svc := newExamService(newMockExamStore(), prefs)

	archived, err := svc.ToggleArchive(context.Background(), "math-2024")
	require.NoError(t, err)
	assert.True(t, archived)

	archived, err = svc.ToggleArchive(context.Background(), "math-2024")
	require.NoError(t, err)
	assert.False(t, archived)

	_, err = svc.ToggleArchive(context.Background(), "ghost")
	require.Error(t, err)
}

func TestExamServiceUpdateMetadataMaterialisesBuiltin(t *testing.T) {
	store := newMockExamStore()
	svc := newExamService(store, newMockPreferenceStore())

	subject := "Advanced Mathematics"
	exam, err := svc.UpdateMetadata(context.Background(), "math-2023", ExamMetadataRequest{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Mathematics", exam.Subject)

	stored, ok := store.exams["math-2023"]
	require.True(t, ok, "edited built-in must be materialised into the store")
	assert.Equal(t, "Advanced Mathematics", stored.Subject)
	assert.NotEmpty(t, stored.Questions)
}

func TestExamServiceImportQuestions(t *testing.T) {
	store := newMockExamStore()
	svc := newExamService(store, newMockPreferenceStore())

	payload := []byte("ExamID,Question,OptionA,OptionB,CorrectAnswer\n" +
		"phys-2022,Q1,1,2,a\n" +
		"phys-2022,Q2,3,4,b\n" +
		",Q3,5,6,a\n" +
		"bad-row,,x,y,a\n")

	summary, err := svc.ImportQuestions(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ExamsImported)
	assert.Equal(t, 3, summary.QuestionsImported)
	assert.Equal(t, 1, summary.RowsSkipped)
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, 5, summary.Issues[0].Row)

	phys := store.exams["phys-2022"]
	require.NotNil(t, phys)
	assert.Equal(t, 2022, phys.Year)
	assert.Equal(t, ImportedSubject, phys.Subject)
	assert.Equal(t, 2, phys.TotalQuestions)

	custom := store.exams["custom-exam"]
	require.NotNil(t, custom)
	assert.Equal(t, 1, custom.TotalQuestions)
}

func TestExamServiceImportQuestionsMalformed(t *testing.T) {
	svc := newExamService(newMockExamStore(), newMockPreferenceStore())

	_, err := svc.ImportQuestions(context.Background(), []byte("ab"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFormat.Code, appErrors.FromError(err).Code)
}

func TestInferYear(t *testing.T) {
	assert.Equal(t, 2022, inferYear("phys-2022", 2026))
	assert.Equal(t, 1999, inferYear("history1999final", 2026))
	assert.Equal(t, 2026, inferYear("custom-exam", 2026))
	assert.Equal(t, 2026, inferYear("exam-42", 2026))
}
