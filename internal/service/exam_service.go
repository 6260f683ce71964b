package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/internal/repository"
	"github.com/examportal/exam-portal-api/internal/tabular"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

// ImportedSubject tags question uploads that carry no subject of their own.
const ImportedSubject = "Custom Exam"

type examStore interface {
	List(ctx context.Context) ([]models.Exam, error)
	Get(ctx context.Context, id string) (*models.Exam, error)
	Upsert(ctx context.Context, exam *models.Exam) error
	UpdateMetadata(ctx context.Context, id string, update repository.ExamMetadataUpdate) error
	Delete(ctx context.Context, id string) error
}

type preferenceStore interface {
	ArchivedExamIDs(ctx context.Context) (map[string]bool, error)
	ToggleArchived(ctx context.Context, examID string) (bool, error)
	DeletedBuiltinIDs(ctx context.Context) (map[string]bool, error)
	MarkBuiltinDeleted(ctx context.Context, examID string) error
}

// ImportSummary reports the outcome of one question upload.
type ImportSummary struct {
	ExamsImported     int               `json:"exams_imported"`
	QuestionsImported int               `json:"questions_imported"`
	RowsSkipped       int               `json:"rows_skipped"`
	Issues            []tabular.RowIssue `json:"issues,omitempty"`
}

// ExamService merges the built-in exam catalog with stored exams and the
// archive/deletion overlay flags.
type ExamService struct {
	exams       examStore
	preferences preferenceStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(exams examStore, preferences preferenceStore, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{exams: exams, preferences: preferences, validator: validate, logger: logger}
}

// ListExams returns the merged catalog without question bodies, newest year
// first. When the exam store is unreachable the built-in catalog is served
// alone so students can keep taking the compiled-in papers.
func (s *ExamService) ListExams(ctx context.Context) ([]models.Exam, error) {
	merged := make([]models.Exam, 0, 8)
	seen := make(map[string]bool)

	deleted := s.deletedBuiltins(ctx)
	archived := s.archivedSet(ctx)

	stored, err := s.exams.List(ctx)
	if err != nil {
		s.logger.Warn("exam store unreachable, serving built-in catalog only", zap.Error(err))
	} else {
		for _, exam := range stored {
			seen[exam.ID] = true
			merged = append(merged, exam)
		}
	}

	for _, exam := range builtinExams() {
		if seen[exam.ID] || deleted[exam.ID] {
			continue
		}
		merged = append(merged, exam)
	}

	for i := range merged {
		if archived[merged[i].ID] {
			merged[i].Status = models.ExamStatusArchived
		}
		merged[i].Questions = nil
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Year != merged[j].Year {
			return merged[i].Year > merged[j].Year
		}
		return merged[i].ID < merged[j].ID
	})

	return merged, nil
}

// GetExam returns one exam with its full question set. Stored exams shadow
// built-in exams with the same id.
func (s *ExamService) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.Get(ctx, id)
	switch {
	case err == nil:
		// stored exam wins
	case errors.Is(err, sql.ErrNoRows):
		exam = s.builtinByID(ctx, id)
		if exam == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("exam %s not found", id))
		}
	default:
		s.logger.Warn("exam store unreachable, falling back to built-in catalog", zap.String("exam_id", id), zap.Error(err))
		exam = s.builtinByID(ctx, id)
		if exam == nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "exam store unreachable")
		}
	}

	if s.archivedSet(ctx)[exam.ID] {
		exam.Status = models.ExamStatusArchived
	}
	return exam, nil
}

// GetExamQuestions returns the ordered question set of one exam. An exam
// without authored questions yields an empty slice, not an error.
func (s *ExamService) GetExamQuestions(ctx context.Context, id string) ([]models.Question, error) {
	exam, err := s.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(exam.Questions) == 0 {
		return []models.Question{}, nil
	}
	return exam.Questions, nil
}

// UpsertExam stores a complete exam, shadowing any built-in with the same id.
func (s *ExamService) UpsertExam(ctx context.Context, exam *models.Exam) error {
	if exam == nil || exam.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "exam id is required")
	}
	if exam.Status == "" {
		exam.Status = models.ExamStatusAvailable
	}
	exam.TotalQuestions = len(exam.Questions)
	if err := s.exams.Upsert(ctx, exam); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store exam")
	}
	return nil
}

// ExamMetadataRequest carries the editable metadata fields of one exam.
type ExamMetadataRequest struct {
	Year    *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Subject *string `json:"subject" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,oneof=Available Archived"`
}

// UpdateMetadata edits year, subject or status of one exam. Editing a
// built-in exam materialises it into the store first.
func (s *ExamService) UpdateMetadata(ctx context.Context, id string, req ExamMetadataRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam metadata payload")
	}

	update := repository.ExamMetadataUpdate{Year: req.Year, Subject: req.Subject}
	if req.Status != nil {
		status := models.ExamStatus(*req.Status)
		update.Status = &status
	}

	err := s.exams.UpdateMetadata(ctx, id, update)
	if errors.Is(err, sql.ErrNoRows) {
		builtin := s.builtinByID(ctx, id)
		if builtin == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("exam %s not found", id))
		}
		applyMetadata(builtin, update)
		if err := s.exams.Upsert(ctx, builtin); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store exam")
		}
		return builtin, nil
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update exam")
	}
	return s.GetExam(ctx, id)
}

// ToggleArchive flips the archived overlay flag of one exam and returns the
// new state.
func (s *ExamService) ToggleArchive(ctx context.Context, id string) (bool, error) {
	if _, err := s.GetExam(ctx, id); err != nil {
		return false, err
	}
	archived, err := s.preferences.ToggleArchived(ctx, id)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to toggle archive flag")
	}
	return archived, nil
}

// DeleteExam removes a stored exam, or flags a built-in exam as deleted so
// it disappears from the catalog without touching the compiled data.
func (s *ExamService) DeleteExam(ctx context.Context, id string) error {
	err := s.exams.Delete(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete exam")
	}

	if s.builtinByID(ctx, id) == nil {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("exam %s not found", id))
	}
	if err := s.preferences.MarkBuiltinDeleted(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to flag built-in exam deleted")
	}
	return nil
}

// ImportQuestions decodes a question upload and stores one exam per ExamID
// group. Unreadable files fail whole; bad rows are skipped and reported.
func (s *ExamService) ImportQuestions(ctx context.Context, payload []byte) (*ImportSummary, error) {
	rows, err := tabular.ParseWorkbook(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFormat.Code, appErrors.ErrFormat.Status, "unreadable spreadsheet")
	}

	groups, issues := tabular.DecodeQuestionRows(rows)
	summary := &ImportSummary{RowsSkipped: len(issues), Issues: issues}

	for _, group := range groups {
		exam := &models.Exam{
			ID:             group.ExamID,
			Year:           inferYear(group.ExamID, time.Now().UTC().Year()),
			Subject:        ImportedSubject,
			Status:         models.ExamStatusAvailable,
			TotalQuestions: len(group.Questions),
			Questions:      group.Questions,
		}
		if err := s.exams.Upsert(ctx, exam); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status,
				fmt.Sprintf("failed to store imported exam %s", group.ExamID))
		}
		summary.ExamsImported++
		summary.QuestionsImported += len(group.Questions)
	}

	s.logger.Info("question import finished",
		zap.Int("exams", summary.ExamsImported),
		zap.Int("questions", summary.QuestionsImported),
		zap.Int("skipped", summary.RowsSkipped))
	return summary, nil
}

func (s *ExamService) builtinByID(ctx context.Context, id string) *models.Exam {
	if s.deletedBuiltins(ctx)[id] {
		return nil
	}
	for _, exam := range builtinExams() {
		if exam.ID == id {
			copied := exam
			return &copied
		}
	}
	return nil
}

func (s *ExamService) archivedSet(ctx context.Context) map[string]bool {
	set, err := s.preferences.ArchivedExamIDs(ctx)
	if err != nil {
		s.logger.Warn("archive overlay unreachable", zap.Error(err))
		return map[string]bool{}
	}
	return set
}

func (s *ExamService) deletedBuiltins(ctx context.Context) map[string]bool {
	set, err := s.preferences.DeletedBuiltinIDs(ctx)
	if err != nil {
		s.logger.Warn("deletion overlay unreachable", zap.Error(err))
		return map[string]bool{}
	}
	return set
}

func applyMetadata(exam *models.Exam, update repository.ExamMetadataUpdate) {
	if update.Year != nil {
		exam.Year = *update.Year
	}
	if update.Subject != nil {
		exam.Subject = *update.Subject
	}
	if update.Status != nil {
		exam.Status = *update.Status
	}
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// inferYear extracts a plausible exam year from the exam id, falling back
// to the given default when no 19xx/20xx run appears.
func inferYear(examID string, fallback int) int {
	match := yearPattern.FindString(examID)
	if match == "" {
		return fallback
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return fallback
	}
	return year
}
