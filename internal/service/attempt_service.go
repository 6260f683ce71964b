package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type attemptExamProvider interface {
	GetExam(ctx context.Context, id string) (*models.Exam, error)
}

type attemptResultRecorder interface {
	Create(ctx context.Context, result *models.Result) error
}

// AttemptConfig tunes the in-memory attempt store.
type AttemptConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type attempt struct {
	id        string
	examID    string
	examYear  int
	subject   string
	userName  string
	questions []models.Question

	state   models.AttemptState
	index   int
	pending models.OptionID
	answers models.AnswerDetails

	score      int
	percentage float64
	resultID   string

	startedAt time.Time
	touchedAt time.Time
}

// AttemptService drives in-progress exam sessions. Attempts live only in
// memory; a finished attempt is persisted as a Result and the session is
// discarded by the janitor once its TTL lapses.
type AttemptService struct {
	exams   attemptExamProvider
	results attemptResultRecorder
	logger  *zap.Logger
	config  AttemptConfig

	mu       sync.Mutex
	attempts map[string]*attempt
}

// NewAttemptService constructs an AttemptService.
func NewAttemptService(exams attemptExamProvider, results attemptResultRecorder, logger *zap.Logger, config AttemptConfig) *AttemptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = 6 * time.Hour
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 15 * time.Minute
	}
	return &AttemptService{
		exams:    exams,
		results:  results,
		logger:   logger,
		config:   config,
		attempts: make(map[string]*attempt),
	}
}

// Start opens a new attempt on the given exam. An exam without authored
// questions yields an attempt stuck in the empty state.
func (s *AttemptService) Start(ctx context.Context, examID, userName string) (*models.AttemptSnapshot, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &attempt{
		id:        uuid.NewString(),
		examID:    exam.ID,
		examYear:  exam.Year,
		subject:   exam.Subject,
		userName:  userName,
		questions: exam.Questions,
		answers:   make(models.AnswerDetails),
		startedAt: now,
		touchedAt: now,
	}
	if len(a.questions) == 0 {
		a.state = models.AttemptStateEmpty
	} else {
		a.state = models.AttemptStateAnswering
	}

	s.mu.Lock()
	s.attempts[a.id] = a
	s.mu.Unlock()

	s.logger.Info("attempt started",
		zap.String("attempt_id", a.id),
		zap.String("exam_id", examID),
		zap.String("user", userName))
	return s.snapshot(a), nil
}

// Get returns the current view of an attempt.
func (s *AttemptService) Get(id string) (*models.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(a), nil
}

// Select stages an option on the current question. Outside the answering
// state, or with an option the question does not offer, the call is a no-op
// that returns the unchanged snapshot.
func (s *AttemptService) Select(id string, option models.OptionID) (*models.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	a.touchedAt = time.Now().UTC()

	if a.state == models.AttemptStateAnswering {
		if _, ok := a.questions[a.index].Option(option); ok {
			a.pending = option
		}
	}
	return s.snapshot(a), nil
}

// Submit locks in the staged option, recording the answer detail for the
// current question. Without a staged option, or outside the answering
// state, the call is a no-op.
func (s *AttemptService) Submit(id string) (*models.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	a.touchedAt = time.Now().UTC()

	if a.state != models.AttemptStateAnswering || a.pending == "" {
		return s.snapshot(a), nil
	}

	question := a.questions[a.index]
	selected, _ := question.Option(a.pending)
	correct, _ := question.Option(question.CorrectAnswer)
	a.answers[a.index] = models.AnswerDetail{
		QuestionID:   question.ID,
		Selected:     a.pending,
		Correct:      question.CorrectAnswer,
		IsCorrect:    a.pending == question.CorrectAnswer,
		QuestionText: question.Text,
		SelectedText: selected.Text,
		CorrectText:  correct.Text,
	}
	a.state = models.AttemptStateSubmitted
	return s.snapshot(a), nil
}

// Next advances past a submitted question. On the last question it scores
// the attempt and persists the result; if persistence fails the attempt
// stays submitted so the call can be retried.
func (s *AttemptService) Next(ctx context.Context, id string) (*models.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	a.touchedAt = time.Now().UTC()

	if a.state != models.AttemptStateSubmitted {
		return s.snapshot(a), nil
	}

	if a.index < len(a.questions)-1 {
		a.index++
		a.pending = ""
		a.state = models.AttemptStateAnswering
		return s.snapshot(a), nil
	}

	return s.finish(ctx, a)
}

// Prev steps back to the previous question, discarding any staged option.
// The answer already recorded for the earlier question survives and is
// overwritten only by a fresh submit.
func (s *AttemptService) Prev(id string) (*models.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	a.touchedAt = time.Now().UTC()

	movable := a.state == models.AttemptStateAnswering || a.state == models.AttemptStateSubmitted
	if !movable || a.index == 0 {
		return s.snapshot(a), nil
	}

	a.index--
	a.pending = ""
	a.state = models.AttemptStateAnswering
	return s.snapshot(a), nil
}

// Retry restarts a finished attempt on the same exam, re-reading the
// question set so edits made since the last run are picked up.
func (s *AttemptService) Retry(ctx context.Context, id string) (*models.AttemptSnapshot, error) {
	s.mu.Lock()
	a, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if a.state != models.AttemptStateFinished && a.state != models.AttemptStateEmpty {
		snap := s.snapshot(a)
		s.mu.Unlock()
		return snap, nil
	}
	examID := a.examID
	s.mu.Unlock()

	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, err = s.lookup(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a.questions = exam.Questions
	a.examYear = exam.Year
	a.subject = exam.Subject
	a.index = 0
	a.pending = ""
	a.answers = make(models.AnswerDetails)
	a.score = 0
	a.percentage = 0
	a.resultID = ""
	a.startedAt = now
	a.touchedAt = now
	if len(a.questions) == 0 {
		a.state = models.AttemptStateEmpty
	} else {
		a.state = models.AttemptStateAnswering
	}
	return s.snapshot(a), nil
}

// StartJanitor evicts idle attempts until the context is cancelled.
func (s *AttemptService) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := s.evictExpired(); evicted > 0 {
					s.logger.Info("expired attempts evicted", zap.Int("count", evicted))
				}
			}
		}
	}()
}

func (s *AttemptService) evictExpired() int {
	cutoff := time.Now().UTC().Add(-s.config.TTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, a := range s.attempts {
		if a.touchedAt.Before(cutoff) {
			delete(s.attempts, id)
			evicted++
		}
	}
	return evicted
}

// finish scores the attempt and persists the result. Caller holds the lock.
func (s *AttemptService) finish(ctx context.Context, a *attempt) (*models.AttemptSnapshot, error) {
	score := 0
	for _, detail := range a.answers {
		if detail.IsCorrect {
			score++
		}
	}
	total := len(a.questions)
	percentage := math.Round(float64(score)/float64(total)*1000) / 10

	now := time.Now().UTC()
	result := &models.Result{
		UserName:        a.userName,
		ExamYear:        a.examYear,
		Subject:         a.subject,
		Score:           score,
		TotalQuestions:  total,
		Percentage:      percentage,
		DurationMinutes: int(now.Sub(a.startedAt).Minutes()),
		Details:         cloneDetails(a.answers),
	}
	if err := s.results.Create(ctx, result); err != nil {
		// State stays submitted on the last question so the caller can
		// retry next() once the store recovers.
		s.logger.Error("failed to persist finished attempt",
			zap.String("attempt_id", a.id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist result")
	}

	a.score = score
	a.percentage = percentage
	a.resultID = result.ID
	a.state = models.AttemptStateFinished
	s.logger.Info("attempt finished",
		zap.String("attempt_id", a.id),
		zap.String("result_id", result.ID),
		zap.Int("score", score),
		zap.Float64("percentage", percentage))
	return s.snapshot(a), nil
}

func (s *AttemptService) lookup(id string) (*attempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("attempt %s not found", id))
	}
	return a, nil
}

// snapshot renders the caller view. The correct answer and explanation are
// withheld until the current question has been submitted.
func (s *AttemptService) snapshot(a *attempt) *models.AttemptSnapshot {
	snap := &models.AttemptSnapshot{
		ID:             a.id,
		ExamID:         a.examID,
		UserName:       a.userName,
		State:          a.state,
		Index:          a.index,
		TotalQuestions: len(a.questions),
		AnsweredCount:  len(a.answers),
		Pending:        a.pending,
		StartedAt:      a.startedAt,
	}

	switch a.state {
	case models.AttemptStateAnswering:
		question := a.questions[a.index]
		question.CorrectAnswer = ""
		question.Explanation = ""
		snap.Question = &question
	case models.AttemptStateSubmitted:
		question := a.questions[a.index]
		snap.Question = &question
		if detail, ok := a.answers[a.index]; ok {
			copied := detail
			snap.Answer = &copied
		}
	case models.AttemptStateFinished:
		snap.Score = a.score
		snap.Percentage = a.percentage
		snap.ResultID = a.resultID
	}

	return snap
}

func cloneDetails(details models.AnswerDetails) models.AnswerDetails {
	copied := make(models.AnswerDetails, len(details))
	for k, v := range details {
		copied[k] = v
	}
	return copied
}
