package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type mockExamProvider struct {
	exam *models.Exam
	err  error
}

func (m *mockExamProvider) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.exam
	return &copied, nil
}

type mockResultRecorder struct {
	created []*models.Result
	err     error
}

func (m *mockResultRecorder) Create(ctx context.Context, result *models.Result) error {
	if m.err != nil {
		return m.err
	}
	result.ID = "result-1"
	m.created = append(m.created, result)
	return nil
}

func threeQuestionExam() *models.Exam {
	options := []models.Option{
		{ID: "a", Text: "Option A"},
		{ID: "b", Text: "Option B"},
	}
	return &models.Exam{
		ID:      "math-2024",
		Year:    2024,
		Subject: "Mathematics",
		Status:  models.ExamStatusAvailable,
		Questions: models.QuestionList{
			{ID: "q1", Text: "First?", Options: options, CorrectAnswer: "b", Explanation: "b it is"},
			{ID: "q2", Text: "Second?", Options: options, CorrectAnswer: "a", Explanation: "a it is"},
			{ID: "q3", Text: "Third?", Options: options, CorrectAnswer: "b", Explanation: "b again"},
		},
	}
}

func newAttemptService(exams attemptExamProvider, results attemptResultRecorder) *AttemptService {
	return NewAttemptService(exams, results, zap.NewNop(), AttemptConfig{})
}

func answerCurrent(t *testing.T, svc *AttemptService, id string, option models.OptionID) *models.AttemptSnapshot {
	t.Helper()
	snap, err := svc.Select(id, option)
	require.NoError(t, err)
	require.Equal(t, option, snap.Pending)
	snap, err = svc.Submit(id)
	require.NoError(t, err)
	require.Equal(t, models.AttemptStateSubmitted, snap.State)
	return snap
}

func TestAttemptFullRunScoring(t *testing.T) {
	recorder := &mockResultRecorder{}
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, recorder)
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2024", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateAnswering, snap.State)
	assert.Equal(t, 3, snap.TotalQuestions)
	require.NotNil(t, snap.Question)
	assert.Empty(t, snap.Question.CorrectAnswer, "correct answer must be withheld while answering")

	// Answers b, a, b against correct b, a, b -> only q3 answered wrong below.
	answerCurrent(t, svc, snap.ID, "b")
	next, err := svc.Next(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index)

	answerCurrent(t, svc, snap.ID, "a")
	_, err = svc.Next(ctx, snap.ID)
	require.NoError(t, err)

	answerCurrent(t, svc, snap.ID, "a") // wrong, correct is b
	final, err := svc.Next(ctx, snap.ID)
	require.NoError(t, err)

	assert.Equal(t, models.AttemptStateFinished, final.State)
	assert.Equal(t, 2, final.Score)
	assert.Equal(t, 66.7, final.Percentage)
	assert.Equal(t, "result-1", final.ResultID)

	require.Len(t, recorder.created, 1)
	persisted := recorder.created[0]
	assert.Equal(t, "alice", persisted.UserName)
	assert.Equal(t, 2024, persisted.ExamYear)
	assert.Equal(t, 2, persisted.Score)
	assert.Equal(t, 3, persisted.TotalQuestions)
	assert.Equal(t, 66.7, persisted.Percentage)
	require.Len(t, persisted.Details, 3)
	assert.False(t, persisted.Details[2].IsCorrect)
	assert.Equal(t, "Option A", persisted.Details[2].SelectedText)
	assert.Equal(t, "Option B", persisted.Details[2].CorrectText)
}

func TestAttemptIllegalOpsAreNoOps(t *testing.T) {
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, &mockResultRecorder{})
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2024", "alice")
	require.NoError(t, err)

	// Submit without a staged option.
	same, err := svc.Submit(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateAnswering, same.State)

	// Next while still answering.
	same, err = svc.Next(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateAnswering, same.State)
	assert.Equal(t, 0, same.Index)

	// Prev on the first question.
	same, err = svc.Prev(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, same.Index)

	// Selecting an option the question does not offer.
	same, err = svc.Select(snap.ID, "z")
	require.NoError(t, err)
	assert.Empty(t, same.Pending)
}

func TestAttemptSelectOverwritesPending(t *testing.T) {
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, &mockResultRecorder{})
	snap, err := svc.Start(context.Background(), "math-2024", "alice")
	require.NoError(t, err)

	_, err = svc.Select(snap.ID, "a")
	require.NoError(t, err)
	changed, err := svc.Select(snap.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", string(changed.Pending))
}

func TestAttemptPrevKeepsRecordedAnswer(t *testing.T) {
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, &mockResultRecorder{})
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2024", "alice")
	require.NoError(t, err)

	answerCurrent(t, svc, snap.ID, "b")
	_, err = svc.Next(ctx, snap.ID)
	require.NoError(t, err)

	back, err := svc.Prev(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Index)
	assert.Equal(t, models.AttemptStateAnswering, back.State)
	assert.Empty(t, back.Pending)
	assert.Equal(t, 1, back.AnsweredCount, "earlier answer survives prev")

	// Resubmitting overwrites the earlier answer.
	answerCurrent(t, svc, snap.ID, "a")
	current, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.AnsweredCount)
	require.NotNil(t, current.Answer)
	assert.Equal(t, "a", string(current.Answer.Selected))
	assert.False(t, current.Answer.IsCorrect)
}

func TestAttemptPersistFailureIsRecoverable(t *testing.T) {
	recorder := &mockResultRecorder{err: errors.New("connection refused")}
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, recorder)
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2024", "alice")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		answerCurrent(t, svc, snap.ID, "b")
		if i < 2 {
			_, err = svc.Next(ctx, snap.ID)
			require.NoError(t, err)
		}
	}

	_, err = svc.Next(ctx, snap.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)

	// State stays submitted on the last question; retrying next succeeds
	// once the store recovers.
	stuck, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateSubmitted, stuck.State)
	assert.Equal(t, 2, stuck.Index)

	recorder.err = nil
	final, err := svc.Next(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateFinished, final.State)
	assert.Equal(t, 2, final.Score)
}

func TestAttemptEmptyExam(t *testing.T) {
	exam := &models.Exam{ID: "math-2022", Year: 2022, Subject: "Mathematics"}
	svc := newAttemptService(&mockExamProvider{exam: exam}, &mockResultRecorder{})
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2022", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateEmpty, snap.State)
	assert.Equal(t, 0, snap.TotalQuestions)

	// Every session op is a no-op in the empty state.
	same, err := svc.Select(snap.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateEmpty, same.State)
	same, err = svc.Next(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateEmpty, same.State)
}

func TestAttemptRetryRestartsWithFreshQuestions(t *testing.T) {
	provider := &mockExamProvider{exam: threeQuestionExam()}
	svc := newAttemptService(provider, &mockResultRecorder{})
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2024", "alice")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		answerCurrent(t, svc, snap.ID, "b")
		_, err = svc.Next(ctx, snap.ID)
		require.NoError(t, err)
	}

	// Exam edited between runs.
	edited := threeQuestionExam()
	edited.Questions = edited.Questions[:2]
	provider.exam = edited

	restarted, err := svc.Retry(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateAnswering, restarted.State)
	assert.Equal(t, 0, restarted.Index)
	assert.Equal(t, 0, restarted.AnsweredCount)
	assert.Equal(t, 2, restarted.TotalQuestions)
}

func TestAttemptRetryBeforeFinishIsNoOp(t *testing.T) {
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, &mockResultRecorder{})
	ctx := context.Background()

	snap, err := svc.Start(ctx, "math-2024", "alice")
	require.NoError(t, err)

	same, err := svc.Retry(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStateAnswering, same.State)
	assert.Equal(t, snap.StartedAt, same.StartedAt)
}

func TestAttemptUnknownID(t *testing.T) {
	svc := newAttemptService(&mockExamProvider{exam: threeQuestionExam()}, &mockResultRecorder{})

	_, err := svc.Get("ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
