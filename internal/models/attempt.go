package models

import "time"

// AttemptState is the session engine state for one in-progress attempt.
type AttemptState string

const (
	// AttemptStateAnswering means the current question awaits a submission.
	AttemptStateAnswering AttemptState = "answering"
	// AttemptStateSubmitted means the current question was answered and the
	// explanation can be shown; only next() leaves this state.
	AttemptStateSubmitted AttemptState = "submitted"
	// AttemptStateFinished means the attempt was scored and persisted.
	AttemptStateFinished AttemptState = "finished"
	// AttemptStateEmpty is the terminal display state for exams without
	// authored questions.
	AttemptStateEmpty AttemptState = "empty"
)

// AttemptSnapshot is the caller-facing view of an attempt after any operation.
type AttemptSnapshot struct {
	ID             string        `json:"id"`
	ExamID         string        `json:"exam_id"`
	UserName       string        `json:"user_name"`
	State          AttemptState  `json:"state"`
	Index          int           `json:"index"`
	TotalQuestions int           `json:"total_questions"`
	AnsweredCount  int           `json:"answered_count"`
	Pending        OptionID      `json:"pending,omitempty"`
	Question       *Question     `json:"question,omitempty"`
	Answer         *AnswerDetail `json:"answer,omitempty"`
	Score          int           `json:"score,omitempty"`
	Percentage     float64       `json:"percentage,omitempty"`
	ResultID       string        `json:"result_id,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
}
