package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExamStatus is the visible availability state of an exam.
type ExamStatus string

const (
	ExamStatusAvailable ExamStatus = "Available"
	ExamStatusArchived  ExamStatus = "Archived"
)

// OptionID is one of the fixed a-d answer slots tied to spreadsheet columns.
type OptionID = string

// Option is a single answer choice.
type Option struct {
	ID   OptionID `json:"id"`
	Text string   `json:"text"`
}

// Question is one multiple-choice question with 2-4 options.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []Option `json:"options"`
	CorrectAnswer OptionID `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Option returns the option with the given id, if present.
func (q Question) Option(id OptionID) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// QuestionList stores the ordered question sequence as a JSONB document.
type QuestionList []Question

// Value implements driver.Valuer.
func (q QuestionList) Value() (driver.Value, error) {
	if q == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(q)
}

// Scan implements sql.Scanner.
func (q *QuestionList) Scan(src interface{}) error {
	if src == nil {
		*q = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported questions column type %T", src)
	}
	return json.Unmarshal(raw, q)
}

// Exam is a year/subject tagged ordered question set.
type Exam struct {
	ID             string       `db:"id" json:"id"`
	Year           int          `db:"year" json:"year"`
	Subject        string       `db:"subject" json:"subject"`
	Status         ExamStatus   `db:"status" json:"status"`
	TotalQuestions int          `db:"total_questions" json:"total_questions"`
	Questions      QuestionList `db:"questions" json:"questions,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"-"`
	UpdatedAt      time.Time    `db:"updated_at" json:"-"`
}
