package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnswerDetail records one answered question inside a completed attempt.
type AnswerDetail struct {
	QuestionID   string   `json:"question_id"`
	Selected     OptionID `json:"selected"`
	Correct      OptionID `json:"correct"`
	IsCorrect    bool     `json:"is_correct"`
	QuestionText string   `json:"question_text"`
	SelectedText string   `json:"selected_text"`
	CorrectText  string   `json:"correct_text"`
}

// AnswerDetails maps the zero-based question index to its recorded answer.
// Persisted as a JSONB document.
type AnswerDetails map[int]AnswerDetail

// Value implements driver.Valuer.
func (d AnswerDetails) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *AnswerDetails) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported details column type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// Result is one completed exam attempt. Append-only.
type Result struct {
	ID              string        `db:"id" json:"id"`
	UserName        string        `db:"user_name" json:"user_name"`
	ExamYear        int           `db:"exam_year" json:"exam_year"`
	Subject         string        `db:"subject" json:"subject"`
	Score           int           `db:"score" json:"score"`
	TotalQuestions  int           `db:"total_questions" json:"total_questions"`
	Percentage      float64       `db:"percentage" json:"percentage"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Details         AnswerDetails `db:"details" json:"details"`
	Timestamp       time.Time     `db:"created_at" json:"timestamp"`
}

// Key returns the structured exam key of this result.
func (r Result) Key() ExamKey {
	return ExamKey{Year: r.ExamYear, Subject: r.Subject}
}

// ExamKey identifies the "same" exam across attempts. Kept structured
// internally; the joined string form exists only at the HTTP boundary,
// where ParseExamKey splits on the first hyphen so subjects containing
// hyphens survive the round trip.
type ExamKey struct {
	Year    int    `json:"year"`
	Subject string `json:"subject"`
}

// String renders the boundary form "{year}-{subject}".
func (k ExamKey) String() string {
	return fmt.Sprintf("%d-%s", k.Year, k.Subject)
}

// MarshalJSON includes the joined boundary form alongside the parts.
func (k ExamKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year    int    `json:"year"`
		Subject string `json:"subject"`
		Key     string `json:"key"`
	}{Year: k.Year, Subject: k.Subject, Key: k.String()})
}

// ParseExamKey parses the boundary form back into a structured key.
func ParseExamKey(raw string) (ExamKey, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ExamKey{}, fmt.Errorf("invalid exam key %q", raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return ExamKey{}, fmt.Errorf("invalid exam key year %q", parts[0])
	}
	return ExamKey{Year: year, Subject: parts[1]}, nil
}
