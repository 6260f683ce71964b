package tabular

import (
	"strings"

	"github.com/google/uuid"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/pkg/export"
)

const (
	// DefaultExamID groups rows that carry no ExamID column value.
	DefaultExamID = "custom-exam"
	// DefaultExplanation fills rows without an Explanation cell.
	DefaultExplanation = "No explanation provided."
)

// QuestionColumns is the exact header row of the question upload format.
var QuestionColumns = []string{"ExamID", "Question", "OptionA", "OptionB", "OptionC", "OptionD", "CorrectAnswer", "Explanation"}

var optionColumns = []struct {
	id     models.OptionID
	header string
}{
	{"a", "OptionA"},
	{"b", "OptionB"},
	{"c", "OptionC"},
	{"d", "OptionD"},
}

// QuestionGroup is the decoded question sequence of one exam id.
type QuestionGroup struct {
	ExamID    string
	Questions []models.Question
}

// RowIssue reports a skipped data row. Row is the 1-based spreadsheet line
// number (the header occupies line 1, so the first data row is line 2).
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// DecodeQuestionRows converts upload rows into question groups. Rows missing
// a required field (Question, OptionA, CorrectAnswer) are skipped with an
// issue; everything else decodes. Group order follows the first appearance
// of each exam id, row order is preserved within a group.
func DecodeQuestionRows(rows []Row) ([]QuestionGroup, []RowIssue) {
	groups := make([]QuestionGroup, 0)
	groupIndex := make(map[string]int)
	issues := make([]RowIssue, 0)

	for i, row := range rows {
		questionText := row.Get("Question")
		optionA := row.Get("OptionA")
		correct := strings.TrimSpace(row.Get("CorrectAnswer"))
		if strings.TrimSpace(questionText) == "" || strings.TrimSpace(optionA) == "" || correct == "" {
			issues = append(issues, RowIssue{Row: i + 2, Reason: "missing required fields"})
			continue
		}

		examID := strings.TrimSpace(row.Get("ExamID"))
		if examID == "" {
			examID = DefaultExamID
		}

		options := make([]models.Option, 0, len(optionColumns))
		for _, col := range optionColumns {
			if text := row.Get(col.header); text != "" {
				options = append(options, models.Option{ID: col.id, Text: text})
			}
		}

		explanation := row.Get("Explanation")
		if explanation == "" {
			explanation = DefaultExplanation
		}

		question := models.Question{
			ID:            uuid.NewString(),
			Text:          questionText,
			Options:       options,
			CorrectAnswer: strings.ToLower(correct),
			Explanation:   explanation,
		}

		idx, ok := groupIndex[examID]
		if !ok {
			idx = len(groups)
			groupIndex[examID] = idx
			groups = append(groups, QuestionGroup{ExamID: examID})
		}
		groups[idx].Questions = append(groups[idx].Questions, question)
	}

	return groups, issues
}

// QuestionTemplate returns the downloadable question upload template: the
// fixed header row plus one illustrative example.
func QuestionTemplate() export.Dataset {
	return export.Dataset{
		Name:    "Template",
		Headers: append([]string(nil), QuestionColumns...),
		Rows: []map[string]string{
			{
				"ExamID":        "math-2024",
				"Question":      "What is 2 + 2?",
				"OptionA":       "3",
				"OptionB":       "4",
				"OptionC":       "5",
				"OptionD":       "6",
				"CorrectAnswer": "b",
				"Explanation":   "Basic arithmetic.",
			},
		},
	}
}
