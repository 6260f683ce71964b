package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
	"github.com/examportal/exam-portal-api/pkg/export"
	"github.com/examportal/exam-portal-api/pkg/storage"
)

type exportResultSource interface {
	ListAll(ctx context.Context) ([]models.Result, error)
	ListByKeys(ctx context.Context, keys []models.ExamKey) ([]models.Result, error)
	GetByID(ctx context.Context, id string) (*models.Result, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportRequest describes one report to generate. When ResultID is set a
// single-result report is produced; otherwise Keys filter the history
// ("{year}-{subject}" boundary form, empty meaning everything).
type ExportRequest struct {
	Format   models.ReportFormat `json:"format"`
	Keys     []string            `json:"keys,omitempty"`
	ResultID string              `json:"result_id,omitempty"`
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string              `json:"-"`
	Token        string              `json:"token"`
	URL          string              `json:"url"`
	Format       models.ReportFormat `json:"format"`
	ResultCount  int                 `json:"result_count"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// ExportService builds results report datasets and persists rendered files.
type ExportService struct {
	results exportResultSource
	storage fileStorage
	csv     csvRenderer
	xlsx    xlsxRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(results exportResultSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		results: results,
		storage: files,
		csv:     export.NewCSVExporter(),
		xlsx:    export.NewXLSXExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the requested report and stores the artifact, returning
// a signed download token.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", req.Format))
	}

	var (
		payload []byte
		count   int
		err     error
	)
	if req.ResultID != "" {
		payload, count, err = s.renderSingle(ctx, req)
	} else {
		payload, count, err = s.renderBulk(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	exportID := strings.ReplaceAll(time.Now().UTC().Format("20060102_150405.000"), ".", "")
	filename := fmt.Sprintf("results_%s.%s", exportID, req.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("format", string(req.Format)),
		zap.Int("results", count),
		zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       req.Format,
		ResultCount:  count,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes artifacts older than ttl (defaults to the configured
// ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) renderBulk(ctx context.Context, req ExportRequest) ([]byte, int, error) {
	results, err := s.loadResults(ctx, req.Keys)
	if err != nil {
		return nil, 0, err
	}

	if req.Format == models.ReportFormatMarkdown {
		return []byte(buildMarkdownReport(results)), len(results), nil
	}

	dataset := buildBulkDataset(results)
	payload, err := s.render(req.Format, dataset, "Exam Results")
	if err != nil {
		return nil, 0, err
	}
	return payload, len(results), nil
}

func (s *ExportService) renderSingle(ctx context.Context, req ExportRequest) ([]byte, int, error) {
	result, err := s.results.GetByID(ctx, req.ResultID)
	if err != nil {
		return nil, 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("result %s not found", req.ResultID))
	}

	if req.Format == models.ReportFormatMarkdown {
		return []byte(buildMarkdownReport([]models.Result{*result})), 1, nil
	}

	dataset := buildSingleDataset(*result)
	title := fmt.Sprintf("Exam Result %s %d", result.Subject, result.ExamYear)
	payload, err := s.render(req.Format, dataset, title)
	if err != nil {
		return nil, 0, err
	}
	return payload, 1, nil
}

func (s *ExportService) render(format models.ReportFormat, dataset export.Dataset, title string) ([]byte, error) {
	var payload []byte
	var err error
	switch format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatXLSX:
		payload, err = s.xlsx.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return payload, nil
}

func (s *ExportService) loadResults(ctx context.Context, rawKeys []string) ([]models.Result, error) {
	if len(rawKeys) == 0 {
		results, err := s.results.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load results")
		}
		return results, nil
	}
	keys, err := parseKeys(rawKeys)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByKeys(ctx, keys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load results")
	}
	return results, nil
}

// buildBulkDataset lays out one row per result, padding per-question answer
// columns with "-" up to the widest attempt in the batch.
func buildBulkDataset(results []models.Result) export.Dataset {
	maxQuestions := 0
	for _, result := range results {
		if result.TotalQuestions > maxQuestions {
			maxQuestions = result.TotalQuestions
		}
	}

	headers := []string{"No.", "Student Name", "Exam Year", "Subject", "Score", "Total Questions", "Percentage", "Status", "Date", "Duration (min)"}
	for i := 1; i <= maxQuestions; i++ {
		headers = append(headers, fmt.Sprintf("Q%d Answer", i))
	}

	rows := make([]map[string]string, 0, len(results))
	for i, result := range results {
		row := baseResultRow(result, string(models.BulkStatus(result.Percentage)))
		row["No."] = strconv.Itoa(i + 1)
		for q := 0; q < maxQuestions; q++ {
			value := "-"
			if detail, ok := result.Details[q]; ok {
				value = renderOption(detail.Selected, detail.SelectedText)
			}
			row[fmt.Sprintf("Q%d Answer", q+1)] = value
		}
		rows = append(rows, row)
	}

	return export.Dataset{Name: "Results", Headers: headers, Rows: rows}
}

// buildSingleDataset lays out one result, pairing each answer column with
// the correct option for review.
func buildSingleDataset(result models.Result) export.Dataset {
	headers := []string{"No.", "Student Name", "Exam Year", "Subject", "Score", "Total Questions", "Percentage", "Status", "Date", "Duration (min)"}
	for i := 1; i <= result.TotalQuestions; i++ {
		headers = append(headers, fmt.Sprintf("Q%d Answer", i), fmt.Sprintf("Q%d Correct", i))
	}

	row := baseResultRow(result, string(models.SingleStatus(result.Percentage)))
	row["No."] = "1"
	for q := 0; q < result.TotalQuestions; q++ {
		answer, correct := "-", "-"
		if detail, ok := result.Details[q]; ok {
			answer = renderOption(detail.Selected, detail.SelectedText)
			correct = renderOption(detail.Correct, detail.CorrectText)
		}
		row[fmt.Sprintf("Q%d Answer", q+1)] = answer
		row[fmt.Sprintf("Q%d Correct", q+1)] = correct
	}

	return export.Dataset{Name: "Result", Headers: headers, Rows: []map[string]string{row}}
}

func baseResultRow(result models.Result, status string) map[string]string {
	duration := "N/A"
	if result.DurationMinutes > 0 {
		duration = strconv.Itoa(result.DurationMinutes)
	}
	return map[string]string{
		"Student Name":    result.UserName,
		"Exam Year":       strconv.Itoa(result.ExamYear),
		"Subject":         result.Subject,
		"Score":           strconv.Itoa(result.Score),
		"Total Questions": strconv.Itoa(result.TotalQuestions),
		"Percentage":      formatPercentage(result.Percentage),
		"Status":          status,
		"Date":            result.Timestamp.UTC().Format("2006-01-02 15:04"),
		"Duration (min)":  duration,
	}
}

// renderOption prints "B: <text>", or just the upper-cased id when the
// option text was not captured.
func renderOption(id models.OptionID, text string) string {
	if id == "" {
		return "-"
	}
	if text == "" {
		return strings.ToUpper(string(id))
	}
	return fmt.Sprintf("%s: %s", strings.ToUpper(string(id)), text)
}

// buildMarkdownReport renders a human-readable report with one section per
// result and a per-question breakdown where answer details exist.
func buildMarkdownReport(results []models.Result) string {
	var b strings.Builder
	b.WriteString("# Exam Results Report\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Total results: %d\n\n", len(results)))

	for _, result := range results {
		b.WriteString(fmt.Sprintf("## %s — %s %d\n\n", result.UserName, result.Subject, result.ExamYear))
		b.WriteString(fmt.Sprintf("- Score: %d / %d (%s)\n", result.Score, result.TotalQuestions, formatPercentage(result.Percentage)))
		b.WriteString(fmt.Sprintf("- Status: %s\n", models.BulkStatus(result.Percentage)))
		b.WriteString(fmt.Sprintf("- Duration: %d min\n", result.DurationMinutes))
		b.WriteString(fmt.Sprintf("- Date: %s\n\n", result.Timestamp.UTC().Format("2006-01-02 15:04")))

		if len(result.Details) == 0 {
			continue
		}

		b.WriteString("| Q# | Question | Your Answer | Status |\n")
		b.WriteString("|----|----------|-------------|--------|\n")
		indexes := make([]int, 0, len(result.Details))
		for idx := range result.Details {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)
		for _, idx := range indexes {
			detail := result.Details[idx]
			status := "Wrong"
			if detail.IsCorrect {
				status = "Correct"
			}
			b.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				idx+1, escapeMarkdown(detail.QuestionText), renderOption(detail.Selected, detail.SelectedText), status))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// formatPercentage renders the shortest decimal form followed by a percent
// sign, so 80 prints as "80%" and 66.7 as "66.7%".
func formatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

func escapeMarkdown(raw string) string {
	return strings.ReplaceAll(raw, "|", "\\|")
}
