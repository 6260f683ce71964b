package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examportal/exam-portal-api/internal/service"
	"github.com/examportal/exam-portal-api/internal/tabular"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
	"github.com/examportal/exam-portal-api/pkg/export"
	"github.com/examportal/exam-portal-api/pkg/response"
)

// AdminHandler wires spreadsheet import and template endpoints.
type AdminHandler struct {
	exams       *service.ExamService
	users       *service.UserService
	metrics     *service.MetricsService
	maxFileSize int64
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(exams *service.ExamService, users *service.UserService, metrics *service.MetricsService, maxFileSize int64) *AdminHandler {
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	return &AdminHandler{exams: exams, users: users, metrics: metrics, maxFileSize: maxFileSize}
}

// ImportQuestions godoc
// @Summary Import questions from a spreadsheet
// @Description Accepts a CSV or XLSX upload; one exam is created per ExamID group
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet upload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/imports/questions [post]
func (h *AdminHandler) ImportQuestions(c *gin.Context) {
	payload, err := h.readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.exams.ImportQuestions(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordImport("questions")
	response.JSON(c, http.StatusOK, summary)
}

// ImportUsers godoc
// @Summary Import accounts from a spreadsheet
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet upload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/imports/users [post]
func (h *AdminHandler) ImportUsers(c *gin.Context) {
	payload, err := h.readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.users.ImportUsers(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordImport("users")
	response.JSON(c, http.StatusOK, summary)
}

// QuestionTemplate godoc
// @Summary Download the question upload template
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200
// @Security BearerAuth
// @Router /admin/templates/questions [get]
func (h *AdminHandler) QuestionTemplate(c *gin.Context) {
	h.serveTemplate(c, tabular.QuestionTemplate(), "question_template")
}

// UserTemplate godoc
// @Summary Download the account upload template
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200
// @Security BearerAuth
// @Router /admin/templates/users [get]
func (h *AdminHandler) UserTemplate(c *gin.Context) {
	h.serveTemplate(c, tabular.UserTemplate(), "user_template")
}

// Accounts godoc
// @Summary List provisioned accounts
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/accounts [get]
func (h *AdminHandler) Accounts(c *gin.Context) {
	accounts, err := h.users.ListAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, map[string]interface{}{"count": len(accounts)})
}

func (h *AdminHandler) readUpload(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file upload required")
	}
	if fileHeader.Size > h.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileSize))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	defer file.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(payload)) > h.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileSize))
	}
	return payload, nil
}

func (h *AdminHandler) serveTemplate(c *gin.Context, dataset export.Dataset, basename string) {
	format := c.DefaultQuery("format", "csv")

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case "csv":
		payload, err = export.NewCSVExporter().Render(dataset)
		contentType = "text/csv"
	case "xlsx":
		payload, err = export.NewXLSXExporter().Render(dataset)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported template format %q", format)))
		return
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", basename, format))
	c.Data(http.StatusOK, contentType, payload)
}
