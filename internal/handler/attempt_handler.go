package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/internal/service"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
	"github.com/examportal/exam-portal-api/pkg/response"
)

// AttemptHandler wires HTTP endpoints to the attempt engine.
type AttemptHandler struct {
	service *service.AttemptService
	metrics *service.MetricsService
}

// NewAttemptHandler creates a new handler.
func NewAttemptHandler(svc *service.AttemptService, metrics *service.MetricsService) *AttemptHandler {
	return &AttemptHandler{service: svc, metrics: metrics}
}

// Start godoc
// @Summary Start an exam attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Param payload body object{exam_id=string} true "Exam to attempt"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts [post]
func (h *AttemptHandler) Start(c *gin.Context) {
	var req struct {
		ExamID string `json:"exam_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "exam_id required"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	snap, err := h.service.Start(c.Request.Context(), req.ExamID, claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordAttemptStarted()
	response.Created(c, snap)
}

// Get godoc
// @Summary Current view of one attempt
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id} [get]
func (h *AttemptHandler) Get(c *gin.Context) {
	snap, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.owns(c, snap) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, snap)
}

// Select stages an option on the current question.
// @Summary Stage an option
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body object{option_id=string} true "Option to stage"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id}/select [post]
func (h *AttemptHandler) Select(c *gin.Context) {
	var req struct {
		OptionID string `json:"option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "option_id required"))
		return
	}
	h.mutate(c, func(id string) (*models.AttemptSnapshot, error) {
		return h.service.Select(id, req.OptionID)
	})
}

// Submit locks in the staged option.
// @Summary Submit the staged option
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	h.mutate(c, h.service.Submit)
}

// Next advances past a submitted question, scoring the attempt on the last one.
// @Summary Advance the attempt
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id}/next [post]
func (h *AttemptHandler) Next(c *gin.Context) {
	h.mutate(c, func(id string) (*models.AttemptSnapshot, error) {
		snap, err := h.service.Next(c.Request.Context(), id)
		if err == nil && snap.State == models.AttemptStateFinished {
			h.metrics.RecordAttemptScored()
		}
		return snap, err
	})
}

// Prev steps back to the previous question.
// @Summary Step back
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id}/prev [post]
func (h *AttemptHandler) Prev(c *gin.Context) {
	h.mutate(c, h.service.Prev)
}

// Retry restarts a finished attempt.
// @Summary Retry the exam
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id}/retry [post]
func (h *AttemptHandler) Retry(c *gin.Context) {
	h.mutate(c, func(id string) (*models.AttemptSnapshot, error) {
		return h.service.Retry(c.Request.Context(), id)
	})
}

func (h *AttemptHandler) mutate(c *gin.Context, op func(id string) (*models.AttemptSnapshot, error)) {
	id := c.Param("id")
	current, err := h.service.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.owns(c, current) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	snap, err := op(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap)
}

// owns allows the attempt's own user plus admins.
func (h *AttemptHandler) owns(c *gin.Context, snap *models.AttemptSnapshot) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		return false
	}
	return claims.Role == models.RoleAdmin || claims.Username == snap.UserName
}
