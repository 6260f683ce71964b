package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/internal/service"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
	"github.com/examportal/exam-portal-api/pkg/response"
)

// ResultHandler wires HTTP endpoints to the result history.
type ResultHandler struct {
	service *service.ResultService
}

// NewResultHandler creates a new handler.
func NewResultHandler(svc *service.ResultService) *ResultHandler {
	return &ResultHandler{service: svc}
}

// List godoc
// @Summary List results
// @Description Admins see the whole history, students their own attempts
// @Tags Results
// @Produce json
// @Param keys query string false "Comma-separated {year}-{subject} keys (admin only)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var (
		results []models.Result
		err     error
	)
	if claims.Role == models.RoleAdmin {
		if raw := c.Query("keys"); raw != "" {
			results, err = h.service.ListResultsByKeys(c.Request.Context(), strings.Split(raw, ","))
		} else {
			results, err = h.service.ListResults(c.Request.Context())
		}
	} else {
		results, err = h.service.ListResultsForUser(c.Request.Context(), claims.Username)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, map[string]interface{}{"count": len(results)})
}

// Get godoc
// @Summary Fetch one result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role != models.RoleAdmin && claims.Username != result.UserName {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Keys godoc
// @Summary Distinct exam keys present in the history
// @Tags Results
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/keys [get]
func (h *ResultHandler) Keys(c *gin.Context) {
	keys, err := h.service.UniqueKeys(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, keys, map[string]interface{}{"count": len(keys)})
}

// Count godoc
// @Summary Size of the result history
// @Tags Results
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/count [get]
func (h *ResultHandler) Count(c *gin.Context) {
	count, err := h.service.Count(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count})
}

// Delete godoc
// @Summary Delete results by exam key
// @Description Removes every result matching the given "{year}-{subject}" keys
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body object{keys=[]string} true "Exam keys to purge"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /results [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	var req struct {
		Keys []string `json:"keys" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "keys required"))
		return
	}

	deleted, err := h.service.DeleteByKeys(c.Request.Context(), req.Keys)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted})
}
