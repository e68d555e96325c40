package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/uniportal-api/internal/service"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
	"github.com/campusworks/uniportal-api/pkg/response"
)

// GradeHandler exposes grade and transcript endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Transcript godoc
// @Summary Student transcript
// @Description Returns graded courses with the credit-weighted GPA
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param semester query string false "Limit to one semester"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	transcript, err := h.service.Transcript(c.Request.Context(), c.Param("id"), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// Upsert godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [put]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var req service.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}
