package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/service"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
	"github.com/campusworks/uniportal-api/pkg/response"
)

type enrollmentService interface {
	StartOrGet(ctx context.Context, studentID string) (*service.SelectionView, error)
	Toggle(ctx context.Context, studentID, courseCode string, revision int64) (*service.SelectionView, error)
	Summary(ctx context.Context, studentID string) (*service.SelectionView, error)
	Recommendation(ctx context.Context, studentID string) (*models.DropRecommendation, error)
	ApplyDrops(ctx context.Context, studentID string, codes []string, revision int64) (*service.SelectionView, error)
	Commit(ctx context.Context, studentID string, revision int64) (*models.CommitResult, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Drop(ctx context.Context, enrollmentID, actorStudentID string) error
}

// EnrollmentHandler exposes the selection workflow and committed enrollments.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

func (h *EnrollmentHandler) actingStudent(c *gin.Context) (string, bool) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "a student profile is required for selection"))
		return "", false
	}
	return studentID, true
}

// StartSelection godoc
// @Summary Start or resume a selection session
// @Description Creates a selection session for the current student, or returns the in-progress one
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollment/selection [post]
func (h *EnrollmentHandler) StartSelection(c *gin.Context) {
	studentID, ok := h.actingStudent(c)
	if !ok {
		return
	}
	view, err := h.service.StartOrGet(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

type toggleRequest struct {
	CourseCode string `json:"course_code" binding:"required"`
	Revision   int64  `json:"revision"`
}

// Toggle godoc
// @Summary Toggle a course in the selection
// @Description Adds or removes a course; locked courses and closed windows are silent no-ops
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body toggleRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollment/selection/toggle [post]
func (h *EnrollmentHandler) Toggle(c *gin.Context) {
	studentID, ok := h.actingStudent(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid toggle payload"))
		return
	}
	view, err := h.service.Toggle(c.Request.Context(), studentID, strings.ToUpper(req.CourseCode), req.Revision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Summary godoc
// @Summary Selection credit summary
// @Description Returns base, selected and total credits with the over-limit flag
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/selection/summary [get]
func (h *EnrollmentHandler) Summary(c *gin.Context) {
	studentID, ok := h.actingStudent(c)
	if !ok {
		return
	}
	view, err := h.service.Summary(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Recommendation godoc
// @Summary Drop recommendation
// @Description Suggests which selected courses to drop to get back under the credit limit
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/selection/recommendation [get]
func (h *EnrollmentHandler) Recommendation(c *gin.Context) {
	studentID, ok := h.actingStudent(c)
	if !ok {
		return
	}
	rec, err := h.service.Recommendation(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

type applyDropsRequest struct {
	CourseCodes []string `json:"course_codes" binding:"required,min=1"`
	Revision    int64    `json:"revision"`
}

// ApplyDrops godoc
// @Summary Drop courses from the selection
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body applyDropsRequest true "Drop payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollment/selection/drops [post]
func (h *EnrollmentHandler) ApplyDrops(c *gin.Context) {
	studentID, ok := h.actingStudent(c)
	if !ok {
		return
	}
	var req applyDropsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid drop payload"))
		return
	}
	codes := make([]string, 0, len(req.CourseCodes))
	for _, code := range req.CourseCodes {
		codes = append(codes, strings.ToUpper(code))
	}
	view, err := h.service.ApplyDrops(c.Request.Context(), studentID, codes, req.Revision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

type commitRequest struct {
	Revision int64 `json:"revision"`
}

// Commit godoc
// @Summary Finalize the selection
// @Description Validates the selection and writes enrollments, or routes new students to track selection
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body commitRequest true "Commit payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollment/selection/commit [post]
func (h *EnrollmentHandler) Commit(c *gin.Context) {
	studentID, ok := h.actingStudent(c)
	if !ok {
		return
	}
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid commit payload"))
		return
	}
	result, err := h.service.Commit(c.Request.Context(), studentID, req.Revision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List committed enrollments
// @Tags Enrollment
// @Produce json
// @Param student_id query string false "Filter by student (staff only)"
// @Param course_code query string false "Filter by course"
// @Param semester query string false "Filter by semester"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.EnrollmentFilter
	if claims.Role == models.RoleStudent {
		filter.StudentID = claims.StudentID
	} else {
		filter.StudentID = c.Query("student_id")
	}
	filter.CourseCode = strings.ToUpper(c.Query("course_code"))
	filter.Semester = c.Query("semester")
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Drop godoc
// @Summary Drop a committed enrollment
// @Tags Enrollment
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	actorStudentID := ""
	if claims.Role == models.RoleStudent {
		actorStudentID = claims.StudentID
		if actorStudentID == "" {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	if err := h.service.Drop(c.Request.Context(), c.Param("id"), actorStudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
