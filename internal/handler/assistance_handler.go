package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/uniportal-api/internal/service"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
	"github.com/campusworks/uniportal-api/pkg/response"
)

// AssistanceHandler exposes the course assistance endpoint.
type AssistanceHandler struct {
	service *service.AssistanceService
}

// NewAssistanceHandler constructs an assistance handler.
func NewAssistanceHandler(svc *service.AssistanceService) *AssistanceHandler {
	return &AssistanceHandler{service: svc}
}

type assistanceRequest struct {
	Query string `json:"query" binding:"required"`
}

// Suggest godoc
// @Summary Course suggestions for a free-text question
// @Tags Assistance
// @Accept json
// @Produce json
// @Param payload body assistanceRequest true "Question payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /assistance/suggest [post]
func (h *AssistanceHandler) Suggest(c *gin.Context) {
	if h.service == nil || !h.service.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "assistance is disabled"))
		return
	}

	var req assistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	suggestions, err := h.service.Suggest(c.Request.Context(), req.Query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestions, nil)
}
