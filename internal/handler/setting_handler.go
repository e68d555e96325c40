package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/uniportal-api/internal/service"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
	"github.com/campusworks/uniportal-api/pkg/response"
)

// SettingHandler exposes the enrollment window configuration.
type SettingHandler struct {
	service *service.SettingService
}

// NewSettingHandler constructs a setting handler.
func NewSettingHandler(svc *service.SettingService) *SettingHandler {
	return &SettingHandler{service: svc}
}

// Current godoc
// @Summary Current enrollment window
// @Description Returns the active window with countdown and credit limit
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/enrollment [get]
func (h *SettingHandler) Current(c *gin.Context) {
	view, err := h.service.View(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Upsert godoc
// @Summary Configure the enrollment window
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body service.UpsertSettingRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings/enrollment [put]
func (h *SettingHandler) Upsert(c *gin.Context) {
	var req service.UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
