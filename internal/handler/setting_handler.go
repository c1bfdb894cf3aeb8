package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
	"github.com/campushub/registration-api/pkg/response"
)

type settingService interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Update(ctx context.Context, key, value string) (*models.Setting, error)
	RegistrationOpen(ctx context.Context) (bool, error)
	MaxCoursesLimit(ctx context.Context) (int, error)
	AutoLogout(ctx context.Context) (bool, int, error)
}

// UpdateSettingRequest carries the new raw value for a setting key.
type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

// SettingHandler exposes the admin settings surface plus the public policy
// endpoints clients poll before login.
type SettingHandler struct {
	service settingService
}

// NewSettingHandler builds a new handler.
func NewSettingHandler(service settingService) *SettingHandler {
	return &SettingHandler{service: service}
}

// List godoc
// @Summary List all settings
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingHandler) List(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Get godoc
// @Summary Get one setting
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [get]
func (h *SettingHandler) Get(c *gin.Context) {
	setting, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// Update godoc
// @Summary Update a setting
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Param payload body UpdateSettingRequest true "Setting payload"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [put]
func (h *SettingHandler) Update(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}
	setting, err := h.service.Update(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// RegistrationStatus godoc
// @Summary Whether registration is currently open
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/registration-status [get]
func (h *SettingHandler) RegistrationStatus(c *gin.Context) {
	open, err := h.service.RegistrationOpen(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"registration_open": open}, nil)
}

// MaxCourses godoc
// @Summary Current per-student course ceiling
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/max-courses [get]
func (h *SettingHandler) MaxCourses(c *gin.Context) {
	limit, err := h.service.MaxCoursesLimit(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"max_courses_limit": limit}, nil)
}

// AutoLogoutPolicy godoc
// @Summary Idle-session auto logout policy
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/auto-logout [get]
func (h *SettingHandler) AutoLogoutPolicy(c *gin.Context) {
	enabled, timeout, err := h.service.AutoLogout(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"enabled": enabled, "timeout_minutes": timeout}, nil)
}
