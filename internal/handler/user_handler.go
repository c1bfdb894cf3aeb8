package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/service"
	appErrors "github.com/campushub/registration-api/pkg/errors"
	"github.com/campushub/registration-api/pkg/response"
)

type userService interface {
	ListSupervisors(ctx context.Context, filter models.UserFilter) ([]models.UserInfo, *models.Pagination, error)
	CreateSupervisor(ctx context.Context, req service.CreateSupervisorRequest) (*models.UserInfo, error)
	UpdateSupervisor(ctx context.Context, id string, req service.UpdateSupervisorRequest) (*models.UserInfo, error)
	ResetPassword(ctx context.Context, id string, req service.ResetPasswordRequest) error
	DeleteSupervisor(ctx context.Context, id string) error
}

// UserHandler exposes financial supervisor account management.
type UserHandler struct {
	service userService
}

// NewUserHandler builds a new handler.
func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

// ListSupervisors godoc
// @Summary List financial supervisor accounts
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /users/supervisors [get]
func (h *UserHandler) ListSupervisors(c *gin.Context) {
	var filter models.UserFilter
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	supervisors, pagination, err := h.service.ListSupervisors(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, supervisors, pagination)
}

// CreateSupervisor godoc
// @Summary Create a financial supervisor account
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateSupervisorRequest true "Supervisor payload"
// @Success 201 {object} response.Envelope
// @Router /users/supervisors [post]
func (h *UserHandler) CreateSupervisor(c *gin.Context) {
	var req service.CreateSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid supervisor payload"))
		return
	}
	supervisor, err := h.service.CreateSupervisor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, supervisor)
}

// UpdateSupervisor godoc
// @Summary Rename a supervisor account
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param payload body service.UpdateSupervisorRequest true "Supervisor payload"
// @Success 200 {object} response.Envelope
// @Router /users/supervisors/{id} [put]
func (h *UserHandler) UpdateSupervisor(c *gin.Context) {
	var req service.UpdateSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid supervisor payload"))
		return
	}
	supervisor, err := h.service.UpdateSupervisor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, supervisor, nil)
}

// ResetPassword godoc
// @Summary Reset a supervisor's password
// @Tags Users
// @Accept json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param payload body service.ResetPasswordRequest true "Password payload"
// @Success 204
// @Router /users/supervisors/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteSupervisor godoc
// @Summary Delete a supervisor account
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 204
// @Router /users/supervisors/{id} [delete]
func (h *UserHandler) DeleteSupervisor(c *gin.Context) {
	if err := h.service.DeleteSupervisor(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
