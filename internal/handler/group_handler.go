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

type groupService interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseGroupDetail, error)
	Get(ctx context.Context, id string) (*models.CourseGroupDetail, error)
	Create(ctx context.Context, courseID string, req service.CreateGroupRequest) (*models.CourseGroup, error)
	Update(ctx context.Context, id string, req service.UpdateGroupRequest) (*models.CourseGroup, error)
	Delete(ctx context.Context, id string, force bool) error
}

// GroupHandler exposes course group endpoints.
type GroupHandler struct {
	service groupService
}

// NewGroupHandler builds a new handler.
func NewGroupHandler(service groupService) *GroupHandler {
	return &GroupHandler{service: service}
}

// ListByCourse godoc
// @Summary List groups of a course
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course id"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/groups [get]
func (h *GroupHandler) ListByCourse(c *gin.Context) {
	groups, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get group by id
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Create godoc
// @Summary Create group under a course
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course id"
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}
	group, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Update group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group id"
// @Param payload body service.UpdateGroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	var req service.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}
	group, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Delete group
// @Tags Groups
// @Security BearerAuth
// @Param id path string true "Group id"
// @Param force query bool false "Detach enrollments and delete anyway"
// @Success 204
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), force); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
