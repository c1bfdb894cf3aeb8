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

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	UpdatePayment(ctx context.Context, id string, req service.UpdatePaymentRequest) error
	Delete(ctx context.Context, id string) error
	ResetStudent(ctx context.Context, studentID string) (int64, error)
	ResetAll(ctx context.Context) (int64, error)
}

// EnrollmentHandler exposes the administrative enrollment endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler builds a new handler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Filter by student"
// @Param course_id query string false "Filter by course"
// @Param group_id query string false "Filter by group"
// @Param payment_status query string false "PAID or UNPAID"
// @Param search query string false "Search student or course"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:     c.Query("student_id"),
		CourseID:      c.Query("course_id"),
		GroupID:       c.Query("group_id"),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Search:        c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	enrollments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// UpdatePayment godoc
// @Summary Update enrollment payment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment id"
// @Param payload body service.UpdatePaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/payment [put]
func (h *EnrollmentHandler) UpdatePayment(c *gin.Context) {
	var req service.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	if err := h.service.UpdatePayment(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"payment_status": req.PaymentStatus}, nil)
}

// Delete godoc
// @Summary Remove an enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment id"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResetStudent godoc
// @Summary Clear one student's enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments/reset [post]
func (h *EnrollmentHandler) ResetStudent(c *gin.Context) {
	removed, err := h.service.ResetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// ResetAll godoc
// @Summary Clear all enrollments for a new semester
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollments/reset [post]
func (h *EnrollmentHandler) ResetAll(c *gin.Context) {
	removed, err := h.service.ResetAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}
