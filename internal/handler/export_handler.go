package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/service"
	"github.com/campushub/registration-api/pkg/response"
)

type exportService interface {
	Enrollments(ctx context.Context, filter models.EnrollmentFilter, format service.ExportFormat) (*service.ExportResult, error)
	CourseStatistics(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler serves downloadable enrollment and course reports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// Enrollments godoc
// @Summary Export the enrollment register
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Param course_id query string false "Filter by course"
// @Param payment_status query string false "PAID or UNPAID"
// @Success 200 {file} file
// @Router /exports/enrollments [get]
func (h *ExportHandler) Enrollments(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:     c.Query("student_id"),
		CourseID:      c.Query("course_id"),
		GroupID:       c.Query("group_id"),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Search:        c.Query("search"),
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.Enrollments(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

// CourseStatistics godoc
// @Summary Export course occupancy statistics
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /exports/course-statistics [get]
func (h *ExportHandler) CourseStatistics(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.CourseStatistics(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}
