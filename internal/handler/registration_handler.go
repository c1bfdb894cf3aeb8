package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/service"
	appErrors "github.com/campushub/registration-api/pkg/errors"
	"github.com/campushub/registration-api/pkg/response"
)

type registrationService interface {
	Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*models.Decision, error)
	Unenroll(ctx context.Context, studentID, courseID string) (*models.Decision, error)
	MarkCompleted(ctx context.Context, studentID, courseID string) (*models.CompletedCourse, error)
	RemoveCompleted(ctx context.Context, id string) error
	PrerequisitesSatisfied(ctx context.Context, studentID, courseID string) (bool, []string, error)
	MyEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	MyCompletedCourses(ctx context.Context, studentID string) ([]models.CompletedCourseDetail, error)
	EnrollmentCount(ctx context.Context, studentID string) (int, int, error)
}

type studentResolver interface {
	FindByUser(ctx context.Context, userID string) (*models.Student, error)
}

type decisionObserver interface {
	ObserveDecision(decision *models.Decision)
}

// RegistrationHandler exposes the student-facing registration endpoints and
// the administrative completion marker.
type RegistrationHandler struct {
	service  registrationService
	students studentResolver
	metrics  decisionObserver
}

// NewRegistrationHandler builds a new handler. metrics may be nil.
func NewRegistrationHandler(service registrationService, students studentResolver, metrics decisionObserver) *RegistrationHandler {
	return &RegistrationHandler{service: service, students: students, metrics: metrics}
}

func (h *RegistrationHandler) currentStudent(c *gin.Context) (*models.Student, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	student, err := h.students.FindByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return student, true
}

// Enroll godoc
// @Summary Attempt to enroll in a course
// @Tags Registration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /registration/enroll [post]
func (h *RegistrationHandler) Enroll(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	decision, err := h.service.Enroll(c.Request.Context(), student.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveDecision(decision)
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// Unenroll godoc
// @Summary Leave a course
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course id"
// @Success 200 {object} response.Envelope
// @Router /registration/courses/{courseId} [delete]
func (h *RegistrationHandler) Unenroll(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	decision, err := h.service.Unenroll(c.Request.Context(), student.ID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// MyEnrollments godoc
// @Summary List own enrollments
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /registration/enrollments [get]
func (h *RegistrationHandler) MyEnrollments(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	enrollments, err := h.service.MyEnrollments(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// MyCompletedCourses godoc
// @Summary List own completed courses
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /registration/completed-courses [get]
func (h *RegistrationHandler) MyCompletedCourses(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	completed, err := h.service.MyCompletedCourses(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, completed, nil)
}

// EnrollmentCount godoc
// @Summary Own enrollment count against the ceiling
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /registration/enrollment-count [get]
func (h *RegistrationHandler) EnrollmentCount(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	count, limit, err := h.service.EnrollmentCount(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count, "limit": limit}, nil)
}

// CheckPrerequisites godoc
// @Summary Check own prerequisite standing for a course
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course id"
// @Success 200 {object} response.Envelope
// @Router /registration/courses/{courseId}/prerequisites [get]
func (h *RegistrationHandler) CheckPrerequisites(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	satisfied, missing, err := h.service.PrerequisitesSatisfied(c.Request.Context(), student.ID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"satisfied": satisfied, "missing": missing}, nil)
}

// MarkCompleted godoc
// @Summary Record a completed course for a student
// @Tags Registration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student id"
// @Param courseId path string true "Course id"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/completed-courses/{courseId} [post]
func (h *RegistrationHandler) MarkCompleted(c *gin.Context) {
	completed, err := h.service.MarkCompleted(c.Request.Context(), c.Param("id"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, completed)
}

// ListCompletedForStudent godoc
// @Summary List a student's completed courses
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/completed-courses [get]
func (h *RegistrationHandler) ListCompletedForStudent(c *gin.Context) {
	completed, err := h.service.MyCompletedCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, completed, nil)
}

// RemoveCompleted godoc
// @Summary Delete a completion record
// @Tags Registration
// @Security BearerAuth
// @Param id path string true "Completed course id"
// @Success 204
// @Router /completed-courses/{id} [delete]
func (h *RegistrationHandler) RemoveCompleted(c *gin.Context) {
	if err := h.service.RemoveCompleted(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
