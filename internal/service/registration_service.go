package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/repository"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type registrationEnrollmentRepository interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	CountByStudent(ctx context.Context, studentID string) (int, error)
	Admit(ctx context.Context, enrollment *models.Enrollment) error
	DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type registrationCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type prerequisiteChecker interface {
	MissingForStudent(ctx context.Context, courseID, studentID string) ([]string, error)
}

type completionRepository interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.CompletedCourse, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.CompletedCourseDetail, error)
	MarkCompleted(ctx context.Context, completed *models.CompletedCourse) (bool, error)
	Delete(ctx context.Context, id string) error
}

type registrationSettings interface {
	RegistrationOpen(ctx context.Context) (bool, error)
	MaxCoursesLimit(ctx context.Context) (int, error)
}

// EnrollRequest describes a registration attempt.
type EnrollRequest struct {
	CourseID string  `json:"course_id" validate:"required"`
	GroupID  *string `json:"group_id,omitempty"`
}

// RegistrationService runs the enrollment eligibility chain. Every gate must
// pass for admission; the first failing gate produces the denial. Denials are
// ordinary Decision values, never errors.
type RegistrationService struct {
	enrollments   registrationEnrollmentRepository
	courses       registrationCourseReader
	prerequisites prerequisiteChecker
	completions   completionRepository
	settings      registrationSettings
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(
	enrollments registrationEnrollmentRepository,
	courses registrationCourseReader,
	prerequisites prerequisiteChecker,
	completions completionRepository,
	settings registrationSettings,
	validate *validator.Validate,
	logger *zap.Logger,
) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		enrollments:   enrollments,
		courses:       courses,
		prerequisites: prerequisites,
		completions:   completions,
		settings:      settings,
		validator:     validate,
		logger:        logger,
	}
}

// Enroll evaluates the full eligibility chain for one student and course and,
// when every gate passes, admits the student as UNPAID. Gate order: global
// registration switch, duplicate enrollment, prior completion, per-student
// course ceiling, prerequisites, then capacity. The capacity gate runs inside
// the admission transaction so a concurrent admit cannot slip past it.
func (s *RegistrationService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.Decision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	open, err := s.settings.RegistrationOpen(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read registration switch")
	}
	if !open {
		return models.Deny(models.DenialRegistrationClosed), nil
	}

	if _, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, req.CourseID); err == nil {
		return models.Deny(models.DenialAlreadyEnrolled), nil
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	completed, err := s.completions.Exists(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check completion")
	}
	if completed {
		return models.Deny(models.DenialAlreadyCompleted), nil
	}

	limit, err := s.settings.MaxCoursesLimit(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read course limit")
	}
	current, err := s.enrollments.CountByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if current >= limit {
		decision := models.Deny(models.DenialCourseLimitReached)
		decision.CurrentCount = current
		decision.Limit = limit
		return decision, nil
	}

	missing, err := s.prerequisites.MissingForStudent(ctx, req.CourseID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisites")
	}
	if len(missing) > 0 {
		decision := models.Deny(models.DenialPrerequisitesNotMet)
		decision.MissingPrerequisites = missing
		return decision, nil
	}

	enrollment := &models.Enrollment{
		StudentID:     studentID,
		CourseID:      req.CourseID,
		GroupID:       req.GroupID,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	if err := s.enrollments.Admit(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			return models.Deny(models.DenialAlreadyEnrolled), nil
		case errors.Is(err, repository.ErrCourseFull):
			return models.Deny(models.DenialCourseFull), nil
		case errors.Is(err, repository.ErrGroupFull):
			return models.Deny(models.DenialGroupFull), nil
		case errors.Is(err, repository.ErrGroupNotFound):
			return models.Deny(models.DenialGroupNotFound), nil
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to admit enrollment")
		}
	}

	s.logger.Info("student admitted",
		zap.String("student_id", studentID),
		zap.String("course_id", req.CourseID))
	return models.Admit(enrollment.ID), nil
}

// Unenroll removes the student's active enrollment in a course. A missing
// enrollment is a denial, not an error.
func (s *RegistrationService) Unenroll(ctx context.Context, studentID, courseID string) (*models.Decision, error) {
	removed, err := s.enrollments.DeleteByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}
	if !removed {
		return models.Deny(models.DenialNotEnrolled), nil
	}
	s.logger.Info("student unenrolled",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID))
	return &models.Decision{Allowed: true}, nil
}

// MarkCompleted records a permanent completion for the student and drops any
// active enrollment in the same course.
func (s *RegistrationService) MarkCompleted(ctx context.Context, studentID, courseID string) (*models.CompletedCourse, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.completions.Exists(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check completion")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course already completed")
	}
	completed := &models.CompletedCourse{StudentID: studentID, CourseID: courseID}
	supersededEnrollment, err := s.completions.MarkCompleted(ctx, completed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}
	s.logger.Info("course completed",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Bool("enrollment_removed", supersededEnrollment))
	return completed, nil
}

// RemoveCompleted deletes a completion record, on behalf of an administrator.
func (s *RegistrationService) RemoveCompleted(ctx context.Context, id string) error {
	completed, err := s.completions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "completed course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion")
	}
	if err := s.completions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete completion")
	}
	s.logger.Info("completion removed",
		zap.String("completed_course_id", id),
		zap.String("student_id", completed.StudentID),
		zap.String("course_id", completed.CourseID))
	return nil
}

// PrerequisitesSatisfied reports whether the student may attempt the course's
// prerequisite gate, along with the missing course ids when not.
func (s *RegistrationService) PrerequisitesSatisfied(ctx context.Context, studentID, courseID string) (bool, []string, error) {
	missing, err := s.prerequisites.MissingForStudent(ctx, courseID, studentID)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisites")
	}
	return len(missing) == 0, missing, nil
}

// MyEnrollments returns the student's active enrollments with course context.
func (s *RegistrationService) MyEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// MyCompletedCourses returns the student's permanent completion records.
func (s *RegistrationService) MyCompletedCourses(ctx context.Context, studentID string) ([]models.CompletedCourseDetail, error) {
	completed, err := s.completions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completed courses")
	}
	return completed, nil
}

// EnrollmentCount returns how many active enrollments the student holds next
// to the configured ceiling.
func (s *RegistrationService) EnrollmentCount(ctx context.Context, studentID string) (int, int, error) {
	count, err := s.enrollments.CountByStudent(ctx, studentID)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	limit, err := s.settings.MaxCoursesLimit(ctx)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read course limit")
	}
	return count, limit, nil
}
