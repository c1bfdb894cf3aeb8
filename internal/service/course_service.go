package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	RecomputeCapacity(ctx context.Context, courseID string) (int, error)
	Statistics(ctx context.Context) ([]models.CourseStatistics, error)
}

type coursePrerequisiteRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error)
	FindByID(ctx context.Context, id string) (*models.Prerequisite, error)
	EdgeExists(ctx context.Context, courseID, requiredCourseID string) (bool, error)
	Create(ctx context.Context, prerequisite *models.Prerequisite) error
	Delete(ctx context.Context, id string) error
}

type courseEnrollmentCounter interface {
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type courseDepartmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	DepartmentID *string `json:"department_id,omitempty"`
	Semester     *string `json:"semester,omitempty"`
}

// UpdateCourseRequest describes course update payload.
type UpdateCourseRequest struct {
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	DepartmentID *string `json:"department_id,omitempty"`
	Semester     *string `json:"semester,omitempty"`
}

// AddPrerequisiteRequest describes a new prerequisite edge.
type AddPrerequisiteRequest struct {
	RequiredCourseID string `json:"required_course_id" validate:"required"`
}

// CourseService manages courses, their prerequisite edges and the derived
// capacity.
type CourseService struct {
	repo          courseRepository
	prerequisites coursePrerequisiteRepository
	enrollments   courseEnrollmentCounter
	departments   courseDepartmentReader
	defaultCap    int
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewCourseService constructs CourseService. defaultCapacity seeds new
// courses until their first group fixes the derived value.
func NewCourseService(repo courseRepository, prerequisites coursePrerequisiteRepository, enrollments courseEnrollmentCounter, departments courseDepartmentReader, defaultCapacity int, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCapacity <= 0 {
		defaultCapacity = 30
	}
	return &CourseService{
		repo:          repo,
		prerequisites: prerequisites,
		enrollments:   enrollments,
		departments:   departments,
		defaultCap:    defaultCapacity,
		validator:     validate,
		logger:        logger,
	}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course. The capacity starts at the configured
// default and becomes group-derived as soon as the first group is created.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if req.DepartmentID != nil {
		if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
	}
	course := &models.Course{
		Code:         req.Code,
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		Semester:     req.Semester,
		MaxStudents:  s.defaultCap,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update rewrites a course's editable fields.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if req.Code != course.Code {
		if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
		}
	}
	course.Code = req.Code
	course.Name = req.Name
	course.DepartmentID = req.DepartmentID
	course.Semester = req.Semester
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course once no active enrollments depend on it. The
// repository clears prerequisite edges in both directions and the course's
// groups in the same transaction.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	count, err := s.enrollments.CountByCourse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrDependentRecords, "course has active enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// RecomputeCapacity re-derives the course capacity from its groups.
func (s *CourseService) RecomputeCapacity(ctx context.Context, id string) (int, error) {
	capacity, err := s.repo.RecomputeCapacity(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute capacity")
	}
	return capacity, nil
}

// Statistics returns per-course occupancy figures.
func (s *CourseService) Statistics(ctx context.Context) ([]models.CourseStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course statistics")
	}
	for i := range stats {
		if stats[i].MaxStudents > 0 {
			stats[i].FillPercentage = float64(stats[i].EnrolledCount) / float64(stats[i].MaxStudents) * 100
		}
	}
	return stats, nil
}

// ListPrerequisites returns the course's prerequisite edges.
func (s *CourseService) ListPrerequisites(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	prerequisites, err := s.prerequisites.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prerequisites")
	}
	return prerequisites, nil
}

// AddPrerequisite creates a prerequisite edge. Self-loops, duplicate edges
// and direct mutual edges are rejected; longer cycles are not detected.
func (s *CourseService) AddPrerequisite(ctx context.Context, courseID string, req AddPrerequisiteRequest) (*models.Prerequisite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if courseID == req.RequiredCourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot be its own prerequisite")
	}
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.repo.FindByID(ctx, req.RequiredCourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "required course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load required course")
	}
	exists, err := s.prerequisites.EdgeExists(ctx, courseID, req.RequiredCourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite already exists")
	}
	reverse, err := s.prerequisites.EdgeExists(ctx, req.RequiredCourseID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reverse prerequisite")
	}
	if reverse {
		return nil, appErrors.Clone(appErrors.ErrConflict, "courses cannot require each other")
	}
	prerequisite := &models.Prerequisite{CourseID: courseID, RequiredCourseID: req.RequiredCourseID}
	if err := s.prerequisites.Create(ctx, prerequisite); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create prerequisite")
	}
	s.logger.Info("prerequisite added",
		zap.String("course_id", courseID),
		zap.String("required_course_id", req.RequiredCourseID))
	return prerequisite, nil
}

// RemovePrerequisite deletes a prerequisite edge belonging to the course.
func (s *CourseService) RemovePrerequisite(ctx context.Context, courseID, prerequisiteID string) error {
	prerequisite, err := s.prerequisites.FindByID(ctx, prerequisiteID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite")
	}
	if prerequisite.CourseID != courseID {
		return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
	}
	if err := s.prerequisites.Delete(ctx, prerequisiteID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete prerequisite")
	}
	return nil
}
