package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type groupRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseGroupDetail, error)
	FindByID(ctx context.Context, id string) (*models.CourseGroup, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseGroupDetail, error)
	NameExists(ctx context.Context, courseID, name, excludeID string) (bool, error)
	Create(ctx context.Context, group *models.CourseGroup) error
	Update(ctx context.Context, group *models.CourseGroup) error
	Delete(ctx context.Context, id string, detach bool) error
	CountEnrollments(ctx context.Context, id string) (int, error)
}

type groupCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	RecomputeCapacity(ctx context.Context, courseID string) (int, error)
}

// CreateGroupRequest describes group creation payload.
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	MaxStudents int     `json:"max_students" validate:"required,min=1"`
	Professor   *string `json:"professor,omitempty"`
	TimeSlot    *string `json:"time_slot,omitempty"`
}

// UpdateGroupRequest describes group update payload.
type UpdateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	MaxStudents int     `json:"max_students" validate:"required,min=1"`
	Professor   *string `json:"professor,omitempty"`
	TimeSlot    *string `json:"time_slot,omitempty"`
}

// GroupService manages course groups. Every write that can change a group's
// capacity re-derives the owning course's capacity afterwards, so the course
// figure never drifts from the sum of its groups.
type GroupService struct {
	repo      groupRepository
	courses   groupCourseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(repo groupRepository, courses groupCourseRepository, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// ListByCourse returns the groups of a course with occupancy.
func (s *GroupService) ListByCourse(ctx context.Context, courseID string) ([]models.CourseGroupDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	groups, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	for i := range groups {
		if groups[i].MaxStudents > 0 {
			groups[i].FillPercentage = float64(groups[i].EnrolledCount) / float64(groups[i].MaxStudents) * 100
		}
	}
	return groups, nil
}

// Get returns one group with occupancy.
func (s *GroupService) Get(ctx context.Context, id string) (*models.CourseGroupDetail, error) {
	group, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group.MaxStudents > 0 {
		group.FillPercentage = float64(group.EnrolledCount) / float64(group.MaxStudents) * 100
	}
	return group, nil
}

// Create adds a group to a course and re-derives the course capacity.
func (s *GroupService) Create(ctx context.Context, courseID string, req CreateGroupRequest) (*models.CourseGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	taken, err := s.repo.NameExists(ctx, courseID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "group name already used in this course")
	}
	group := &models.CourseGroup{
		CourseID:    courseID,
		Name:        req.Name,
		MaxStudents: req.MaxStudents,
		Professor:   req.Professor,
		TimeSlot:    req.TimeSlot,
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	s.recompute(ctx, courseID)
	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("course_id", courseID))
	return group, nil
}

// Update rewrites a group and re-derives the course capacity.
func (s *GroupService) Update(ctx context.Context, id string, req UpdateGroupRequest) (*models.CourseGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if req.Name != group.Name {
		taken, err := s.repo.NameExists(ctx, group.CourseID, req.Name, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "group name already used in this course")
		}
	}
	group.Name = req.Name
	group.MaxStudents = req.MaxStudents
	group.Professor = req.Professor
	group.TimeSlot = req.TimeSlot
	if err := s.repo.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	s.recompute(ctx, group.CourseID)
	return group, nil
}

// Delete removes a group. A non-empty group is only removed with force set;
// its enrollments then stay on the course without a group. The course
// capacity is re-derived either way.
func (s *GroupService) Delete(ctx context.Context, id string, force bool) error {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	count, err := s.repo.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count group enrollments")
	}
	if count > 0 && !force {
		return appErrors.Clone(appErrors.ErrDependentRecords, "group has active enrollments")
	}
	if err := s.repo.Delete(ctx, id, count > 0); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	s.recompute(ctx, group.CourseID)
	s.logger.Info("group deleted", zap.String("group_id", id), zap.Bool("forced", force))
	return nil
}

func (s *GroupService) recompute(ctx context.Context, courseID string) {
	if _, err := s.courses.RecomputeCapacity(ctx, courseID); err != nil {
		s.logger.Warn("failed to recompute course capacity",
			zap.String("course_id", courseID), zap.Error(err))
	}
}
