package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
	DeleteByStudent(ctx context.Context, studentID string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// UpdatePaymentRequest flips an enrollment's payment flag.
type UpdatePaymentRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" validate:"required"`
}

// EnrollmentService covers the administrative side of enrollments: listing,
// payment tracking, removals and the semester reset. Student-facing
// registration lives in RegistrationService.
type EnrollmentService struct {
	repo      enrollmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdatePayment flips the payment status of one enrollment.
func (s *EnrollmentService) UpdatePayment(ctx context.Context, id string, req UpdatePaymentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.PaymentStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "payment status must be PAID or UNPAID")
	}
	if err := s.repo.UpdatePaymentStatus(ctx, id, req.PaymentStatus); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	s.logger.Info("payment status updated",
		zap.String("enrollment_id", id),
		zap.String("status", string(req.PaymentStatus)))
	return nil
}

// Delete removes one enrollment by id, on behalf of an administrator.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.logger.Info("enrollment removed", zap.String("enrollment_id", id))
	return nil
}

// ResetStudent clears every active enrollment of one student.
func (s *EnrollmentService) ResetStudent(ctx context.Context, studentID string) (int64, error) {
	removed, err := s.repo.DeleteByStudent(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset student enrollments")
	}
	s.logger.Info("student enrollments reset",
		zap.String("student_id", studentID),
		zap.Int64("removed", removed))
	return removed, nil
}

// ResetAll clears every active enrollment for a new semester. Completed
// courses are untouched.
func (s *EnrollmentService) ResetAll(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset enrollments")
	}
	s.logger.Warn("all enrollments reset", zap.Int64("removed", removed))
	return removed, nil
}
