package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	UpdateUsername(ctx context.Context, id, username string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// CreateSupervisorRequest describes a new financial supervisor account.
type CreateSupervisorRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateSupervisorRequest renames a supervisor account.
type UpdateSupervisorRequest struct {
	Username string `json:"username" validate:"required,min=3"`
}

// ResetPasswordRequest describes an administrative password reset.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserService manages financial supervisor accounts. Student credentials are
// provisioned through StudentService and the admin account is seeded outside
// the API.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// ListSupervisors returns the financial supervisor accounts.
func (s *UserService) ListSupervisors(ctx context.Context, filter models.UserFilter) ([]models.UserInfo, *models.Pagination, error) {
	role := models.RoleFinancialSupervisor
	filter.Role = &role
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisors")
	}
	infos := make([]models.UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, models.UserInfo{ID: user.ID, Username: user.Username, Role: user.Role})
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return infos, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateSupervisor provisions a financial supervisor account.
func (s *UserService) CreateSupervisor(ctx context.Context, req CreateSupervisorRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supervisor payload")
	}
	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         models.RoleFinancialSupervisor,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create supervisor")
	}
	s.logger.Info("supervisor created", zap.String("user_id", user.ID))
	return &models.UserInfo{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// UpdateSupervisor renames a supervisor account.
func (s *UserService) UpdateSupervisor(ctx context.Context, id string, req UpdateSupervisorRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supervisor payload")
	}
	user, err := s.supervisor(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Username != req.Username {
		if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
		}
		if err := s.repo.UpdateUsername(ctx, user.ID, req.Username); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update supervisor")
		}
	}
	s.logger.Info("supervisor updated", zap.String("user_id", id))
	return &models.UserInfo{ID: user.ID, Username: req.Username, Role: user.Role}, nil
}

// ResetPassword sets a new password for a supervisor account.
func (s *UserService) ResetPassword(ctx context.Context, id string, req ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	user, err := s.supervisor(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	s.logger.Info("supervisor password reset", zap.String("user_id", id))
	return nil
}

// DeleteSupervisor removes a supervisor account.
func (s *UserService) DeleteSupervisor(ctx context.Context, id string) error {
	user, err := s.supervisor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete supervisor")
	}
	s.logger.Info("supervisor deleted", zap.String("user_id", id))
	return nil
}

func (s *UserService) supervisor(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleFinancialSupervisor {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
	}
	return user, nil
}
