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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	NumberExists(ctx context.Context, studentNumber, registrationNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	DeleteCascade(ctx context.Context, studentID string, userID *string) error
}

type studentUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type studentDepartmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type studentEnrollmentCounter interface {
	CountByStudent(ctx context.Context, studentID string) (int, error)
}

// CreateStudentRequest describes student creation payload. When Password is
// empty the student number doubles as the initial password.
type CreateStudentRequest struct {
	StudentNumber      string  `json:"student_number" validate:"required"`
	RegistrationNumber string  `json:"registration_number" validate:"required"`
	FullName           string  `json:"full_name" validate:"required"`
	DepartmentID       *string `json:"department_id,omitempty"`
	Semester           string  `json:"semester,omitempty"`
	GroupLabel         *string `json:"group_label,omitempty"`
	Password           string  `json:"password,omitempty"`
}

// UpdateStudentRequest describes student update payload.
type UpdateStudentRequest struct {
	StudentNumber      string  `json:"student_number" validate:"required"`
	RegistrationNumber string  `json:"registration_number" validate:"required"`
	FullName           string  `json:"full_name" validate:"required"`
	DepartmentID       *string `json:"department_id,omitempty"`
	Semester           string  `json:"semester,omitempty"`
	GroupLabel         *string `json:"group_label,omitempty"`
}

// StudentService manages student records and their login credentials. A
// student logs in with the registration number as username.
type StudentService struct {
	repo        studentRepository
	users       studentUserRepository
	departments studentDepartmentReader
	enrollments studentEnrollmentCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, users studentUserRepository, departments studentDepartmentReader, enrollments studentEnrollmentCounter, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		users:       users,
		departments: departments,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with department and credential context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// FindByUser resolves the student record attached to a login credential.
func (s *StudentService) FindByUser(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student and provisions its login credential in one
// pass. The registration number becomes the username.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	taken, err := s.repo.NumberExists(ctx, req.StudentNumber, req.RegistrationNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student numbers")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number or registration number already exists")
	}
	if req.DepartmentID != nil {
		if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
	}
	if _, err := s.users.FindByUsername(ctx, req.RegistrationNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	password := req.Password
	if password == "" {
		password = req.StudentNumber
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Username:     req.RegistrationNumber,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create credential")
	}

	student := &models.Student{
		StudentNumber:      req.StudentNumber,
		RegistrationNumber: req.RegistrationNumber,
		UserID:             &user.ID,
		FullName:           req.FullName,
		DepartmentID:       req.DepartmentID,
		Semester:           req.Semester,
		GroupLabel:         req.GroupLabel,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created",
		zap.String("student_id", student.ID),
		zap.String("registration_number", student.RegistrationNumber))
	return student, nil
}

// Update rewrites a student's editable fields.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	taken, err := s.repo.NumberExists(ctx, req.StudentNumber, req.RegistrationNumber, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student numbers")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number or registration number already exists")
	}
	student.StudentNumber = req.StudentNumber
	student.RegistrationNumber = req.RegistrationNumber
	student.FullName = req.FullName
	student.DepartmentID = req.DepartmentID
	student.Semester = req.Semester
	student.GroupLabel = req.GroupLabel
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student with everything hanging off it unless the student
// still has active enrollments and force is unset.
func (s *StudentService) Delete(ctx context.Context, id string, force bool) error {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	count, err := s.enrollments.CountByStudent(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 && !force {
		return appErrors.Clone(appErrors.ErrDependentRecords, "student has active enrollments")
	}
	if err := s.repo.DeleteCascade(ctx, id, student.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id), zap.Bool("forced", force))
	return nil
}
