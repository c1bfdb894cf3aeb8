package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/registration-api/internal/models"
)

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
LEFT JOIN departments d ON d.id = s.department_id
LEFT JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.full_name ILIKE $%d OR s.student_number ILIKE $%d OR s.registration_number ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":      "s.full_name",
		"student_number": "s.student_number",
		"created_at":     "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.student_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.student_number, s.registration_number, s.user_id, s.full_name,
        s.department_id, s.semester, s.group_label, s.created_at,
        d.name AS department_name, u.username AS username
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, student_number, registration_number, user_id, full_name, department_id, semester, group_label, created_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID returns a student with department and credential context.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.student_number, s.registration_number, s.user_id, s.full_name,
        s.department_id, s.semester, s.group_label, s.created_at,
        d.name AS department_name, u.username AS username
        FROM students s
        LEFT JOIN departments d ON d.id = s.department_id
        LEFT JOIN users u ON u.id = s.user_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID returns the student linked to a login credential.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, student_number, registration_number, user_id, full_name, department_id, semester, group_label, created_at
        FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRegistrationNumber returns a student by its unique registration number.
func (r *StudentRepository) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Student, error) {
	const query = `SELECT id, student_number, registration_number, user_id, full_name, department_id, semester, group_label, created_at
        FROM students WHERE registration_number = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, registrationNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// NumberExists checks whether a student number or registration number is
// already taken, optionally excluding one student row.
func (r *StudentRepository) NumberExists(ctx context.Context, studentNumber, registrationNumber, excludeID string) (bool, error) {
	query := `SELECT 1 FROM students WHERE (student_number = $1 OR registration_number = $2)`
	args := []interface{}{studentNumber, registrationNumber}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student numbers: %w", err)
	}
	return true, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, student_number, registration_number, user_id, full_name, department_id, semester, group_label, created_at)
        VALUES (:id, :student_number, :registration_number, :user_id, :full_name, :department_id, :semester, :group_label, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update rewrites a student's editable fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET student_number = :student_number, registration_number = :registration_number,
        full_name = :full_name, department_id = :department_id, semester = :semester, group_label = :group_label
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// DeleteCascade removes the student together with its enrollments, completed
// courses and login credential in a single transaction.
func (r *StudentRepository) DeleteCascade(ctx context.Context, studentID string, userID *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM completed_courses WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student completed courses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if userID != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, *userID); err != nil {
			return fmt.Errorf("delete student credential: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}
