package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/registration-api/internal/models"
)

// DepartmentRepository handles persistence of departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns all departments with dependent-record counts.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.DepartmentDetail, error) {
	const query = `SELECT d.id, d.name, d.created_at,
        (SELECT COUNT(*) FROM students s WHERE s.department_id = d.id) AS student_count,
        (SELECT COUNT(*) FROM courses c WHERE c.department_id = d.id) AS course_count
        FROM departments d ORDER BY d.name ASC`
	var departments []models.DepartmentDetail
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByID returns a department by its ID.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments WHERE id = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	return &department, nil
}

// FindByName returns a department by its unique name.
func (r *DepartmentRepository) FindByName(ctx context.Context, name string) (*models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments WHERE name = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, name); err != nil {
		return nil, err
	}
	return &department, nil
}

// Create persists a new department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	if department.CreatedAt.IsZero() {
		department.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update renames a department.
func (r *DepartmentRepository) Update(ctx context.Context, id, name string) error {
	const query = `UPDATE departments SET name = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department row.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM departments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

// CountStudents returns how many students reference the department.
func (r *DepartmentRepository) CountStudents(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE department_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count department students: %w", err)
	}
	return count, nil
}

// CountCourses returns how many courses reference the department.
func (r *DepartmentRepository) CountCourses(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE department_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count department courses: %w", err)
	}
	return count, nil
}
