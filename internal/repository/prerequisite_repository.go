package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/registration-api/internal/models"
)

// PrerequisiteRepository handles the directed course → required-course edges.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository constructs the repository.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

// ListByCourse returns the prerequisite edges of a course with course info.
func (r *PrerequisiteRepository) ListByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	const query = `SELECT p.id, p.course_id, p.required_course_id, p.created_at,
        c.code AS required_course_code, c.name AS required_course_name
        FROM prerequisites p
        JOIN courses c ON c.id = p.required_course_id
        WHERE p.course_id = $1
        ORDER BY c.code ASC`
	var prerequisites []models.PrerequisiteDetail
	if err := r.db.SelectContext(ctx, &prerequisites, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prerequisites, nil
}

// FindByID returns a prerequisite edge by its ID.
func (r *PrerequisiteRepository) FindByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	const query = `SELECT id, course_id, required_course_id, created_at FROM prerequisites WHERE id = $1`
	var prerequisite models.Prerequisite
	if err := r.db.GetContext(ctx, &prerequisite, query, id); err != nil {
		return nil, err
	}
	return &prerequisite, nil
}

// EdgeExists checks whether the exact edge courseID → requiredCourseID exists.
func (r *PrerequisiteRepository) EdgeExists(ctx context.Context, courseID, requiredCourseID string) (bool, error) {
	const query = `SELECT 1 FROM prerequisites WHERE course_id = $1 AND required_course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, requiredCourseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check prerequisite edge: %w", err)
	}
	return true, nil
}

// Create persists a new prerequisite edge.
func (r *PrerequisiteRepository) Create(ctx context.Context, prerequisite *models.Prerequisite) error {
	if prerequisite.ID == "" {
		prerequisite.ID = uuid.NewString()
	}
	if prerequisite.CreatedAt.IsZero() {
		prerequisite.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO prerequisites (id, course_id, required_course_id, created_at)
        VALUES (:id, :course_id, :required_course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prerequisite); err != nil {
		return fmt.Errorf("create prerequisite: %w", err)
	}
	return nil
}

// Delete removes a prerequisite edge.
func (r *PrerequisiteRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM prerequisites WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	return nil
}

// MissingForStudent returns the prerequisite course ids of courseID that the
// student has not completed. An empty result means the prerequisite set is
// satisfied (vacuously so when the course has no prerequisites).
func (r *PrerequisiteRepository) MissingForStudent(ctx context.Context, courseID, studentID string) ([]string, error) {
	const query = `SELECT p.required_course_id FROM prerequisites p
        WHERE p.course_id = $1
        AND NOT EXISTS (
            SELECT 1 FROM completed_courses cc
            WHERE cc.student_id = $2 AND cc.course_id = p.required_course_id
        )`
	var missing []string
	if err := r.db.SelectContext(ctx, &missing, query, courseID, studentID); err != nil {
		return nil, fmt.Errorf("check missing prerequisites: %w", err)
	}
	return missing, nil
}
