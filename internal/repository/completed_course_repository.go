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

// CompletedCourseRepository handles the permanent completion records.
type CompletedCourseRepository struct {
	db *sqlx.DB
}

// NewCompletedCourseRepository constructs the repository.
func NewCompletedCourseRepository(db *sqlx.DB) *CompletedCourseRepository {
	return &CompletedCourseRepository{db: db}
}

// ListByStudent returns a student's completed courses with course identity.
func (r *CompletedCourseRepository) ListByStudent(ctx context.Context, studentID string) ([]models.CompletedCourseDetail, error) {
	const query = `SELECT cc.id, cc.student_id, cc.course_id, cc.completed_at,
        c.code AS course_code, c.name AS course_name
        FROM completed_courses cc
        JOIN courses c ON c.id = cc.course_id
        WHERE cc.student_id = $1
        ORDER BY cc.completed_at DESC`
	var completed []models.CompletedCourseDetail
	if err := r.db.SelectContext(ctx, &completed, query, studentID); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	return completed, nil
}

// FindByID returns a completion record by its ID.
func (r *CompletedCourseRepository) FindByID(ctx context.Context, id string) (*models.CompletedCourse, error) {
	const query = `SELECT id, student_id, course_id, completed_at FROM completed_courses WHERE id = $1`
	var completed models.CompletedCourse
	if err := r.db.GetContext(ctx, &completed, query, id); err != nil {
		return nil, err
	}
	return &completed, nil
}

// Exists checks whether the student already completed the course.
func (r *CompletedCourseRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM completed_courses WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check completed course: %w", err)
	}
	return true, nil
}

// MarkCompleted records the completion and removes any active enrollment for
// the same (student, course) pair in one transaction. Returns whether an
// enrollment row was removed.
func (r *CompletedCourseRepository) MarkCompleted(ctx context.Context, completed *models.CompletedCourse) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin completion: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if completed.ID == "" {
		completed.ID = uuid.NewString()
	}
	if completed.CompletedAt.IsZero() {
		completed.CompletedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO completed_courses (id, student_id, course_id, completed_at) VALUES ($1, $2, $3, $4)`,
		completed.ID, completed.StudentID, completed.CourseID, completed.CompletedAt); err != nil {
		return false, fmt.Errorf("insert completed course: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`,
		completed.StudentID, completed.CourseID)
	if err != nil {
		return false, fmt.Errorf("remove superseded enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove superseded enrollment rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit completion: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a completion record.
func (r *CompletedCourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM completed_courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete completed course: %w", err)
	}
	return nil
}
