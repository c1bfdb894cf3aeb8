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

// GroupRepository handles persistence of course groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListByCourse returns the groups of a course with occupancy counts.
func (r *GroupRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseGroupDetail, error) {
	const query = `SELECT g.id, g.course_id, g.name, g.max_students, g.professor, g.time_slot, g.created_at,
        c.code AS course_code, c.name AS course_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.group_id = g.id) AS enrolled_count
        FROM course_groups g
        JOIN courses c ON c.id = g.course_id
        WHERE g.course_id = $1
        ORDER BY g.name ASC`
	var groups []models.CourseGroupDetail
	if err := r.db.SelectContext(ctx, &groups, query, courseID); err != nil {
		return nil, fmt.Errorf("list course groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.CourseGroup, error) {
	const query = `SELECT id, course_id, name, max_students, professor, time_slot, created_at FROM course_groups WHERE id = $1`
	var group models.CourseGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindDetailByID returns a group with occupancy information.
func (r *GroupRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseGroupDetail, error) {
	const query = `SELECT g.id, g.course_id, g.name, g.max_students, g.professor, g.time_slot, g.created_at,
        c.code AS course_code, c.name AS course_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.group_id = g.id) AS enrolled_count
        FROM course_groups g
        JOIN courses c ON c.id = g.course_id
        WHERE g.id = $1`
	var detail models.CourseGroupDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// NameExists checks whether a group name is already used within the course,
// optionally excluding one group row.
func (r *GroupRepository) NameExists(ctx context.Context, courseID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM course_groups WHERE course_id = $1 AND name = $2`
	args := []interface{}{courseID, name}
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
		return false, fmt.Errorf("check group name: %w", err)
	}
	return true, nil
}

// Create persists a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.CourseGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_groups (id, course_id, name, max_students, professor, time_slot, created_at)
        VALUES (:id, :course_id, :name, :max_students, :professor, :time_slot, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update rewrites a group's editable fields.
func (r *GroupRepository) Update(ctx context.Context, group *models.CourseGroup) error {
	const query = `UPDATE course_groups SET name = :name, max_students = :max_students,
        professor = :professor, time_slot = :time_slot
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// Delete removes a group. When detach is set, enrollments pointing at the
// group are kept on the course with their group reference cleared; otherwise
// the caller must have verified the group is empty.
func (r *GroupRepository) Delete(ctx context.Context, id string, detach bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if detach {
		if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET group_id = NULL WHERE group_id = $1`, id); err != nil {
			return fmt.Errorf("detach group enrollments: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group delete: %w", err)
	}
	return nil
}

// CountEnrollments returns how many enrollments reference the group.
func (r *GroupRepository) CountEnrollments(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE group_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count group enrollments: %w", err)
	}
	return count, nil
}
