package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/registration-api/internal/models"
)

// Admission outcomes surfaced by Admit. The registration service maps these
// to denial reasons; anything else is a storage failure.
var (
	ErrAlreadyEnrolled = errors.New("student already enrolled in course")
	ErrCourseFull      = errors.New("course capacity reached")
	ErrGroupFull       = errors.New("group capacity reached")
	ErrGroupNotFound   = errors.New("group does not belong to course")
)

// EnrollmentRepository handles persistence of active enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments with student and course context, filtered by the
// provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN courses c ON c.id = e.course_id
LEFT JOIN course_groups g ON g.id = e.group_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("e.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("e.payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.full_name ILIKE $%d OR s.student_number ILIKE $%d OR c.code ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.group_id, e.payment_status, e.created_at,
        s.full_name AS student_name, s.student_number,
        c.code AS course_code, c.name AS course_name,
        g.name AS group_name
        %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, group_id, payment_status, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndCourse returns the student's active enrollment in a course.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, group_id, payment_status, created_at
        FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns all active enrollments of one student with course
// context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.group_id, e.payment_status, e.created_at,
        s.full_name AS student_name, s.student_number,
        c.code AS course_code, c.name AS course_name,
        g.name AS group_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN course_groups g ON g.id = e.group_id
        WHERE e.student_id = $1
        ORDER BY e.created_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByStudent returns how many active enrollments a student holds.
func (r *EnrollmentRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return count, nil
}

// CountByCourse returns how many active enrollments a course holds.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// Admit inserts the enrollment while holding a row lock on the course, so the
// duplicate and capacity checks and the insert are one atomic admission.
// Concurrent admissions into the same course serialize on the lock; whichever
// takes the last seat wins and the rest observe a full course or group.
func (r *EnrollmentRepository) Admit(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var courseCapacity int
	if err := tx.GetContext(ctx, &courseCapacity,
		`SELECT max_students FROM courses WHERE id = $1 FOR UPDATE`, enrollment.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock course row: %w", err)
	}

	var duplicate int
	err = tx.GetContext(ctx, &duplicate,
		`SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`,
		enrollment.StudentID, enrollment.CourseID)
	if err == nil {
		return ErrAlreadyEnrolled
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check duplicate enrollment: %w", err)
	}

	if enrollment.GroupID != nil {
		var groupCapacity int
		err = tx.GetContext(ctx, &groupCapacity,
			`SELECT max_students FROM course_groups WHERE id = $1 AND course_id = $2`,
			*enrollment.GroupID, enrollment.CourseID)
		if err == sql.ErrNoRows {
			return ErrGroupNotFound
		}
		if err != nil {
			return fmt.Errorf("load group capacity: %w", err)
		}

		var groupCount int
		if err := tx.GetContext(ctx, &groupCount,
			`SELECT COUNT(*) FROM enrollments WHERE group_id = $1`, *enrollment.GroupID); err != nil {
			return fmt.Errorf("count group enrollments: %w", err)
		}
		if groupCount >= groupCapacity {
			return ErrGroupFull
		}
	} else {
		var courseCount int
		if err := tx.GetContext(ctx, &courseCount,
			`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, enrollment.CourseID); err != nil {
			return fmt.Errorf("count course enrollments: %w", err)
		}
		if courseCount >= courseCapacity {
			return ErrCourseFull
		}
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO enrollments (id, student_id, course_id, group_id, payment_status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.GroupID,
		enrollment.PaymentStatus, enrollment.CreatedAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit admission: %w", err)
	}
	return nil
}

// Delete removes an enrollment by its ID.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// DeleteByStudentAndCourse removes the student's enrollment in a course and
// reports whether a row was removed.
func (r *EnrollmentRepository) DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`
	result, err := r.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteByStudent clears every enrollment of one student.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, fmt.Errorf("reset student enrollments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset student enrollments rows affected: %w", err)
	}
	return affected, nil
}

// DeleteAll clears every enrollment. Used by the semester reset.
func (r *EnrollmentRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollments`)
	if err != nil {
		return 0, fmt.Errorf("reset enrollments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset enrollments rows affected: %w", err)
	}
	return affected, nil
}

// UpdatePaymentStatus flips an enrollment's payment flag.
func (r *EnrollmentRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE enrollments SET payment_status = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
