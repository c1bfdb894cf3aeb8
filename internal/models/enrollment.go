package models

import "time"

// PaymentStatus tracks whether an enrollment's fee has been settled.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "PAID"
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
)

// Valid reports whether the value is a recognised payment status.
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPaid || s == PaymentStatusUnpaid
}

// Enrollment links a student to a course, optionally to one of its groups.
// A row's existence means the registration is active; at most one row per
// (student, course) pair.
type Enrollment struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	CourseID      string        `db:"course_id" json:"course_id"`
	GroupID       *string       `db:"group_id" json:"group_id,omitempty"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with student, course and group info.
type EnrollmentDetail struct {
	Enrollment
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentNumber string  `db:"student_number" json:"student_number"`
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseName    string  `db:"course_name" json:"course_name"`
	GroupName     *string `db:"group_name" json:"group_name,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID     string
	CourseID      string
	GroupID       string
	PaymentStatus PaymentStatus
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// CompletedCourse marks a course as permanently finished for a student.
type CompletedCourse struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// CompletedCourseDetail enriches CompletedCourse with course identity.
type CompletedCourseDetail struct {
	CompletedCourse
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}
