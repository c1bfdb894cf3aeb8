package models

import "time"

// Course represents an offered course. MaxStudents is derived: once the
// course has groups it always equals the sum of its groups' capacities.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	Semester     *string   `db:"semester" json:"semester,omitempty"`
	MaxStudents  int       `db:"max_students" json:"max_students"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CourseDetail extends Course with department context.
type CourseDetail struct {
	Course
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	Search       string
	DepartmentID string
	Semester     string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CourseStatistics summarises enrollment pressure for a course.
type CourseStatistics struct {
	CourseID       string  `db:"course_id" json:"course_id"`
	Code           string  `db:"code" json:"code"`
	Name           string  `db:"name" json:"name"`
	MaxStudents    int     `db:"max_students" json:"max_students"`
	EnrolledCount  int     `db:"enrolled_count" json:"enrolled_count"`
	FillPercentage float64 `json:"fill_percentage"`
}

// Prerequisite is a directed edge: CourseID requires RequiredCourseID.
type Prerequisite struct {
	ID               string    `db:"id" json:"id"`
	CourseID         string    `db:"course_id" json:"course_id"`
	RequiredCourseID string    `db:"required_course_id" json:"required_course_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// PrerequisiteDetail enriches Prerequisite with the required course's identity.
type PrerequisiteDetail struct {
	Prerequisite
	RequiredCourseCode string `db:"required_course_code" json:"required_course_code"`
	RequiredCourseName string `db:"required_course_name" json:"required_course_name"`
}
