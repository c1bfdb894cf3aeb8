package models

import "time"

// Student represents a learner registered in the institution.
// Both StudentNumber and RegistrationNumber are globally unique.
type Student struct {
	ID                 string    `db:"id" json:"id"`
	StudentNumber      string    `db:"student_number" json:"student_number"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	UserID             *string   `db:"user_id" json:"user_id,omitempty"`
	FullName           string    `db:"full_name" json:"full_name"`
	DepartmentID       *string   `db:"department_id" json:"department_id,omitempty"`
	Semester           string    `db:"semester" json:"semester"`
	GroupLabel         *string   `db:"group_label" json:"group_label,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// StudentDetail contains student information with department context.
type StudentDetail struct {
	Student
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
	Username       *string `db:"username" json:"username,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	DepartmentID string
	Semester     string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
