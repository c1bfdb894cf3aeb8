package models

import "time"

// Department represents an academic department owning students and courses.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DepartmentDetail extends Department with dependent-record counts.
type DepartmentDetail struct {
	Department
	StudentCount int `db:"student_count" json:"student_count"`
	CourseCount  int `db:"course_count" json:"course_count"`
}
