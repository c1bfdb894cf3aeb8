package models

import "time"

// CourseGroup is a section of a course with its own capacity. The group name
// is unique within its course.
type CourseGroup struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Name        string    `db:"name" json:"name"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	Professor   *string   `db:"professor" json:"professor,omitempty"`
	TimeSlot    *string   `db:"time_slot" json:"time_slot,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CourseGroupDetail extends CourseGroup with occupancy information.
type CourseGroupDetail struct {
	CourseGroup
	CourseCode     string  `db:"course_code" json:"course_code"`
	CourseName     string  `db:"course_name" json:"course_name"`
	EnrolledCount  int     `db:"enrolled_count" json:"enrolled_count"`
	FillPercentage float64 `json:"fill_percentage"`
}
