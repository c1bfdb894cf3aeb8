package models

import "time"

// SettingType defines supported types for system setting values.
type SettingType string

const (
	SettingTypeBoolean SettingType = "BOOLEAN"
	SettingTypeInteger SettingType = "INTEGER"
)

// Recognised system setting keys.
const (
	SettingRegistrationOpen  = "registration_open"
	SettingMaxCoursesLimit   = "max_courses_limit"
	SettingAutoLogoutEnabled = "auto_logout_enabled"
	SettingAutoLogoutTimeout = "auto_logout_timeout"
)

// Setting is a persisted key/value system setting.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
