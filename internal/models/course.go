package models

import "time"

// CourseType classifies an offering within the curriculum.
type CourseType string

const (
	CourseTypeCore     CourseType = "CORE"
	CourseTypeElective CourseType = "ELECTIVE"
	CourseTypeMajor    CourseType = "MAJOR"
	CourseTypeGeneral  CourseType = "GENERAL"
)

// CourseStatus is the per-session presentation state of an offering.
// It is derived, never persisted.
type CourseStatus string

const (
	CourseStatusAvailable CourseStatus = "AVAILABLE"
	CourseStatusSelected  CourseStatus = "SELECTED"
	CourseStatusLocked    CourseStatus = "LOCKED"
)

// CourseOffering is a course offered for enrollment in a semester.
type CourseOffering struct {
	Code        string     `db:"code" json:"code"`
	Title       string     `db:"title" json:"title"`
	Credits     int        `db:"credits" json:"credits"`
	Type        CourseType `db:"type" json:"type"`
	Enrollable  bool       `db:"enrollable" json:"enrollable"`
	Schedule    string     `db:"schedule" json:"schedule"`
	ErrorReason *string    `db:"error_reason" json:"error_reason,omitempty"`
	Semester    string     `db:"semester" json:"semester"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Locked reports whether the offering may not be toggled into a selection.
func (c CourseOffering) Locked() bool {
	return !c.Enrollable
}

// CourseView pairs an offering with its session-derived status.
type CourseView struct {
	CourseOffering
	Status CourseStatus `json:"status"`
}

// CourseFilter captures filtering criteria for listing offerings.
type CourseFilter struct {
	Semester   string
	Type       CourseType
	Enrollable *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
