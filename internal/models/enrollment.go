package models

import "time"

// EnrollmentStatus represents the lifecycle of a committed enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive  EnrollmentStatus = "ACTIVE"
	EnrollmentStatusDropped EnrollmentStatus = "DROPPED"
)

// Enrollment captures a student's committed registration to a course.
// Credits are snapshotted at commit time so later catalog edits do not
// change historical totals.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseCode string           `db:"course_code" json:"course_code"`
	Semester   string           `db:"semester" json:"semester"`
	Credits    int              `db:"credits" json:"credits"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with course and student info.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle   string `db:"course_title" json:"course_title"`
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID  string
	CourseCode string
	Semester   string
	Status     EnrollmentStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// CommitResult is returned after a selection has been finalized.
type CommitResult struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Routing     RoutingDecision    `json:"routing"`
	Enrollments []EnrollmentDetail `json:"enrollments,omitempty"`
}
