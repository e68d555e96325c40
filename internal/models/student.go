package models

import "time"

// StudentStatus describes a student's administrative standing.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusLeave     StudentStatus = "LEAVE"
	StudentStatusGraduated StudentStatus = "GRADUATED"
)

// RoutingDecision is the normalized enrollment routing outcome for a
// student, replacing scattered per-field heuristics: either the selection
// may be committed directly, or the student must pick a major track first.
type RoutingDecision string

const (
	RoutingCommit      RoutingDecision = "COMMIT"
	RoutingSelectTrack RoutingDecision = "SELECT_TRACK"
)

// Student is a normalized student profile. EntryYear and CurrentYear are
// academic years; New marks first-time enrollees who have not completed a
// full academic year yet.
type Student struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	FullName    string        `db:"full_name" json:"full_name"`
	Number      string        `db:"student_number" json:"student_number"`
	EntryYear   int           `db:"entry_year" json:"entry_year"`
	CurrentYear int           `db:"current_year" json:"current_year"`
	New         bool          `db:"is_new" json:"is_new"`
	Major       *string       `db:"major" json:"major,omitempty"`
	Track       *string       `db:"track" json:"track,omitempty"`
	Status      StudentStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// HasTrack reports whether the student has a recorded major track.
func (s Student) HasTrack() bool {
	return s.Track != nil && *s.Track != ""
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	Status      StudentStatus
	EntryYear   int
	CurrentYear int
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
