package models

import "time"

// EnrollmentSetting is the server-defined enrollment window for a semester.
type EnrollmentSetting struct {
	ID         string    `db:"id" json:"id"`
	Semester   string    `db:"semester" json:"semester"`
	Active     bool      `db:"active" json:"is_active"`
	OpenAt     time.Time `db:"open_at" json:"open_at"`
	CloseAt    time.Time `db:"close_at" json:"close_at"`
	MaxCredits int       `db:"max_credits" json:"max_credits"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// WindowOpen reports whether mutations are permitted at the given instant.
// Both the stored flag and the open/close bounds must agree.
func (s EnrollmentSetting) WindowOpen(now time.Time) bool {
	if !s.Active {
		return false
	}
	return !now.Before(s.OpenAt) && now.Before(s.CloseAt)
}

// Remaining returns the time left until the window closes, zero when closed.
func (s EnrollmentSetting) Remaining(now time.Time) time.Duration {
	if !s.WindowOpen(now) {
		return 0
	}
	return s.CloseAt.Sub(now)
}

// EnrollmentSettingView adds derived window state for responses.
type EnrollmentSettingView struct {
	EnrollmentSetting
	WindowOpen       bool  `json:"window_open"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}
