package selection

import (
	"time"

	"github.com/campusworks/uniportal-api/internal/models"
)

// State is the finalization lifecycle of a selection session.
type State string

const (
	StateIdle       State = "IDLE"
	StateValidating State = "VALIDATING"
	StateCommitted  State = "COMMITTED"
)

// Session is a student's in-progress, uncommitted course selection. It is
// the single server-owned copy of what the enrollment page used to keep in
// component state: an insertion-ordered registry of offerings keyed by
// course code, plus the panel flag and gate state. Revision increases on
// every persisted mutation so stale writers can be rejected.
type Session struct {
	StudentID   string                  `json:"student_id"`
	Semester    string                  `json:"semester"`
	BaseCredits int                     `json:"base_credits"`
	Selected    []models.CourseOffering `json:"selected"`
	PanelOpen   bool                    `json:"panel_open"`
	State       State                   `json:"state"`
	Revision    int64                   `json:"revision"`
	CommittedAt *time.Time              `json:"committed_at,omitempty"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// NewSession returns an empty idle session for the student.
func NewSession(studentID, semester string, baseCredits int) *Session {
	return &Session{
		StudentID:   studentID,
		Semester:    semester,
		BaseCredits: baseCredits,
		State:       StateIdle,
	}
}

// Has reports whether the course code is currently selected.
func (s *Session) Has(code string) bool {
	for _, c := range s.Selected {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Size returns the number of selected courses.
func (s *Session) Size() int {
	return len(s.Selected)
}

// Values returns the selected offerings in insertion order.
func (s *Session) Values() []models.CourseOffering {
	out := make([]models.CourseOffering, len(s.Selected))
	copy(out, s.Selected)
	return out
}

// Toggle inserts the course when absent and removes it when present.
// Toggling a locked course, or toggling while the window is closed, is a
// no-op and returns false; no error is raised for either case. The first
// successful insert of a session opens the validation panel; removing
// courses never closes it.
func (s *Session) Toggle(course models.CourseOffering, windowOpen bool) bool {
	if !windowOpen || s.State == StateCommitted {
		return false
	}
	for i, c := range s.Selected {
		if c.Code == course.Code {
			s.Selected = append(s.Selected[:i], s.Selected[i+1:]...)
			return true
		}
	}
	if course.Locked() {
		return false
	}
	s.Selected = append(s.Selected, course)
	s.PanelOpen = true
	return true
}

// Remove deletes exactly the given course codes from the registry in one
// batch and returns how many entries were removed. Codes not present are
// ignored; nothing else is touched.
func (s *Session) Remove(codes []string) int {
	if len(codes) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		drop[code] = struct{}{}
	}
	kept := s.Selected[:0]
	removed := 0
	for _, c := range s.Selected {
		if _, ok := drop[c.Code]; ok {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.Selected = kept
	return removed
}

// Summary is the pure credit derivation over a session: recomputed on
// every read, never stored.
type Summary struct {
	BaseCredits     int  `json:"base_credits"`
	SelectedCredits int  `json:"selected_credits"`
	TotalCredits    int  `json:"total_credits"`
	MaxCredits      int  `json:"max_credits"`
	OverLimit       bool `json:"over_limit"`
	CreditsOver     int  `json:"credits_over"`
	HasPrereqError  bool `json:"has_prereq_error"`
}

// Summarize derives credit totals against the given ceiling.
func (s *Session) Summarize(maxCredits int) Summary {
	selected := 0
	prereq := false
	for _, c := range s.Selected {
		selected += c.Credits
		if c.ErrorReason != nil && *c.ErrorReason != "" {
			prereq = true
		}
	}
	total := s.BaseCredits + selected
	over := total > maxCredits
	sum := Summary{
		BaseCredits:     s.BaseCredits,
		SelectedCredits: selected,
		TotalCredits:    total,
		MaxCredits:      maxCredits,
		OverLimit:       over,
		HasPrereqError:  prereq,
	}
	if over {
		sum.CreditsOver = total - maxCredits
	}
	return sum
}
