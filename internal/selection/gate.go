package selection

import (
	"github.com/campusworks/uniportal-api/internal/models"
)

// Gate is the evaluated commit condition set for a session.
type Gate struct {
	CanCommit bool                   `json:"can_commit"`
	Reason    string                 `json:"reason,omitempty"`
	Routing   models.RoutingDecision `json:"routing"`
}

// Route computes the normalized enrollment routing decision. A selection
// containing a major-type course reroutes to track selection when the
// student is a new first or second year student, or when any student has
// no recorded track. The new-student rule takes precedence when both
// would fire.
func Route(student models.Student, selected []models.CourseOffering) models.RoutingDecision {
	hasMajor := false
	for _, c := range selected {
		if c.Type == models.CourseTypeMajor {
			hasMajor = true
			break
		}
	}
	if !hasMajor {
		return models.RoutingCommit
	}
	if student.New && student.CurrentYear <= 2 {
		return models.RoutingSelectTrack
	}
	if !student.HasTrack() {
		return models.RoutingSelectTrack
	}
	return models.RoutingCommit
}

// Evaluate recalculates gate enablement for the session. On the normal
// path commit requires a non-empty selection, an open window, no credit
// overflow and no prerequisite error. On the track-selection path only a
// non-empty selection and an open window are required, since the commit is
// deferred to the track flow.
func Evaluate(sess *Session, student models.Student, sum Summary, windowOpen bool) Gate {
	routing := Route(student, sess.Selected)
	gate := Gate{Routing: routing}

	if sess.State == StateCommitted {
		gate.Reason = "selection already committed"
		return gate
	}
	if sess.Size() == 0 {
		gate.Reason = "no courses selected"
		return gate
	}
	if !windowOpen {
		gate.Reason = "enrollment window is not active"
		return gate
	}
	if routing == models.RoutingSelectTrack {
		gate.CanCommit = true
		return gate
	}
	if sum.OverLimit {
		gate.Reason = "credit limit exceeded"
		return gate
	}
	if sum.HasPrereqError {
		gate.Reason = "prerequisite not satisfied"
		return gate
	}
	gate.CanCommit = true
	return gate
}
