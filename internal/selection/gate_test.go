package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

func studentWithTrack(track string) models.Student {
	return models.Student{ID: "s1", CurrentYear: 3, Track: &track}
}

func TestEvaluateEmptySelectionDisablesCommit(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	student := studentWithTrack("software")

	// Empty selection blocks commit regardless of the other flags.
	gate := Evaluate(sess, student, sess.Summarize(24), true)
	assert.False(t, gate.CanCommit)
	assert.Equal(t, "no courses selected", gate.Reason)
}

func TestEvaluateClosedWindowDisablesCommit(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))

	gate := Evaluate(sess, studentWithTrack("software"), sess.Summarize(24), false)
	assert.False(t, gate.CanCommit)
}

func TestEvaluateOverLimitDisablesCommit(t *testing.T) {
	sess := NewSession("s1", "2026-1", 22)
	require.True(t, sess.Toggle(offering("CS500", 5, models.CourseTypeCore), true))

	gate := Evaluate(sess, studentWithTrack("software"), sess.Summarize(24), true)
	assert.False(t, gate.CanCommit)
	assert.Equal(t, models.RoutingCommit, gate.Routing)
}

func TestEvaluateHappyPath(t *testing.T) {
	sess := NewSession("s1", "2026-1", 12)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))

	gate := Evaluate(sess, studentWithTrack("software"), sess.Summarize(24), true)
	assert.True(t, gate.CanCommit)
	assert.Equal(t, models.RoutingCommit, gate.Routing)
}

func TestEvaluateCommittedSessionStaysCommitted(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))
	sess.State = StateCommitted

	gate := Evaluate(sess, studentWithTrack("software"), sess.Summarize(24), true)
	assert.False(t, gate.CanCommit)
}

func TestRouteNoMajorCourseCommits(t *testing.T) {
	student := models.Student{ID: "s1", New: true, CurrentYear: 1}
	selected := []models.CourseOffering{offering("CS101", 3, models.CourseTypeCore)}
	assert.Equal(t, models.RoutingCommit, Route(student, selected))
}

func TestRouteNewStudentWithMajorCourse(t *testing.T) {
	student := models.Student{ID: "s1", New: true, CurrentYear: 2}
	selected := []models.CourseOffering{offering("SE301", 4, models.CourseTypeMajor)}
	assert.Equal(t, models.RoutingSelectTrack, Route(student, selected))
}

func TestRouteExistingStudentWithoutTrack(t *testing.T) {
	student := models.Student{ID: "s1", CurrentYear: 3}
	selected := []models.CourseOffering{offering("SE301", 4, models.CourseTypeMajor)}
	assert.Equal(t, models.RoutingSelectTrack, Route(student, selected))
}

func TestRouteExistingStudentWithTrackCommits(t *testing.T) {
	student := studentWithTrack("software")
	selected := []models.CourseOffering{offering("SE301", 4, models.CourseTypeMajor)}
	assert.Equal(t, models.RoutingCommit, Route(student, selected))
}

func TestRouteNewStudentRuleWinsOverMissingTrack(t *testing.T) {
	// Both heuristics fire; the new-student rule decides the destination.
	student := models.Student{ID: "s1", New: true, CurrentYear: 1}
	selected := []models.CourseOffering{offering("SE301", 4, models.CourseTypeMajor)}
	assert.Equal(t, models.RoutingSelectTrack, Route(student, selected))
}

func TestEvaluateTrackRoutingRequiresOnlySelectionAndWindow(t *testing.T) {
	// The track-selection path ignores the credit ceiling.
	sess := NewSession("s1", "2026-1", 22)
	require.True(t, sess.Toggle(offering("SE301", 5, models.CourseTypeMajor), true))
	student := models.Student{ID: "s1", New: true, CurrentYear: 1}

	gate := Evaluate(sess, student, sess.Summarize(24), true)
	assert.True(t, gate.CanCommit)
	assert.Equal(t, models.RoutingSelectTrack, gate.Routing)
}
