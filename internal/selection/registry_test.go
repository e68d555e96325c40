package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

func offering(code string, credits int, typ models.CourseType) models.CourseOffering {
	return models.CourseOffering{Code: code, Title: code, Credits: credits, Type: typ, Enrollable: true}
}

func lockedOffering(code string, credits int) models.CourseOffering {
	c := offering(code, credits, models.CourseTypeCore)
	c.Enrollable = false
	return c
}

func TestToggleNeverDuplicatesKeys(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	cs101 := offering("CS101", 3, models.CourseTypeCore)
	cs202 := offering("CS202", 4, models.CourseTypeElective)

	// Arbitrary on/off sequence: size equals distinct courses left "on".
	require.True(t, sess.Toggle(cs101, true))
	require.True(t, sess.Toggle(cs202, true))
	require.True(t, sess.Toggle(cs101, true))  // off
	require.True(t, sess.Toggle(cs101, true))  // on again
	require.True(t, sess.Toggle(cs202, true))  // off
	require.True(t, sess.Toggle(cs202, true))  // on again

	assert.Equal(t, 2, sess.Size())
	seen := map[string]int{}
	for _, c := range sess.Values() {
		seen[c.Code]++
	}
	for code, n := range seen {
		assert.Equalf(t, 1, n, "course %s appears %d times", code, n)
	}
}

func TestToggleLockedCourseIsNoOp(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)

	changed := sess.Toggle(lockedOffering("CS900", 3), true)
	assert.False(t, changed)
	assert.Equal(t, 0, sess.Size())
	assert.False(t, sess.PanelOpen)
}

func TestToggleClosedWindowIsNoOp(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)

	changed := sess.Toggle(offering("CS101", 3, models.CourseTypeCore), false)
	assert.False(t, changed)
	assert.Equal(t, 0, sess.Size())
}

func TestToggleRemovesLockedCourseAlreadySelected(t *testing.T) {
	// A course that became locked after selection can still be toggled off.
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))

	locked := lockedOffering("CS101", 3)
	require.True(t, sess.Toggle(locked, true))
	assert.Equal(t, 0, sess.Size())
}

func TestFirstToggleOpensPanel(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))
	assert.True(t, sess.PanelOpen)

	// Removing the course does not close the panel.
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))
	assert.Equal(t, 0, sess.Size())
	assert.True(t, sess.PanelOpen)
}

func TestSummarizeOverLimit(t *testing.T) {
	sess := NewSession("s1", "2026-1", 20)
	require.True(t, sess.Toggle(offering("CS500", 5, models.CourseTypeCore), true))

	sum := sess.Summarize(24)
	assert.Equal(t, 25, sum.TotalCredits)
	assert.True(t, sum.OverLimit)
	assert.Equal(t, 1, sum.CreditsOver)

	// Exactly at the ceiling is not over.
	sess2 := NewSession("s1", "2026-1", 20)
	require.True(t, sess2.Toggle(offering("CS400", 4, models.CourseTypeCore), true))
	sum2 := sess2.Summarize(24)
	assert.Equal(t, 24, sum2.TotalCredits)
	assert.False(t, sum2.OverLimit)
	assert.Equal(t, 0, sum2.CreditsOver)
}

func TestSummarizePrereqError(t *testing.T) {
	reason := "prerequisite CS100 not completed"
	course := offering("CS201", 3, models.CourseTypeCore)
	course.ErrorReason = &reason

	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(course, true))
	assert.True(t, sess.Summarize(24).HasPrereqError)
}

func TestRemoveExactBatch(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))
	require.True(t, sess.Toggle(offering("CS202", 4, models.CourseTypeElective), true))
	require.True(t, sess.Toggle(offering("CS303", 3, models.CourseTypeCore), true))

	// Removal applies regardless of the over-limit state at call time.
	removed := sess.Remove([]string{"CS101", "CS202"})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, sess.Size())
	assert.True(t, sess.Has("CS303"))
	assert.False(t, sess.Has("CS101"))
	assert.False(t, sess.Has("CS202"))
}

func TestRemoveIgnoresUnknownCodes(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))

	removed := sess.Remove([]string{"CS999"})
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, sess.Size())
}

func TestToggleAfterCommitIsNoOp(t *testing.T) {
	sess := NewSession("s1", "2026-1", 0)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))
	sess.State = StateCommitted

	assert.False(t, sess.Toggle(offering("CS202", 4, models.CourseTypeCore), true))
	assert.Equal(t, 1, sess.Size())
}
