package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

func TestRecommendWithinLimit(t *testing.T) {
	sess := NewSession("s1", "2026-1", 12)
	require.True(t, sess.Toggle(offering("CS101", 3, models.CourseTypeCore), true))

	rec := Recommend(sess, 24, 0)
	assert.Nil(t, rec.Elective)
	assert.Empty(t, rec.Others)
	assert.Zero(t, rec.CreditsToDrop)
	assert.NotEmpty(t, rec.Message)
}

func TestRecommendPrefersCheapestElective(t *testing.T) {
	sess := NewSession("s1", "2026-1", 20)
	require.True(t, sess.Toggle(offering("EL201", 3, models.CourseTypeElective), true))
	require.True(t, sess.Toggle(offering("EL105", 2, models.CourseTypeElective), true))
	require.True(t, sess.Toggle(offering("CS500", 5, models.CourseTypeCore), true))

	// Total 30 against max 24: over by 6.
	rec := Recommend(sess, 24, 0)
	require.NotNil(t, rec.Elective)
	assert.Equal(t, "EL105", rec.Elective.Code)
	assert.Equal(t, 6, rec.CreditsToDrop)
	assert.Contains(t, rec.SelectedCodes, "EL105")
}

func TestRecommendFillsWithOthersUntilCovered(t *testing.T) {
	sess := NewSession("s1", "2026-1", 20)
	require.True(t, sess.Toggle(offering("EL105", 2, models.CourseTypeElective), true))
	require.True(t, sess.Toggle(offering("CS303", 3, models.CourseTypeCore), true))
	require.True(t, sess.Toggle(offering("CS500", 5, models.CourseTypeCore), true))

	// Total 30, over by 6: elective covers 2, others must cover 4 more.
	rec := Recommend(sess, 24, 0)
	require.NotNil(t, rec.Elective)

	covered := rec.Elective.Credits
	for _, c := range rec.Others {
		covered += c.Credits
	}
	assert.GreaterOrEqual(t, covered, rec.CreditsToDrop)

	// Suggested codes never contain duplicates.
	seen := map[string]struct{}{}
	for _, code := range rec.SelectedCodes {
		_, dup := seen[code]
		assert.Falsef(t, dup, "code %s suggested twice", code)
		seen[code] = struct{}{}
	}
}

func TestRecommendCapsOthersList(t *testing.T) {
	sess := NewSession("s1", "2026-1", 20)
	require.True(t, sess.Toggle(offering("CS101", 2, models.CourseTypeCore), true))
	require.True(t, sess.Toggle(offering("CS202", 2, models.CourseTypeCore), true))
	require.True(t, sess.Toggle(offering("CS303", 2, models.CourseTypeCore), true))
	require.True(t, sess.Toggle(offering("CS404", 2, models.CourseTypeCore), true))

	// Over by 4: without a cap two others would be suggested.
	rec := Recommend(sess, 24, 1)
	assert.Nil(t, rec.Elective)
	assert.Len(t, rec.Others, 1)

	uncapped := Recommend(sess, 24, 0)
	assert.Len(t, uncapped.Others, 2)
}

func TestRecommendNoElectiveSelected(t *testing.T) {
	sess := NewSession("s1", "2026-1", 21)
	require.True(t, sess.Toggle(offering("CS303", 3, models.CourseTypeCore), true))
	require.True(t, sess.Toggle(offering("CS404", 4, models.CourseTypeCore), true))

	// Over by 4 with no electives: only others are suggested.
	rec := Recommend(sess, 24, 0)
	assert.Nil(t, rec.Elective)
	require.NotEmpty(t, rec.Others)
	assert.Equal(t, "CS303", rec.Others[0].Code)
}
