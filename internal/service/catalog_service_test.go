package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/selection"
)

type stubCourseRepo struct {
	courses []models.CourseOffering
	byCode  map[string]models.CourseOffering
	created *models.CourseOffering
	updated *models.CourseOffering
}

func (s *stubCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.CourseOffering, int, error) {
	return s.courses, len(s.courses), nil
}

func (s *stubCourseRepo) FindByCode(_ context.Context, code string) (*models.CourseOffering, error) {
	if c, ok := s.byCode[code]; ok {
		return &c, nil
	}
	return nil, errNoRows
}

func (s *stubCourseRepo) Create(_ context.Context, course *models.CourseOffering) error {
	s.created = course
	return nil
}

func (s *stubCourseRepo) Update(_ context.Context, course *models.CourseOffering) error {
	s.updated = course
	return nil
}

var errNoRows = errors.New("sql: no rows in result set")

type stubActiveCodes struct {
	codes []string
}

func (s *stubActiveCodes) ListActiveCodes(_ context.Context, _, _ string) ([]string, error) {
	return s.codes, nil
}

func TestCatalogListDecoratesStatuses(t *testing.T) {
	repo := &stubCourseRepo{courses: []models.CourseOffering{
		course("CS101", 3, models.CourseTypeCore),
		course("CS202", 4, models.CourseTypeCore),
		course("CS303", 3, models.CourseTypeCore),
		lockedCourse("CS404", 2),
	}}
	selections := newMemorySelectionStore()
	svc := NewCatalogService(repo, selections, &stubActiveCodes{codes: []string{"CS303"}}, nil, nil, nil, 0)

	// Put CS101 into the student's selection.
	sess := selection.NewSession("stu-1", "2026-1", 0)
	require.True(t, sess.Toggle(course("CS101", 3, models.CourseTypeCore), true))
	require.NoError(t, selections.Save(context.Background(), sess, 0))

	views, pagination, err := svc.List(context.Background(), models.CourseFilter{Semester: "2026-1"}, "stu-1")
	require.NoError(t, err)
	require.Len(t, views, 4)
	assert.Equal(t, 4, pagination.TotalCount)

	byCode := map[string]models.CourseStatus{}
	for _, v := range views {
		byCode[v.Code] = v.Status
	}
	assert.Equal(t, models.CourseStatusSelected, byCode["CS101"])
	assert.Equal(t, models.CourseStatusAvailable, byCode["CS202"])
	assert.Equal(t, models.CourseStatusLocked, byCode["CS303"], "already enrolled")
	assert.Equal(t, models.CourseStatusLocked, byCode["CS404"], "not enrollable")
}

func TestCatalogCreateRejectsDuplicateCode(t *testing.T) {
	repo := &stubCourseRepo{byCode: map[string]models.CourseOffering{
		"CS101": course("CS101", 3, models.CourseTypeCore),
	}}
	svc := NewCatalogService(repo, newMemorySelectionStore(), &stubActiveCodes{}, nil, nil, nil, 0)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Code:     "CS101",
		Title:    "Algorithms",
		Credits:  3,
		Type:     "CORE",
		Semester: "2026-1",
	})
	require.Error(t, err)
}

func TestCatalogUpdateOverwritesMutableFields(t *testing.T) {
	repo := &stubCourseRepo{byCode: map[string]models.CourseOffering{
		"CS101": course("CS101", 3, models.CourseTypeCore),
	}}
	svc := NewCatalogService(repo, newMemorySelectionStore(), &stubActiveCodes{}, nil, nil, nil, 0)

	updated, err := svc.Update(context.Background(), "CS101", UpdateCourseRequest{
		Title:      "Advanced Algorithms",
		Credits:    4,
		Type:       "elective",
		Enrollable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Algorithms", updated.Title)
	assert.Equal(t, models.CourseTypeElective, updated.Type)
	require.NotNil(t, repo.updated)
}
