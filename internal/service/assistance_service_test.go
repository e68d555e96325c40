package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

type stubCatalogLister struct {
	courses []models.CourseOffering
}

func (s *stubCatalogLister) List(_ context.Context, _ models.CourseFilter) ([]models.CourseOffering, int, error) {
	return s.courses, len(s.courses), nil
}

func TestAssistanceSuggestRanksTitleMatchesFirst(t *testing.T) {
	lister := &stubCatalogLister{courses: []models.CourseOffering{
		course("CS301", 3, models.CourseTypeCore),
		{Code: "DB201", Title: "Database Systems", Credits: 4, Type: models.CourseTypeCore, Enrollable: true, Semester: "2026-1"},
		{Code: "ML401", Title: "Machine Learning", Credits: 3, Type: models.CourseTypeElective, Enrollable: true, Semester: "2026-1"},
	}}
	svc := NewAssistanceService(lister, nil, AssistanceServiceConfig{Enabled: true, MaxSuggestions: 5, Semester: "2026-1"})

	suggestions, err := svc.Suggest(context.Background(), "database systems course")
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "DB201", suggestions[0].Course.Code)
	assert.Greater(t, suggestions[0].Score, 0)
	assert.Contains(t, suggestions[0].Reason, "database")
}

func TestAssistanceSuggestCapsResults(t *testing.T) {
	var courses []models.CourseOffering
	for _, code := range []string{"AL101", "AL102", "AL103", "AL104"} {
		courses = append(courses, models.CourseOffering{Code: code, Title: "Algorithms " + code, Credits: 3, Enrollable: true, Semester: "2026-1"})
	}
	svc := NewAssistanceService(&stubCatalogLister{courses: courses}, nil, AssistanceServiceConfig{Enabled: true, MaxSuggestions: 2, Semester: "2026-1"})

	suggestions, err := svc.Suggest(context.Background(), "algorithms")
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestAssistanceSuggestRejectsEmptyQuery(t *testing.T) {
	svc := NewAssistanceService(&stubCatalogLister{}, nil, AssistanceServiceConfig{Enabled: true})

	_, err := svc.Suggest(context.Background(), "   ")
	require.Error(t, err)
}
