package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

type stubGradeRepo struct {
	rows  []models.TranscriptRow
	saved *models.Grade
}

func (s *stubGradeRepo) ListByStudent(_ context.Context, _, _ string) ([]models.TranscriptRow, error) {
	return s.rows, nil
}

func (s *stubGradeRepo) Upsert(_ context.Context, grade *models.Grade) error {
	s.saved = grade
	return nil
}

func gradeRow(code string, credits int, letter models.GradeLetter) models.TranscriptRow {
	return models.TranscriptRow{
		Grade:       models.Grade{StudentID: "stu-1", CourseCode: code, Semester: "2025-2", Credits: credits, Letter: letter},
		CourseTitle: "Course " + code,
	}
}

func TestTranscriptComputesWeightedGPA(t *testing.T) {
	repo := &stubGradeRepo{rows: []models.TranscriptRow{
		gradeRow("CS101", 3, models.GradeA), // 12 points
		gradeRow("MA101", 4, models.GradeB), // 12 points
		gradeRow("PH101", 2, models.GradeC), // 4 points
	}}
	svc := NewGradeService(repo, nil, nil)

	transcript, err := svc.Transcript(context.Background(), "stu-1", "")
	require.NoError(t, err)
	assert.Equal(t, 9, transcript.TotalCredits)
	assert.InDelta(t, 3.11, transcript.GPA, 0.001)
}

func TestTranscriptEmptyHasZeroGPA(t *testing.T) {
	svc := NewGradeService(&stubGradeRepo{}, nil, nil)

	transcript, err := svc.Transcript(context.Background(), "stu-1", "2025-2")
	require.NoError(t, err)
	assert.Zero(t, transcript.TotalCredits)
	assert.Zero(t, transcript.GPA)
}

func TestUpsertGradeValidatesLetter(t *testing.T) {
	repo := &stubGradeRepo{}
	svc := NewGradeService(repo, nil, nil)

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:  "stu-1",
		CourseCode: "CS101",
		Semester:   "2025-2",
		Credits:    3,
		Letter:     "F",
	})
	require.Error(t, err)

	grade, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:  "stu-1",
		CourseCode: "CS101",
		Semester:   "2025-2",
		Credits:    3,
		Letter:     "a",
	})
	require.NoError(t, err)
	assert.Equal(t, models.GradeA, grade.Letter)
	require.NotNil(t, repo.saved)
}
