package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/pkg/jobs"
	"github.com/campusworks/uniportal-api/pkg/storage"
)

type stubEnrollmentLister struct {
	rows []models.EnrollmentDetail
}

func (s *stubEnrollmentLister) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if filter.Page > 1 {
		return nil, len(s.rows), nil
	}
	return s.rows, len(s.rows), nil
}

type stubTranscriptSource struct {
	transcript *models.Transcript
}

func (s *stubTranscriptSource) Transcript(_ context.Context, _, _ string) (*models.Transcript, error) {
	return s.transcript, nil
}

type recordingDispatcher struct {
	enqueued []jobs.Job
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	d.enqueued = append(d.enqueued, job)
	return nil
}

func newExportFixture(t *testing.T) (*ExportService, *recordingDispatcher, *ExportJobService) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	enrollments := &stubEnrollmentLister{rows: []models.EnrollmentDetail{
		{
			Enrollment:    models.Enrollment{StudentID: "stu-1", CourseCode: "CS101", Semester: "2026-1", Credits: 3, Status: models.EnrollmentStatusActive, EnrolledAt: time.Now().UTC()},
			CourseTitle:   "Algorithms",
			StudentName:   "Alex Doe",
			StudentNumber: "2023001",
		},
	}}
	grades := &stubTranscriptSource{transcript: &models.Transcript{
		StudentID:    "stu-1",
		Rows:         []models.TranscriptRow{gradeRow("CS101", 3, models.GradeA)},
		TotalCredits: 3,
		GPA:          4.0,
	}}

	exporter := NewExportService(enrollments, grades, store, signer, ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
	dispatcher := &recordingDispatcher{}
	jobSvc := NewExportJobService(dispatcher, exporter, nil, nil, ExportJobServiceConfig{ResultTTL: time.Hour})
	return exporter, dispatcher, jobSvc
}

func TestExportGenerateEnrollmentSummaryCSV(t *testing.T) {
	exporter, _, _ := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeEnrollmentSummary,
		Params: models.ExportParams{Semester: "2026-1", Format: models.ExportFormatCSV},
	}
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download/"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	file, err := exporter.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
}

func TestExportGenerateTranscriptRequiresStudent(t *testing.T) {
	exporter, _, _ := newExportFixture(t)

	job := &models.ExportJob{
		ID:     "job-2",
		Type:   models.ExportTypeTranscript,
		Params: models.ExportParams{Format: models.ExportFormatPDF},
	}
	_, err := exporter.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportJobLifecycle(t *testing.T) {
	_, dispatcher, jobSvc := newExportFixture(t)
	ctx := context.Background()

	job, err := jobSvc.CreateJob(ctx, CreateExportRequest{
		Type:     "ENROLLMENT_SUMMARY",
		Format:   "csv",
		Semester: "2026-1",
	}, "admin-1", models.RoleAdmin, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusPending, job.Status)
	require.Len(t, dispatcher.enqueued, 1)

	// Run the queued job the way the worker pool would.
	require.NoError(t, jobSvc.Handle(ctx, dispatcher.enqueued[0]))

	status, err := jobSvc.GetStatus(ctx, job.ID, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusDone, status.Status)
	require.NotEmpty(t, status.DownloadURL)

	token := status.DownloadURL[strings.LastIndex(status.DownloadURL, "/")+1:]
	download, err := jobSvc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
}

func TestExportJobStudentOwnershipRules(t *testing.T) {
	_, _, jobSvc := newExportFixture(t)
	ctx := context.Background()

	_, err := jobSvc.CreateJob(ctx, CreateExportRequest{
		Type:   "ENROLLMENT_SUMMARY",
		Format: "csv",
	}, "user-1", models.RoleStudent, "stu-1")
	require.Error(t, err, "students may not export the enrollment summary")

	_, err = jobSvc.CreateJob(ctx, CreateExportRequest{
		Type:      "TRANSCRIPT",
		Format:    "pdf",
		StudentID: "stu-2",
	}, "user-1", models.RoleStudent, "stu-1")
	require.Error(t, err, "students may not export another transcript")

	job, err := jobSvc.CreateJob(ctx, CreateExportRequest{
		Type:   "TRANSCRIPT",
		Format: "pdf",
	}, "user-1", models.RoleStudent, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", job.Params.StudentID)

	_, err = jobSvc.GetStatus(ctx, job.ID, "user-2", models.RoleStudent)
	require.Error(t, err, "other users may not read the job")
}
