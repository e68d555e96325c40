package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/pkg/export"
	"github.com/campusworks/uniportal-api/pkg/storage"
)

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type transcriptSource interface {
	Transcript(ctx context.Context, studentID, semester string) (*models.Transcript, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files behind
// signed download URLs.
type ExportService struct {
	enrollments enrollmentLister
	grades      transcriptSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments enrollmentLister, grades transcriptSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		enrollments: enrollments,
		grades:      grades,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/exports/download/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to the configured
// ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.Semester)
	if job.Params.StudentID != "" {
		scope = sanitizeFilename(job.Params.StudentID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeEnrollmentSummary:
		return s.buildEnrollmentDataset(ctx, job.Params)
	case models.ExportTypeTranscript:
		return s.buildTranscriptDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildEnrollmentDataset(ctx context.Context, params models.ExportParams) (export.Dataset, string, error) {
	filter := models.EnrollmentFilter{
		StudentID: params.StudentID,
		Semester:  params.Semester,
		PageSize:  100,
		SortBy:    "course_code",
		SortOrder: "ASC",
	}
	var all []models.EnrollmentDetail
	for page := 1; ; page++ {
		filter.Page = page
		rows, total, err := s.enrollments.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, "", err
		}
		all = append(all, rows...)
		if len(all) >= total || len(rows) == 0 {
			break
		}
	}

	dataRows := make([]map[string]string, 0, len(all))
	for _, row := range all {
		dataRows = append(dataRows, map[string]string{
			"Student Number": row.StudentNumber,
			"Student Name":   row.StudentName,
			"Course Code":    row.CourseCode,
			"Course Title":   row.CourseTitle,
			"Credits":        fmt.Sprintf("%d", row.Credits),
			"Status":         string(row.Status),
			"Enrolled At":    row.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student Number", "Student Name", "Course Code", "Course Title", "Credits", "Status", "Enrolled At"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Enrollment Summary %s", params.Semester)
	return dataset, title, nil
}

func (s *ExportService) buildTranscriptDataset(ctx context.Context, params models.ExportParams) (export.Dataset, string, error) {
	if params.StudentID == "" {
		return export.Dataset{}, "", fmt.Errorf("transcript export requires a student id")
	}
	transcript, err := s.grades.Transcript(ctx, params.StudentID, params.Semester)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(transcript.Rows)+1)
	for _, row := range transcript.Rows {
		dataRows = append(dataRows, map[string]string{
			"Course Code":  row.CourseCode,
			"Course Title": row.CourseTitle,
			"Semester":     row.Semester,
			"Credits":      fmt.Sprintf("%d", row.Credits),
			"Grade":        string(row.Letter),
			"Points":       fmt.Sprintf("%.1f", row.Letter.Point()),
		})
	}
	dataRows = append(dataRows, map[string]string{
		"Course Code":  "TOTAL",
		"Course Title": fmt.Sprintf("GPA %.2f", transcript.GPA),
		"Semester":     "",
		"Credits":      fmt.Sprintf("%d", transcript.TotalCredits),
		"Grade":        "",
		"Points":       "",
	})
	dataset := export.Dataset{
		Headers: []string{"Course Code", "Course Title", "Semester", "Credits", "Grade", "Points"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Transcript %s", params.StudentID)
	return dataset, title, nil
}
