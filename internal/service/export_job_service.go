package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
	"github.com/campusworks/uniportal-api/pkg/jobs"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ExportJobServiceConfig governs retries and cleanup.
type ExportJobServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportJobService orchestrates the export job lifecycle. Jobs are
// process-local: they live in memory for the result TTL and the rendered
// files carry their own signed, expiring tokens.
type ExportJobService struct {
	mu        sync.RWMutex
	jobs      map[string]*models.ExportJob
	queue     jobDispatcher
	exporter  exportGenerator
	download  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobServiceConfig
}

// NewExportJobService constructs the service.
func NewExportJobService(queue jobDispatcher, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg ExportJobServiceConfig) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportJobService{
		jobs:      make(map[string]*models.ExportJob),
		queue:     queue,
		exporter:  exporter,
		download:  exporter,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateExportRequest describes an export job request.
type CreateExportRequest struct {
	Type      string `json:"type" validate:"required,oneof=ENROLLMENT_SUMMARY TRANSCRIPT"`
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
	StudentID string `json:"student_id"`
	Semester  string `json:"semester"`
}

// CreateJob validates the request, registers the job and enqueues it.
// Students may only export their own transcript.
func (s *ExportJobService) CreateJob(ctx context.Context, req CreateExportRequest, actorID string, role models.UserRole, actorStudentID string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	exportType := models.ExportType(req.Type)
	if role == models.RoleStudent {
		if exportType != models.ExportTypeTranscript {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only export their transcript")
		}
		if req.StudentID == "" {
			req.StudentID = actorStudentID
		}
		if req.StudentID != actorStudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "transcript belongs to another student")
		}
	}
	if exportType == models.ExportTypeTranscript && req.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required for transcript exports")
	}

	job := &models.ExportJob{
		ID:     uuid.NewString(),
		Type:   exportType,
		Status: models.ExportStatusPending,
		Params: models.ExportParams{
			StudentID: req.StudentID,
			Semester:  req.Semester,
			Format:    models.ExportFormat(req.Format),
		},
		RequestedBy: actorID,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		s.fail(job.ID, "failed to enqueue export job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return s.snapshot(job.ID), nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admins.
func (s *ExportJobService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ExportJob, error) {
	job := s.snapshot(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if role != models.RoleAdmin && job.RequestedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.download.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status != models.ExportStatusDone {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	if job.DownloadURL == "" || !strings.HasSuffix(job.DownloadURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.download.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Handle processes a queued export job. Wired as the queue handler.
func (s *ExportJobService) Handle(ctx context.Context, queued jobs.Job) error {
	job := s.snapshot(queued.ID)
	if job == nil {
		s.logger.Warn("export job vanished before processing", zap.String("job_id", queued.ID))
		return nil
	}
	s.transition(queued.ID, models.ExportStatusRunning, "")

	result, err := s.exporter.Generate(ctx, job)
	if err != nil {
		if queued.Attempt >= s.cfg.MaxRetries {
			s.fail(queued.ID, err.Error())
		} else {
			s.transition(queued.ID, models.ExportStatusPending, err.Error())
		}
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if stored, ok := s.jobs[queued.ID]; ok {
		stored.Status = models.ExportStatusDone
		stored.Error = ""
		stored.ResultPath = result.RelativePath
		stored.DownloadURL = result.URL
		stored.CompletedAt = &now
		stored.ExpiresAt = &result.ExpiresAt
	}
	s.mu.Unlock()
	return nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired() {
	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	for id, job := range s.jobs {
		done := job.Status == models.ExportStatusDone || job.Status == models.ExportStatusFailed
		if done && job.CreatedAt.Before(cutoff) {
			if job.ResultPath != "" {
				if err := s.download.Delete(job.ResultPath); err != nil {
					s.logger.Warn("cleanup delete failed", zap.String("job_id", id), zap.Error(err))
				}
			}
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	if _, err := s.download.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
}

func (s *ExportJobService) snapshot(id string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func (s *ExportJobService) transition(id string, status models.ExportStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
		job.Error = errMsg
	}
}

func (s *ExportJobService) fail(id, errMsg string) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = models.ExportStatusFailed
		job.Error = errMsg
		job.CompletedAt = &now
	}
}
