package models

import "time"

// ExportType selects the dataset behind an export job.
type ExportType string

const (
	ExportTypeEnrollmentSummary ExportType = "ENROLLMENT_SUMMARY"
	ExportTypeTranscript        ExportType = "TRANSCRIPT"
)

// ExportFormat selects the rendered file format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks the lifecycle of an asynchronous export job.
type ExportStatus string

const (
	ExportStatusPending ExportStatus = "PENDING"
	ExportStatusRunning ExportStatus = "RUNNING"
	ExportStatusDone    ExportStatus = "DONE"
	ExportStatusFailed  ExportStatus = "FAILED"
)

// ExportParams parameterizes an export job.
type ExportParams struct {
	StudentID string       `json:"student_id"`
	Semester  string       `json:"semester"`
	Format    ExportFormat `json:"format"`
}

// ExportJob is an asynchronous export request and its progress.
type ExportJob struct {
	ID          string       `json:"id"`
	Type        ExportType   `json:"type"`
	Status      ExportStatus `json:"status"`
	Params      ExportParams `json:"params"`
	ResultPath  string       `json:"-"`
	DownloadURL string       `json:"download_url,omitempty"`
	Error       string       `json:"error,omitempty"`
	RequestedBy string       `json:"requested_by"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}
