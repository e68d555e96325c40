package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	SetTrack(ctx context.Context, id, major, track string) error
}

// StudentService handles student profile workflows, including the major
// track flow that enrollment commits can route to.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students for staff views.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByUserID resolves the student profile behind a user account.
func (s *StudentService) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// UpdateStudentRequest describes the staff profile update payload.
type UpdateStudentRequest struct {
	FullName    string  `json:"full_name" validate:"required"`
	EntryYear   int     `json:"entry_year" validate:"required,min=2000"`
	CurrentYear int     `json:"current_year" validate:"required,min=1,max=7"`
	New         bool    `json:"is_new"`
	Major       *string `json:"major"`
	Track       *string `json:"track"`
	Status      string  `json:"status" validate:"required,oneof=ACTIVE LEAVE GRADUATED"`
}

// Update overwrites the mutable profile fields.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student.FullName = req.FullName
	student.EntryYear = req.EntryYear
	student.CurrentYear = req.CurrentYear
	student.New = req.New
	student.Major = req.Major
	student.Track = req.Track
	student.Status = models.StudentStatus(req.Status)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// SelectTrackRequest describes the track selection payload.
type SelectTrackRequest struct {
	Major string `json:"major" validate:"required"`
	Track string `json:"track" validate:"required"`
}

// SelectTrack records the chosen major and track and clears the new-student
// flag. Afterwards the student's enrollment routing resolves to a direct
// commit again.
func (s *StudentService) SelectTrack(ctx context.Context, studentID string, req SelectTrackRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid track payload")
	}
	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetTrack(ctx, studentID, req.Major, req.Track); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save track selection")
	}
	student.Major = &req.Major
	student.Track = &req.Track
	student.New = false
	return student, nil
}
