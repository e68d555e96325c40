package service

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

type gradeRepository interface {
	ListByStudent(ctx context.Context, studentID, semester string) ([]models.TranscriptRow, error)
	Upsert(ctx context.Context, grade *models.Grade) error
}

// GradeService exposes transcripts and grade entry.
type GradeService struct {
	repo      gradeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the service.
func NewGradeService(repo gradeRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &GradeService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("gradeletter", func(fl validator.FieldLevel) bool {
		switch models.GradeLetter(strings.ToUpper(fl.Field().String())) {
		case models.GradeA, models.GradeB, models.GradeC, models.GradeD, models.GradeE:
			return true
		default:
			return false
		}
	})
	return svc
}

// Transcript builds the student's transcript with credit-weighted GPA.
// When semester is empty all semesters are included.
func (s *GradeService) Transcript(ctx context.Context, studentID, semester string) (*models.Transcript, error) {
	rows, err := s.repo.ListByStudent(ctx, studentID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	transcript := &models.Transcript{StudentID: studentID, Rows: rows}
	var weighted float64
	for _, row := range rows {
		transcript.TotalCredits += row.Credits
		weighted += row.Letter.Point() * float64(row.Credits)
	}
	if transcript.TotalCredits > 0 {
		transcript.GPA = math.Round(weighted/float64(transcript.TotalCredits)*100) / 100
	}
	return transcript, nil
}

// UpsertGradeRequest describes the staff grade entry payload.
type UpsertGradeRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	CourseCode string `json:"course_code" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
	Credits    int    `json:"credits" validate:"required,min=1,max=8"`
	Letter     string `json:"letter" validate:"required,gradeletter"`
}

// Upsert records or replaces a grade.
func (s *GradeService) Upsert(ctx context.Context, req UpsertGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	grade := &models.Grade{
		StudentID:  req.StudentID,
		CourseCode: req.CourseCode,
		Semester:   req.Semester,
		Credits:    req.Credits,
		Letter:     models.GradeLetter(strings.ToUpper(req.Letter)),
	}
	if err := s.repo.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	return grade, nil
}
