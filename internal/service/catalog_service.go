package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/selection"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseOffering, int, error)
	FindByCode(ctx context.Context, code string) (*models.CourseOffering, error)
	Create(ctx context.Context, course *models.CourseOffering) error
	Update(ctx context.Context, course *models.CourseOffering) error
}

type selectionReader interface {
	Get(ctx context.Context, studentID string) (*selection.Session, error)
}

type activeCodeLister interface {
	ListActiveCodes(ctx context.Context, studentID, semester string) ([]string, error)
}

// CatalogService serves the course offering catalog. List responses are
// cached; the per-student status decoration happens after the cache so one
// cached page serves every student.
type CatalogService struct {
	repo        courseRepository
	selections  selectionReader
	enrollments activeCodeLister
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// NewCatalogService constructs the service.
func NewCatalogService(repo courseRepository, selections selectionReader, enrollments activeCodeLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	svc := &CatalogService{repo: repo, selections: selections, enrollments: enrollments, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
	svc.validator.RegisterValidation("coursetype", func(fl validator.FieldLevel) bool {
		switch models.CourseType(strings.ToUpper(fl.Field().String())) {
		case models.CourseTypeCore, models.CourseTypeElective, models.CourseTypeMajor, models.CourseTypeGeneral:
			return true
		default:
			return false
		}
	})
	return svc
}

type catalogPage struct {
	Courses []models.CourseOffering `json:"courses"`
	Total   int                     `json:"total"`
}

func catalogCacheKey(filter models.CourseFilter) string {
	enrollable := "any"
	if filter.Enrollable != nil {
		enrollable = fmt.Sprintf("%t", *filter.Enrollable)
	}
	return fmt.Sprintf("catalog:%s:%s:%s:%s:%s:%s:%d:%d",
		filter.Semester, filter.Type, enrollable, filter.Search,
		filter.SortBy, filter.SortOrder, filter.Page, filter.PageSize)
}

// List returns catalog offerings. When studentID is non-empty each offering
// carries the status it has for that student: SELECTED while in the
// student's selection, LOCKED when not enrollable or already enrolled, and
// AVAILABLE otherwise.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter, studentID string) ([]models.CourseView, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	key := catalogCacheKey(filter)
	var page catalogPage
	hit, _ := s.cache.Get(ctx, key, &page)
	if !hit {
		courses, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
		}
		page = catalogPage{Courses: courses, Total: total}
		if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache catalog page", zap.Error(err))
		}
	}

	views := s.decorate(ctx, page.Courses, studentID, filter.Semester)
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}
	return views, pagination, nil
}

func (s *CatalogService) decorate(ctx context.Context, courses []models.CourseOffering, studentID, semester string) []models.CourseView {
	selected := map[string]struct{}{}
	enrolled := map[string]struct{}{}
	if studentID != "" {
		if sess, err := s.selections.Get(ctx, studentID); err == nil {
			for _, c := range sess.Selected {
				selected[c.Code] = struct{}{}
			}
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("failed to load selection for catalog", zap.String("student_id", studentID), zap.Error(err))
		}
		codes, err := s.enrollments.ListActiveCodes(ctx, studentID, semester)
		if err != nil {
			s.logger.Warn("failed to load enrolled codes for catalog", zap.String("student_id", studentID), zap.Error(err))
		}
		for _, code := range codes {
			enrolled[code] = struct{}{}
		}
	}

	views := make([]models.CourseView, 0, len(courses))
	for _, c := range courses {
		view := models.CourseView{CourseOffering: c, Status: models.CourseStatusAvailable}
		if _, ok := selected[c.Code]; ok {
			view.Status = models.CourseStatusSelected
		} else if _, ok := enrolled[c.Code]; ok {
			view.Status = models.CourseStatusLocked
		} else if c.Locked() {
			view.Status = models.CourseStatusLocked
		}
		views = append(views, view)
	}
	return views
}

// Get returns one offering by code.
func (s *CatalogService) Get(ctx context.Context, code string) (*models.CourseOffering, error) {
	course, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// CreateCourseRequest describes the admin create payload.
type CreateCourseRequest struct {
	Code        string  `json:"code" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Credits     int     `json:"credits" validate:"required,min=1,max=8"`
	Type        string  `json:"type" validate:"required,coursetype"`
	Enrollable  bool    `json:"enrollable"`
	Schedule    string  `json:"schedule"`
	ErrorReason *string `json:"error_reason"`
	Semester    string  `json:"semester" validate:"required"`
}

// UpdateCourseRequest describes the admin update payload.
type UpdateCourseRequest struct {
	Title       string  `json:"title" validate:"required"`
	Credits     int     `json:"credits" validate:"required,min=1,max=8"`
	Type        string  `json:"type" validate:"required,coursetype"`
	Enrollable  bool    `json:"enrollable"`
	Schedule    string  `json:"schedule"`
	ErrorReason *string `json:"error_reason"`
}

// Create registers a new offering and invalidates cached catalog pages.
func (s *CatalogService) Create(ctx context.Context, req CreateCourseRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if existing, err := s.repo.FindByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}
	course := &models.CourseOffering{
		Code:        req.Code,
		Title:       req.Title,
		Credits:     req.Credits,
		Type:        models.CourseType(strings.ToUpper(req.Type)),
		Enrollable:  req.Enrollable,
		Schedule:    req.Schedule,
		ErrorReason: req.ErrorReason,
		Semester:    req.Semester,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidate(ctx)
	return course, nil
}

// Update overwrites the mutable fields of an offering and invalidates
// cached catalog pages.
func (s *CatalogService) Update(ctx context.Context, code string, req UpdateCourseRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	course.Title = req.Title
	course.Credits = req.Credits
	course.Type = models.CourseType(strings.ToUpper(req.Type))
	course.Enrollable = req.Enrollable
	course.Schedule = req.Schedule
	course.ErrorReason = req.ErrorReason
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidate(ctx)
	return course, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
