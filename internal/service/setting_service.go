package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/uniportal-api/internal/models"
	appErrors "github.com/campusworks/uniportal-api/pkg/errors"
)

const settingCacheKey = "settings:current"

type settingRepository interface {
	Current(ctx context.Context, semester string) (*models.EnrollmentSetting, error)
	Upsert(ctx context.Context, setting *models.EnrollmentSetting) error
}

// SettingServiceConfig tunes the enrollment window lookup.
type SettingServiceConfig struct {
	Semester          string
	DefaultMaxCredits int
	CacheTTL          time.Duration
}

// SettingService resolves the enrollment window. The window is always
// evaluated server-side against the stored bounds, never trusted from the
// client.
type SettingService struct {
	repo      settingRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SettingServiceConfig
	now       func() time.Time
}

// NewSettingService constructs the service.
func NewSettingService(repo settingRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg SettingServiceConfig) *SettingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxCredits <= 0 {
		cfg.DefaultMaxCredits = 24
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &SettingService{repo: repo, cache: cache, validator: validate, logger: logger, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Current returns the stored setting for the configured semester.
func (s *SettingService) Current(ctx context.Context) (*models.EnrollmentSetting, error) {
	var cached models.EnrollmentSetting
	if hit, _ := s.cache.Get(ctx, settingCacheKey, &cached); hit {
		return &cached, nil
	}
	setting, err := s.repo.Current(ctx, s.cfg.Semester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment setting not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment setting")
	}
	if err := s.cache.Set(ctx, settingCacheKey, setting, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache enrollment setting", zap.Error(err))
	}
	return setting, nil
}

// View returns the setting with the derived window state. When no setting
// is configured the window reports closed with the default credit ceiling.
func (s *SettingService) View(ctx context.Context) (*models.EnrollmentSettingView, error) {
	setting, err := s.Current(ctx)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
			return &models.EnrollmentSettingView{
				EnrollmentSetting: models.EnrollmentSetting{
					Semester:   s.cfg.Semester,
					MaxCredits: s.cfg.DefaultMaxCredits,
				},
			}, nil
		}
		return nil, err
	}
	now := s.now()
	return &models.EnrollmentSettingView{
		EnrollmentSetting: *setting,
		WindowOpen:        setting.WindowOpen(now),
		RemainingSeconds:  int64(setting.Remaining(now).Seconds()),
	}, nil
}

// Window resolves the live window state for enrollment mutations. A missing
// setting means the window is closed.
func (s *SettingService) Window(ctx context.Context) (open bool, maxCredits int, semester string, err error) {
	setting, err := s.Current(ctx)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
			return false, s.cfg.DefaultMaxCredits, s.cfg.Semester, nil
		}
		return false, 0, "", err
	}
	maxCredits = setting.MaxCredits
	if maxCredits <= 0 {
		maxCredits = s.cfg.DefaultMaxCredits
	}
	return setting.WindowOpen(s.now()), maxCredits, setting.Semester, nil
}

// UpsertSettingRequest describes the admin window update payload.
type UpsertSettingRequest struct {
	Semester   string    `json:"semester" validate:"required"`
	Active     bool      `json:"is_active"`
	OpenAt     time.Time `json:"open_at" validate:"required"`
	CloseAt    time.Time `json:"close_at" validate:"required"`
	MaxCredits int       `json:"max_credits" validate:"required,min=1,max=40"`
}

// Upsert creates or replaces the window for a semester and drops the cached
// copy so the next read observes the change.
func (s *SettingService) Upsert(ctx context.Context, req UpsertSettingRequest) (*models.EnrollmentSettingView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid setting payload")
	}
	if !req.CloseAt.After(req.OpenAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "close_at must be after open_at")
	}
	setting := &models.EnrollmentSetting{
		Semester:   req.Semester,
		Active:     req.Active,
		OpenAt:     req.OpenAt,
		CloseAt:    req.CloseAt,
		MaxCredits: req.MaxCredits,
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save enrollment setting")
	}
	if err := s.cache.Invalidate(ctx, settingCacheKey); err != nil {
		s.logger.Warn("failed to invalidate setting cache", zap.Error(err))
	}
	now := s.now()
	return &models.EnrollmentSettingView{
		EnrollmentSetting: *setting,
		WindowOpen:        setting.WindowOpen(now),
		RemainingSeconds:  int64(setting.Remaining(now).Seconds()),
	}, nil
}
