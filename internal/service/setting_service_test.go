package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/uniportal-api/internal/models"
)

type stubSettingRepo struct {
	setting *models.EnrollmentSetting
	saved   *models.EnrollmentSetting
}

func (s *stubSettingRepo) Current(_ context.Context, _ string) (*models.EnrollmentSetting, error) {
	if s.setting == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.setting
	return &copied, nil
}

func (s *stubSettingRepo) Upsert(_ context.Context, setting *models.EnrollmentSetting) error {
	s.saved = setting
	s.setting = setting
	return nil
}

func openSetting(now time.Time) *models.EnrollmentSetting {
	return &models.EnrollmentSetting{
		ID:         "set-1",
		Semester:   "2026-1",
		Active:     true,
		OpenAt:     now.Add(-time.Hour),
		CloseAt:    now.Add(time.Hour),
		MaxCredits: 18,
		UpdatedAt:  now,
	}
}

func TestSettingWindowOpen(t *testing.T) {
	now := time.Now().UTC()
	repo := &stubSettingRepo{setting: openSetting(now)}
	svc := NewSettingService(repo, nil, nil, nil, SettingServiceConfig{Semester: "2026-1"})

	open, maxCredits, semester, err := svc.Window(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, 18, maxCredits)
	assert.Equal(t, "2026-1", semester)
}

func TestSettingWindowClosedWhenInactive(t *testing.T) {
	now := time.Now().UTC()
	setting := openSetting(now)
	setting.Active = false
	repo := &stubSettingRepo{setting: setting}
	svc := NewSettingService(repo, nil, nil, nil, SettingServiceConfig{Semester: "2026-1"})

	open, _, _, err := svc.Window(context.Background())
	require.NoError(t, err)
	assert.False(t, open, "inactive flag overrides open bounds")
}

func TestSettingWindowDefaultsWhenUnconfigured(t *testing.T) {
	repo := &stubSettingRepo{}
	svc := NewSettingService(repo, nil, nil, nil, SettingServiceConfig{Semester: "2026-1", DefaultMaxCredits: 24})

	open, maxCredits, semester, err := svc.Window(context.Background())
	require.NoError(t, err)
	assert.False(t, open)
	assert.Equal(t, 24, maxCredits)
	assert.Equal(t, "2026-1", semester)
}

func TestSettingViewDerivesRemainingSeconds(t *testing.T) {
	now := time.Now().UTC()
	repo := &stubSettingRepo{setting: openSetting(now)}
	svc := NewSettingService(repo, nil, nil, nil, SettingServiceConfig{Semester: "2026-1"})

	view, err := svc.View(context.Background())
	require.NoError(t, err)
	assert.True(t, view.WindowOpen)
	assert.Greater(t, view.RemainingSeconds, int64(3500))
}

func TestSettingUpsertValidatesBounds(t *testing.T) {
	repo := &stubSettingRepo{}
	svc := NewSettingService(repo, nil, nil, nil, SettingServiceConfig{Semester: "2026-1"})
	now := time.Now().UTC()

	_, err := svc.Upsert(context.Background(), UpsertSettingRequest{
		Semester:   "2026-1",
		Active:     true,
		OpenAt:     now,
		CloseAt:    now.Add(-time.Hour),
		MaxCredits: 18,
	})
	require.Error(t, err)

	view, err := svc.Upsert(context.Background(), UpsertSettingRequest{
		Semester:   "2026-1",
		Active:     true,
		OpenAt:     now.Add(-time.Minute),
		CloseAt:    now.Add(time.Hour),
		MaxCredits: 18,
	})
	require.NoError(t, err)
	assert.True(t, view.WindowOpen)
	require.NotNil(t, repo.saved)
	assert.Equal(t, 18, repo.saved.MaxCredits)
}
