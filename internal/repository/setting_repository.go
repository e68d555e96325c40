package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/uniportal-api/internal/models"
)

// SettingRepository handles persistence of enrollment settings.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs the repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Current returns the most recently updated setting. When semester is
// non-empty the lookup is scoped to it.
func (r *SettingRepository) Current(ctx context.Context, semester string) (*models.EnrollmentSetting, error) {
	query := `SELECT id, semester, active, open_at, close_at, max_credits, updated_at
        FROM enrollment_settings`
	args := []interface{}{}
	if semester != "" {
		query += " WHERE semester = $1"
		args = append(args, semester)
	}
	query += " ORDER BY updated_at DESC LIMIT 1"

	var setting models.EnrollmentSetting
	if err := r.db.GetContext(ctx, &setting, query, args...); err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert creates or replaces the setting for a semester.
func (r *SettingRepository) Upsert(ctx context.Context, setting *models.EnrollmentSetting) error {
	if setting.ID == "" {
		setting.ID = uuid.NewString()
	}
	setting.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO enrollment_settings (id, semester, active, open_at, close_at, max_credits, updated_at)
        VALUES (:id, :semester, :active, :open_at, :close_at, :max_credits, :updated_at)
        ON CONFLICT (semester) DO UPDATE SET active = EXCLUDED.active, open_at = EXCLUDED.open_at,
        close_at = EXCLUDED.close_at, max_credits = EXCLUDED.max_credits, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert enrollment setting: %w", err)
	}
	return nil
}
