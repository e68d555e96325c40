package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/uniportal-api/internal/models"
)

// AnnouncementRepository handles persistence of announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

const announcementColumns = `id, title, content, audience, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at`

// List returns announcements filtered for an audience. Pinned entries sort
// first, then priority, then recency.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	base := `FROM announcements`
	var conditions []string
	var args []interface{}

	if filter.Audience != "" && filter.Audience != models.AnnouncementAudienceAll {
		conditions = append(conditions, fmt.Sprintf("audience IN ($%d, $%d)", len(args)+1, len(args)+2))
		args = append(args, models.AnnouncementAudienceAll, filter.Audience)
	}
	if filter.ActiveAt != nil {
		conditions = append(conditions, fmt.Sprintf("published_at <= $%d AND (expires_at IS NULL OR expires_at > $%d)", len(args)+1, len(args)+1))
		args = append(args, *filter.ActiveAt)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	orderBy := "published_at DESC"
	if filter.IncludePinned {
		orderBy = "is_pinned DESC, CASE priority WHEN 'HIGH' THEN 0 WHEN 'NORMAL' THEN 1 ELSE 2 END, published_at DESC"
	}

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d`,
		announcementColumns, base+clause, orderBy, size, offset)

	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// GetByID returns an announcement by id.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcements WHERE id = $1`, announcementColumns)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create persists a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, title, content, audience, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at)
        VALUES (:id, :title, :content, :audience, :priority, :is_pinned, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update overwrites an announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements SET title = :title, content = :content, audience = :audience,
        priority = :priority, is_pinned = :is_pinned, published_at = :published_at, expires_at = :expires_at,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement by id.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
