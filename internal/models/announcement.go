package models

import "time"

// AnnouncementAudience scopes who sees an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll     AnnouncementAudience = "ALL"
	AnnouncementAudienceStaff   AnnouncementAudience = "STAFF"
	AnnouncementAudienceStudent AnnouncementAudience = "STUDENT"
)

// AnnouncementPriority orders announcements for display.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow    AnnouncementPriority = "LOW"
	AnnouncementPriorityNormal AnnouncementPriority = "NORMAL"
	AnnouncementPriorityHigh   AnnouncementPriority = "HIGH"
)

// Announcement is a portal-wide or audience-scoped notice.
type Announcement struct {
	ID          string               `db:"id" json:"id"`
	Title       string               `db:"title" json:"title"`
	Content     string               `db:"content" json:"content"`
	Audience    AnnouncementAudience `db:"audience" json:"audience"`
	Priority    AnnouncementPriority `db:"priority" json:"priority"`
	IsPinned    bool                 `db:"is_pinned" json:"is_pinned"`
	PublishedAt time.Time            `db:"published_at" json:"published_at"`
	ExpiresAt   *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy   string               `db:"created_by" json:"created_by"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter provides filters for listing announcements.
type AnnouncementFilter struct {
	Audience      AnnouncementAudience
	IncludePinned bool
	ActiveAt      *time.Time
	Page          int
	PageSize      int
}
