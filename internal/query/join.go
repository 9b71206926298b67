package query

import (
	"time"

	"github.com/devmsrajput/yt-backend/internal/models"
)

// projectable lists the columns each table exposes through joins. Credentials and session
// material never appear here.
var projectable = map[string]map[string]struct{}{
	"users": set("id", "username", "full_name", "avatar_url"),
	"videos": set("id", "owner_id", "title", "description", "video_url", "thumbnail_url",
		"duration_seconds", "views", "is_published", "created_at", "updated_at"),
}

func set(fields ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// OwnerFields are the user columns embedded as an owner summary.
var OwnerFields = []string{"id", "username", "full_name", "avatar_url"}

// VideoFields are the video columns embedded as a video card.
var VideoFields = []string{"id", "owner_id", "title", "description", "video_url", "thumbnail_url",
	"duration_seconds", "views", "is_published", "created_at", "updated_at"}

// Owner joins users as alias on alias.id = ownerColumn.
func Owner(alias, ownerColumn string) One {
	return One{Table: "users", Alias: alias, On: alias + ".id = " + ownerColumn, Fields: OwnerFields}
}

// NullOwner receives a joined owner that may be missing.
type NullOwner struct {
	ID        *string
	Username  *string
	FullName  *string
	AvatarURL *string
}

// Targets returns scan destinations in OwnerFields order.
func (o *NullOwner) Targets() []any {
	return []any{&o.ID, &o.Username, &o.FullName, &o.AvatarURL}
}

// Summary returns nil when the join matched nothing.
func (o *NullOwner) Summary() *models.OwnerSummary {
	if o.ID == nil {
		return nil
	}
	return &models.OwnerSummary{
		ID:        *o.ID,
		Username:  deref(o.Username),
		FullName:  deref(o.FullName),
		AvatarURL: deref(o.AvatarURL),
	}
}

// NullVideo receives a joined video that may be missing.
type NullVideo struct {
	ID           *string
	OwnerID      *string
	Title        *string
	Description  *string
	VideoURL     *string
	ThumbnailURL *string
	Duration     *int64
	Views        *int64
	IsPublished  *bool
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// Targets returns scan destinations in VideoFields order.
func (v *NullVideo) Targets() []any {
	return []any{&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt}
}

// Video returns nil when the join matched nothing.
func (v *NullVideo) Video() *models.Video {
	if v.ID == nil {
		return nil
	}
	out := &models.Video{
		ID:           *v.ID,
		OwnerID:      deref(v.OwnerID),
		Title:        deref(v.Title),
		Description:  deref(v.Description),
		VideoURL:     deref(v.VideoURL),
		ThumbnailURL: deref(v.ThumbnailURL),
	}
	if v.Duration != nil {
		out.Duration = *v.Duration
	}
	if v.Views != nil {
		out.Views = *v.Views
	}
	if v.IsPublished != nil {
		out.IsPublished = *v.IsPublished
	}
	if v.CreatedAt != nil {
		out.CreatedAt = v.CreatedAt.UTC()
	}
	if v.UpdatedAt != nil {
		out.UpdatedAt = v.UpdatedAt.UTC()
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
