package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
)

// VideoFilter narrows a video listing.
type VideoFilter struct {
	// OwnerID restricts the listing to one channel.
	OwnerID string
	// Search is matched literally and case-insensitively against the title.
	Search string
	// PublishedOnly hides unpublished videos.
	PublishedOnly bool
}

// VideoSortable maps the public sort keys of video listings to columns.
var VideoSortable = query.SortFields{
	"createdAt": "v.created_at",
	"views":     "v.views",
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create persists a new video.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url,
            duration_seconds, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	return translate(err, "insert video")
}

// FindByID fetches a video without enrichment.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		return models.Video{}, translate(err, "select video")
	}
	return video, nil
}

// Card fetches a video with its owner, like count and whether viewerID liked it.
func (r *PostgresVideoRepository) Card(ctx context.Context, id, viewerID string) (models.VideoCard, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoCard{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var viewer any
	if viewerID != "" {
		viewer = viewerID
	}

	var (
		card  models.VideoCard
		owner query.NullOwner
	)
	targets := append(videoTargets(&card.Video), owner.Targets()...)
	targets = append(targets, &card.Likes, &card.IsLiked)
	err = conn.QueryRow(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
            v.duration_seconds, v.views, v.is_published, v.created_at, v.updated_at,
            o.id, o.username, o.full_name, o.avatar_url,
            (SELECT COUNT(*) FROM likes lk WHERE lk.video_id = v.id),
            EXISTS (SELECT 1 FROM likes lk WHERE lk.video_id = v.id AND lk.liked_by = $2::UUID)
        FROM videos v
        LEFT JOIN users o ON o.id = v.owner_id
        WHERE v.id = $1
    `, id, viewer).Scan(targets...)
	if err != nil {
		return models.VideoCard{}, translate(err, "select video card")
	}
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	card.Owner = owner.Summary()
	return card, nil
}

// List pages through videos matching filter.
func (r *PostgresVideoRepository) List(ctx context.Context, filter VideoFilter, list query.List) (models.Page[models.VideoCard], error) {
	p := videoCards(query.From("videos", "v"))
	if filter.OwnerID != "" {
		p.Match("v.owner_id", filter.OwnerID)
	}
	if filter.PublishedOnly {
		p.Match("v.is_published", true)
	}
	if filter.Search != "" {
		p.MatchRegex("v.title", filter.Search)
	}
	plan, err := p.Sort(list.Sort).Paginate(list.Page).Build()
	if err != nil {
		return models.Page[models.VideoCard]{}, err
	}
	return query.Paginate(ctx, r.pool, plan, scanVideoCard)
}

// VideoUpdate carries the editable fields of a video. An empty ThumbnailURL keeps the current one.
type VideoUpdate struct {
	Title        string
	Description  string
	ThumbnailURL string
	UpdatedAt    time.Time
}

// Update edits a video owned by ownerID and returns it together with the thumbnail it replaced,
// empty when the thumbnail was kept.
func (r *PostgresVideoRepository) Update(ctx context.Context, id, ownerID string, update VideoUpdate) (models.Video, string, error) {
	var (
		video    models.Video
		previous string
	)
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current string
		if err := tx.QueryRow(ctx, `
            SELECT thumbnail_url FROM videos WHERE id = $1 AND owner_id = $2 FOR UPDATE
        `, id, ownerID).Scan(&current); err != nil {
			return err
		}

		thumbnail := current
		previous = ""
		if update.ThumbnailURL != "" {
			thumbnail = update.ThumbnailURL
			previous = current
		}

		var err error
		video, err = scanVideo(tx.QueryRow(ctx, `
            UPDATE videos SET title = $2, description = $3, thumbnail_url = $4, updated_at = $5
            WHERE id = $1
            RETURNING `+videoColumns, id, update.Title, update.Description, thumbnail, update.UpdatedAt))
		return err
	})
	if err != nil {
		return models.Video{}, "", translate(err, "update video")
	}
	return video, previous, nil
}

// TogglePublish flips the published flag of a video owned by ownerID.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id, ownerID string, at time.Time) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `
        UPDATE videos SET is_published = NOT is_published, updated_at = $3
        WHERE id = $1 AND owner_id = $2
        RETURNING `+videoColumns, id, ownerID, at))
	if err != nil {
		return models.Video{}, translate(err, "toggle publish")
	}
	return video, nil
}

// RecordView increments the view counter and, for a signed-in viewer, moves the video to the top
// of their watch history.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, id, viewerID string, at time.Time) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if viewerID == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
            INSERT INTO watch_history (user_id, video_id, watched_at)
            VALUES ($1, $2, $3)
            ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
        `, viewerID, id, at)
		return err
	})
	return translate(err, "record view")
}

var videoCascade = []cascadeStep{
	{name: "comment_likes", sql: `DELETE FROM likes WHERE comment_id IN (SELECT id FROM comments WHERE video_id = $1)`},
	{name: "comments", sql: `DELETE FROM comments WHERE video_id = $1`},
	{name: "likes", sql: `DELETE FROM likes WHERE video_id = $1`},
	{name: "playlist_entries", sql: `DELETE FROM playlist_videos WHERE video_id = $1`},
	{name: "watch_history", sql: `DELETE FROM watch_history WHERE video_id = $1`},
	{name: "video", sql: `DELETE FROM videos WHERE id = $1`},
}

// Delete removes a video owned by ownerID together with its comments, likes, playlist entries and
// history in one transaction. The result lists the media the video referenced.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error) {
	result := models.CascadeResult{Entity: "video", ID: id}
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var videoURL, thumbnailURL string
		if err := tx.QueryRow(ctx, `
            SELECT video_url, thumbnail_url FROM videos WHERE id = $1 AND owner_id = $2 FOR UPDATE
        `, id, ownerID).Scan(&videoURL, &thumbnailURL); err != nil {
			return err
		}
		result.Media = nonEmpty(videoURL, thumbnailURL)
		return runCascade(ctx, tx, &result, videoCascade, id)
	})
	if err != nil {
		return models.CascadeResult{}, translate(err, "delete video")
	}
	return result, nil
}
