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

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

const playlistColumns = `id, owner_id, name, description, created_at, updated_at`

func playlistTargets(p *models.Playlist) []any {
	return []any{&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt}
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var p models.Playlist
	if err := row.Scan(playlistTargets(&p)...); err != nil {
		return models.Playlist{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// Create stores an empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	return translate(err, "insert playlist")
}

// ListForUser pages through the playlists of ownerID, newest first, with their video counts.
func (r *PostgresPlaylistRepository) ListForUser(ctx context.Context, ownerID string, page query.Page) (models.Page[models.PlaylistSummary], error) {
	plan, err := query.From("playlists", "p").
		Select(qualify("p", []string{"id", "owner_id", "name", "description", "created_at", "updated_at"})...).
		JoinCount(query.Count{Table: "playlist_videos", Alias: "pv", Where: "pv.playlist_id = p.id", As: "video_count"}).
		Match("p.owner_id", ownerID).
		Sort(query.Sort{Column: "p.created_at", Desc: true}).
		Paginate(page).
		Build()
	if err != nil {
		return models.Page[models.PlaylistSummary]{}, err
	}

	return query.Paginate(ctx, r.pool, plan, func(row pgx.CollectableRow) (models.PlaylistSummary, error) {
		var summary models.PlaylistSummary
		if err := row.Scan(append(playlistTargets(&summary.Playlist), &summary.VideoCount)...); err != nil {
			return models.PlaylistSummary{}, err
		}
		summary.CreatedAt = summary.CreatedAt.UTC()
		summary.UpdatedAt = summary.UpdatedAt.UTC()
		return summary, nil
	})
}

// Detail loads a playlist with its owner and its videos in playlist order. Unpublished videos are
// only listed when viewerID owns them.
func (r *PostgresPlaylistRepository) Detail(ctx context.Context, id, viewerID string) (models.PlaylistDetail, error) {
	videos, err := query.From("playlist_videos", "pv").
		KeyedBy("pv.video_id").
		JoinOne(query.One{Table: "videos", Alias: "v", On: "v.id = pv.video_id", Fields: query.VideoFields}).
		JoinOne(query.Owner("o", "v.owner_id")).
		JoinCount(likesOf("video_id", "v.id")).
		Match("pv.playlist_id", id).
		MatchNotNull("v.id").
		Sort(query.Sort{Column: "pv.position"}).
		BuildList()
	if err != nil {
		return models.PlaylistDetail{}, err
	}

	var detail models.PlaylistDetail
	err = db.ReadOnly(ctx, r.pool, func(tx pgx.Tx) error {
		var owner query.NullOwner
		targets := append(playlistTargets(&detail.Playlist), owner.Targets()...)
		if err := tx.QueryRow(ctx, `
            SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
                o.id, o.username, o.full_name, o.avatar_url
            FROM playlists p
            LEFT JOIN users o ON o.id = p.owner_id
            WHERE p.id = $1
        `, id).Scan(targets...); err != nil {
			return err
		}
		detail.Owner = owner.Summary()

		cards, err := query.Collect(ctx, tx, videos, scanVideoCard)
		if err != nil {
			return err
		}
		detail.Videos = make([]models.VideoCard, 0, len(cards))
		for _, card := range cards {
			if !card.IsPublished && card.OwnerID != viewerID {
				continue
			}
			detail.Videos = append(detail.Videos, card)
		}
		return nil
	})
	if err != nil {
		return models.PlaylistDetail{}, translate(err, "select playlist")
	}
	detail.CreatedAt = detail.CreatedAt.UTC()
	detail.UpdatedAt = detail.UpdatedAt.UTC()
	return detail, nil
}

// AddVideo appends videoID to a playlist owned by ownerID. A video already in the playlist yields
// ErrConflict; a missing playlist or video yields ErrNotFound.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, ownerID, videoID string, at time.Time) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var found string
		if err := tx.QueryRow(ctx, `
            SELECT id FROM playlists WHERE id = $1 AND owner_id = $2 FOR UPDATE
        `, playlistID, ownerID).Scan(&found); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
            SELECT $1::UUID, $2::UUID, COALESCE(MAX(position), 0) + 1, $3::TIMESTAMPTZ
            FROM playlist_videos WHERE playlist_id = $1
        `, playlistID, videoID, at); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, playlistID, at)
		return err
	})
	return translate(err, "add playlist video")
}

// RemoveVideo drops videoID from a playlist owned by ownerID. ErrNotFound is returned when the
// video is not in the playlist.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, ownerID, videoID string, at time.Time) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM playlist_videos
            WHERE playlist_id = $1 AND video_id = $2
              AND EXISTS (SELECT 1 FROM playlists p WHERE p.id = $1 AND p.owner_id = $3)
        `, playlistID, videoID, ownerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx, `UPDATE playlists SET updated_at = $2 WHERE id = $1`, playlistID, at)
		return err
	})
	return translate(err, "remove playlist video")
}

// Update replaces the name and description of a playlist owned by ownerID.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, ownerID, name, description string, at time.Time) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, `
        UPDATE playlists SET name = $3, description = $4, updated_at = $5
        WHERE id = $1 AND owner_id = $2
        RETURNING `+playlistColumns, id, ownerID, name, description, at))
	if err != nil {
		return models.Playlist{}, translate(err, "update playlist")
	}
	return playlist, nil
}

var playlistCascade = []cascadeStep{
	{name: "entries", sql: `DELETE FROM playlist_videos WHERE playlist_id = $1`},
	{name: "playlist", sql: `DELETE FROM playlists WHERE id = $1`},
}

// Delete removes a playlist owned by ownerID and its entries. The videos themselves stay.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error) {
	result := models.CascadeResult{Entity: "playlist", ID: id}
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var found string
		if err := tx.QueryRow(ctx, `SELECT id FROM playlists WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID).Scan(&found); err != nil {
			return err
		}
		return runCascade(ctx, tx, &result, playlistCascade, id)
	})
	if err != nil {
		return models.CascadeResult{}, translate(err, "delete playlist")
	}
	return result, nil
}
