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

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_url, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Password, &u.AvatarURL, &u.CoverURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return models.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// Create persists a new user record. A taken username or email yields ErrConflict.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.AvatarURL, user.CoverURL, user.CreatedAt, user.UpdatedAt)
	return translate(err, "insert user")
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByLogin fetches a user whose username or email equals login.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, login)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, sql string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, sql, arg))
	if err != nil {
		return models.User{}, translate(err, "select user")
	}
	return user, nil
}

// Exists reports whether a user with id is still present.
func (r *PostgresUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, hash, at)
	if err != nil {
		return translate(err, "update password")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile replaces the full name and email of a user and returns the stored record.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id, fullName, email string, at time.Time) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, email, at))
	if err != nil {
		return models.User{}, translate(err, "update profile")
	}
	return user, nil
}

// ReplaceAvatar points the avatar at location and returns the location it replaced.
func (r *PostgresUserRepository) ReplaceAvatar(ctx context.Context, id, location string, at time.Time) (string, error) {
	return r.replaceImage(ctx, "avatar_url", id, location, at)
}

// ReplaceCover points the cover image at location and returns the location it replaced.
func (r *PostgresUserRepository) ReplaceCover(ctx context.Context, id, location string, at time.Time) (string, error) {
	return r.replaceImage(ctx, "cover_url", id, location, at)
}

// column is one of the fixed image columns above, never caller input.
func (r *PostgresUserRepository) replaceImage(ctx context.Context, column, id, location string, at time.Time) (string, error) {
	var previous string
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT `+column+` FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&previous); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE users SET `+column+` = $2, updated_at = $3 WHERE id = $1`, id, location, at)
		return err
	})
	if err != nil {
		return "", translate(err, "replace "+column)
	}
	return previous, nil
}

// ChannelProfile loads the public profile for username with subscription counts as seen by viewerID.
// viewerID may be empty.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var viewer any
	if viewerID != "" {
		viewer = viewerID
	}

	var p models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar_url, u.cover_url, u.created_at,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
            EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2::UUID)
        FROM users u
        WHERE u.username = $1
    `, username, viewer).Scan(&p.ID, &p.Username, &p.FullName, &p.Email, &p.AvatarURL, &p.CoverURL, &p.CreatedAt,
		&p.SubscribersCount, &p.SubscribedToCount, &p.IsSubscribed)
	if err != nil {
		return models.ChannelProfile{}, translate(err, "select channel profile")
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// WatchHistory pages through the videos userID watched, most recent first. Entries whose video
// has since been removed carry a nil video.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string, page query.Page) (models.Page[models.HistoryEntry], error) {
	plan, err := query.From("watch_history", "wh").
		KeyedBy("wh.video_id").
		Select("wh.watched_at").
		JoinOne(query.One{Table: "videos", Alias: "v", On: "v.id = wh.video_id", Fields: query.VideoFields}).
		JoinOne(query.Owner("o", "v.owner_id")).
		JoinCount(likesOf("video_id", "v.id")).
		Match("wh.user_id", userID).
		Sort(query.Sort{Column: "wh.watched_at", Desc: true}).
		Paginate(page).
		Build()
	if err != nil {
		return models.Page[models.HistoryEntry]{}, err
	}

	return query.Paginate(ctx, r.pool, plan, func(row pgx.CollectableRow) (models.HistoryEntry, error) {
		var (
			entry models.HistoryEntry
			video query.NullVideo
			owner query.NullOwner
			likes int64
		)
		targets := append([]any{&entry.WatchedAt}, video.Targets()...)
		targets = append(targets, owner.Targets()...)
		targets = append(targets, &likes)
		if err := row.Scan(targets...); err != nil {
			return models.HistoryEntry{}, err
		}
		entry.WatchedAt = entry.WatchedAt.UTC()
		entry.Video = joinedVideoCard(&video, &owner, likes)
		return entry, nil
	})
}
