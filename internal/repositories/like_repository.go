package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
)

// likeColumns maps a like target onto its column in the likes table.
var likeColumns = map[models.LikeTarget]string{
	models.LikeTargetVideo:   "video_id",
	models.LikeTargetComment: "comment_id",
	models.LikeTargetTweet:   "tweet_id",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle flips whether userID likes the target and reports the resulting state. A missing target
// yields ErrNotFound.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, target models.LikeTarget, targetID, userID string, at time.Time) (bool, error) {
	column, ok := likeColumns[target]
	if !ok {
		return false, fmt.Errorf("%w: like target %q", ErrInvalid, target)
	}

	var liked bool
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE liked_by = $1 AND `+column+` = $2`, userID, targetID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			liked = false
			return nil
		}

		// a concurrent like of the same pair leaves the row in place, which is the state we want
		_, err = tx.Exec(ctx, `
            INSERT INTO likes (id, liked_by, `+column+`, created_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT DO NOTHING
        `, uuid.NewString(), userID, targetID, at)
		if err != nil {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, translate(err, "toggle "+string(target)+" like")
	}
	return liked, nil
}

// LikedVideos pages through the videos userID liked, newest like first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string, page query.Page) (models.Page[models.LikedVideo], error) {
	plan, err := query.From("likes", "l").
		Select("l.id", "l.created_at").
		JoinOne(query.One{Table: "videos", Alias: "v", On: "v.id = l.video_id", Fields: query.VideoFields}).
		JoinOne(query.Owner("o", "v.owner_id")).
		JoinCount(likesOf("video_id", "v.id")).
		Match("l.liked_by", userID).
		MatchNotNull("l.video_id").
		Sort(query.Sort{Column: "l.created_at", Desc: true}).
		Paginate(page).
		Build()
	if err != nil {
		return models.Page[models.LikedVideo]{}, err
	}

	return query.Paginate(ctx, r.pool, plan, func(row pgx.CollectableRow) (models.LikedVideo, error) {
		var (
			entry models.LikedVideo
			video query.NullVideo
			owner query.NullOwner
			likes int64
		)
		targets := append([]any{&entry.LikeID, &entry.LikedAt}, video.Targets()...)
		targets = append(targets, owner.Targets()...)
		targets = append(targets, &likes)
		if err := row.Scan(targets...); err != nil {
			return models.LikedVideo{}, err
		}
		entry.LikedAt = entry.LikedAt.UTC()
		entry.Video = joinedVideoCard(&video, &owner, likes)
		return entry, nil
	})
}
