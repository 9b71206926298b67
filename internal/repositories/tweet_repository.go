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

// TweetSortable maps the public sort keys of tweet listings to columns.
var TweetSortable = query.SortFields{"createdAt": "t.created_at"}

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

const tweetColumns = `id, owner_id, content, created_at, updated_at`

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var t models.Tweet
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Tweet{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// Create stores a tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	return translate(err, "insert tweet")
}

// ListForUser pages through the tweets of ownerID.
func (r *PostgresTweetRepository) ListForUser(ctx context.Context, ownerID string, list query.List) (models.Page[models.TweetView], error) {
	plan, err := query.From("tweets", "t").
		Select(qualify("t", []string{"id", "owner_id", "content", "created_at", "updated_at"})...).
		JoinOne(query.Owner("o", "t.owner_id")).
		JoinCount(likesOf("tweet_id", "t.id")).
		Match("t.owner_id", ownerID).
		Sort(list.Sort).
		Paginate(list.Page).
		Build()
	if err != nil {
		return models.Page[models.TweetView]{}, err
	}

	return query.Paginate(ctx, r.pool, plan, func(row pgx.CollectableRow) (models.TweetView, error) {
		var (
			view  models.TweetView
			owner query.NullOwner
		)
		targets := append([]any{&view.ID, &view.OwnerID, &view.Content, &view.CreatedAt, &view.UpdatedAt}, owner.Targets()...)
		targets = append(targets, &view.Likes)
		if err := row.Scan(targets...); err != nil {
			return models.TweetView{}, err
		}
		view.CreatedAt = view.CreatedAt.UTC()
		view.UpdatedAt = view.UpdatedAt.UTC()
		view.Owner = owner.Summary()
		return view, nil
	})
}

// Update replaces the content of a tweet owned by ownerID.
func (r *PostgresTweetRepository) Update(ctx context.Context, id, ownerID, content string, at time.Time) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tweet, err := scanTweet(conn.QueryRow(ctx, `
        UPDATE tweets SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING `+tweetColumns, id, ownerID, content, at))
	if err != nil {
		return models.Tweet{}, translate(err, "update tweet")
	}
	return tweet, nil
}

var tweetCascade = []cascadeStep{
	{name: "likes", sql: `DELETE FROM likes WHERE tweet_id = $1`},
	{name: "tweet", sql: `DELETE FROM tweets WHERE id = $1`},
}

// Delete removes a tweet owned by ownerID and its likes.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error) {
	result := models.CascadeResult{Entity: "tweet", ID: id}
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var found string
		if err := tx.QueryRow(ctx, `SELECT id FROM tweets WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID).Scan(&found); err != nil {
			return err
		}
		return runCascade(ctx, tx, &result, tweetCascade, id)
	})
	if err != nil {
		return models.CascadeResult{}, translate(err, "delete tweet")
	}
	return result, nil
}
