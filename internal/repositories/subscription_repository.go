package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for channel subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle subscribes subscriberID to channelID, or unsubscribes when already subscribed, and
// reports the resulting state. An unknown channel yields ErrNotFound and a self subscription ErrInvalid.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string, at time.Time) (bool, error) {
	var subscribed bool
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
        `, subscriberID, channelID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			subscribed = false
			return nil
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (subscriber_id, channel_id) DO NOTHING
        `, uuid.NewString(), subscriberID, channelID, at)
		if err != nil {
			return err
		}
		subscribed = true
		return nil
	})
	if err != nil {
		return false, translate(err, "toggle subscription")
	}
	return subscribed, nil
}

// Subscribers pages through the users subscribed to channelID, newest first.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string, page query.Page) (models.Page[models.SubscriptionEntry], error) {
	return r.list(ctx, "s.channel_id", channelID, "s.subscriber_id", page)
}

// Subscribed pages through the channels subscriberID follows, newest first.
func (r *PostgresSubscriptionRepository) Subscribed(ctx context.Context, subscriberID string, page query.Page) (models.Page[models.SubscriptionEntry], error) {
	return r.list(ctx, "s.subscriber_id", subscriberID, "s.channel_id", page)
}

func (r *PostgresSubscriptionRepository) list(ctx context.Context, matchColumn, id, joinColumn string, page query.Page) (models.Page[models.SubscriptionEntry], error) {
	plan, err := query.From("subscriptions", "s").
		Select("s.created_at").
		JoinOne(query.Owner("u", joinColumn)).
		Match(matchColumn, id).
		Sort(query.Sort{Column: "s.created_at", Desc: true}).
		Paginate(page).
		Build()
	if err != nil {
		return models.Page[models.SubscriptionEntry]{}, err
	}

	return query.Paginate(ctx, r.pool, plan, func(row pgx.CollectableRow) (models.SubscriptionEntry, error) {
		var (
			entry models.SubscriptionEntry
			user  query.NullOwner
		)
		if err := row.Scan(append([]any{&entry.SubscribedAt}, user.Targets()...)...); err != nil {
			return models.SubscriptionEntry{}, err
		}
		entry.SubscribedAt = entry.SubscribedAt.UTC()
		entry.User = user.Summary()
		return entry, nil
	})
}
