package repositories

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/models"
)

// PostgresDashboardRepository computes channel statistics.
type PostgresDashboardRepository struct {
	pool db.Pool
}

// NewPostgresDashboardRepository constructs a dashboard repository backed by PostgreSQL.
func NewPostgresDashboardRepository(pool db.Pool) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{pool: pool}
}

// Stats aggregates the totals of channelID. Each total runs on its own connection.
func (r *PostgresDashboardRepository) Stats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	var stats models.ChannelStats
	g, ctx := errgroup.WithContext(ctx)

	totals := []struct {
		name string
		sql  string
		dst  *int64
	}{
		{"videos", `SELECT COUNT(*) FROM videos WHERE owner_id = $1`, &stats.TotalVideos},
		{"views", `SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1`, &stats.TotalViews},
		{"likes", `SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = $1`, &stats.TotalLikes},
		{"subscribers", `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, &stats.TotalSubscribers},
	}
	for _, total := range totals {
		g.Go(func() error {
			conn, err := r.pool.Acquire(ctx)
			if err != nil {
				return fmt.Errorf("acquire connection: %w", err)
			}
			defer conn.Release()

			if err := conn.QueryRow(ctx, total.sql, channelID).Scan(total.dst); err != nil {
				return fmt.Errorf("count %s: %w", total.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ChannelStats{}, err
	}
	return stats, nil
}
