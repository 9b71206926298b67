package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/ownership"
)

var ownerQueries = map[ownership.Kind]string{
	ownership.Video:    `SELECT owner_id FROM videos WHERE id = $1`,
	ownership.Comment:  `SELECT owner_id FROM comments WHERE id = $1`,
	ownership.Tweet:    `SELECT owner_id FROM tweets WHERE id = $1`,
	ownership.Playlist: `SELECT owner_id FROM playlists WHERE id = $1`,
}

// PostgresOwnerLookup resolves entity owners for the ownership guard.
type PostgresOwnerLookup struct {
	pool db.Pool
}

// NewPostgresOwnerLookup constructs an owner lookup backed by PostgreSQL.
func NewPostgresOwnerLookup(pool db.Pool) *PostgresOwnerLookup {
	return &PostgresOwnerLookup{pool: pool}
}

// OwnerOf returns the owner of the entity, or found=false when it does not exist.
func (l *PostgresOwnerLookup) OwnerOf(ctx context.Context, kind ownership.Kind, id string) (string, bool, error) {
	sql, ok := ownerQueries[kind]
	if !ok {
		return "", false, fmt.Errorf("unknown entity kind %q", kind)
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return "", false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var ownerID string
	if err := conn.QueryRow(ctx, sql, id).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select %s owner: %w", kind, err)
	}
	return ownerID, true, nil
}

var _ ownership.Lookup = (*PostgresOwnerLookup)(nil)
