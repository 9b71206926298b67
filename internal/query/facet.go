package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/models"
)

// Querier is the read surface shared by pgx transactions and connections.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Facet runs the count branch and then the window branch of plan against q. Callers provide
// snapshot isolation by passing a transaction; Paginate does that for them.
func Facet[T any](ctx context.Context, q Querier, plan Plan, scan pgx.RowToFunc[T]) (models.Page[T], error) {
	page := models.Page[T]{Metadata: Meta(0, plan.Page), Data: []T{}}

	var total int64
	if err := q.QueryRow(ctx, plan.Count.SQL, plan.Count.Args...).Scan(&total); err != nil {
		return page, fmt.Errorf("count branch: %w", err)
	}
	page.Metadata = Meta(total, plan.Page)

	if total == 0 || plan.Page.Offset() >= total {
		return page, nil
	}

	data, err := Collect(ctx, q, plan.Data, scan)
	if err != nil {
		return page, fmt.Errorf("window branch: %w", err)
	}
	page.Data = data
	return page, nil
}

// Collect runs st and scans every row. The result is never nil.
func Collect[T any](ctx context.Context, q Querier, st Statement, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := q.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Paginate executes plan inside a read-only snapshot so both branches agree.
func Paginate[T any](ctx context.Context, pool db.Pool, plan Plan, scan pgx.RowToFunc[T]) (models.Page[T], error) {
	var page models.Page[T]
	err := db.ReadOnly(ctx, pool, func(tx pgx.Tx) error {
		var err error
		page, err = Facet(ctx, tx, plan, scan)
		return err
	})
	if err != nil {
		return models.Page[T]{Metadata: Meta(0, plan.Page), Data: []T{}}, err
	}
	return page, nil
}
