package db

import (
	"context"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
)

var (
	readWrite = pgx.TxOptions{IsoLevel: pgx.Serializable}
	readOnly  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// InTx runs fn in a serializable transaction, retrying it on serialization failures.
// fn may run more than once and must not have side effects outside tx.
func InTx(ctx context.Context, pool Pool, fn func(pgx.Tx) error) error {
	return execute(ctx, pool, readWrite, fn)
}

// ReadOnly runs fn in a read-only snapshot.
func ReadOnly(ctx context.Context, pool Pool, fn func(pgx.Tx) error) error {
	return execute(ctx, pool, readOnly, fn)
}

func execute(ctx context.Context, pool Pool, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return crdbpgx.ExecuteTx(ctx, conn, opts, fn)
}
