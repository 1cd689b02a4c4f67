// Package pgbackend adapts pgx transactions to the tree store's backend
// contract.
package pgbackend

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Backend struct {
	pool pgBeginner
}

// New wraps anything that can begin a pgx transaction: *pgxpool.Pool,
// *pgx.Conn, or a test stub.
func New(pool pgBeginner) *Backend {
	return &Backend{pool: pool}
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (b *Backend) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx}, nil
}

type txAdapter struct {
	tx pgx.Tx
}

func (t *txAdapter) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txAdapter) Query(ctx context.Context, sql string, args ...any) (ports.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *txAdapter) QueryRow(ctx context.Context, sql string, args ...any) ports.Row {
	return rowAdapter{row: t.tx.QueryRow(ctx, sql, args...)}
}

func (t *txAdapter) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *txAdapter) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type rowAdapter struct {
	row pgx.Row
}

func (r rowAdapter) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.ErrNoRows
		}
		return err
	}
	return nil
}
