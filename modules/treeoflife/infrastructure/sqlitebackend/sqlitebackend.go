// Package sqlitebackend adapts database/sql over modernc.org/sqlite to the
// tree store's backend contract.
package sqlitebackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	_ "modernc.org/sqlite"
)

const MemoryPath = ":memory:"

type Backend struct {
	db *sql.DB
}

// Open opens a SQLite database with foreign keys enforced. The pool is
// pinned to one connection: SQLite serializes writers anyway, and an
// in-memory database exists only on the connection that created it.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// DB returns the underlying handle for custom queries.
func (b *Backend) DB() *sql.DB {
	return b.db
}

func (b *Backend) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx}, nil
}

type txAdapter struct {
	tx *sql.Tx
}

func (t *txAdapter) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}

func (t *txAdapter) Query(ctx context.Context, query string, args ...any) (ports.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rowsAdapter{rows: rows}, nil
}

func (t *txAdapter) QueryRow(ctx context.Context, query string, args ...any) ports.Row {
	return rowAdapter{row: t.tx.QueryRowContext(ctx, query, args...)}
}

func (t *txAdapter) Commit(context.Context) error { return t.tx.Commit() }

func (t *txAdapter) Rollback(context.Context) error { return t.tx.Rollback() }

type rowsAdapter struct {
	rows *sql.Rows
}

func (r rowsAdapter) Next() bool             { return r.rows.Next() }
func (r rowsAdapter) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r rowsAdapter) Err() error             { return r.rows.Err() }
func (r rowsAdapter) Close()                 { _ = r.rows.Close() }

type rowAdapter struct {
	row *sql.Row
}

func (r rowAdapter) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.ErrNoRows
		}
		return err
	}
	return nil
}
