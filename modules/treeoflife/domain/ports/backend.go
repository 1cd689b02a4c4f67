package ports

import "context"

// Beginner opens a unit of work against the relational backend.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the execute/query contract the tree store is written against.
// Statements use $N positional placeholders.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row reports ErrNoRows from Scan when the query matched nothing.
type Row interface {
	Scan(dest ...any) error
}
