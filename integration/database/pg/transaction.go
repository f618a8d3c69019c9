package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txKey carries the ambient transaction through a context. Unexported so the
// contract stays private to WithTx and TxFromContext.
type txKey struct{}

// WithTx returns a context carrying tx. Storage implementations that support
// ambient transactions call TxFromContext and run their queries on the
// transaction instead of the pool. A nil tx leaves ctx untouched.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext extracts the transaction attached by WithTx. The boolean
// reports whether one was present.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// RunInTx executes fn within a database transaction. The transaction is
// attached to the context passed to fn, so storage implementations that call
// TxFromContext participate in the same transaction.
//
// If fn returns an error, the transaction is rolled back. If fn panics, the
// transaction is rolled back and the panic is re-raised. Otherwise the
// transaction is committed.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}
