package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const TxKey contextKey = "db_tx"

// TxFromContext retrieves the in-flight transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}

// TxRunner executes a function inside a single database transaction.
// Repositories participate by reading the transaction back out of the
// context they are handed.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type pgTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner returns a TxRunner backed by the given pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgTxRunner{pool: pool}
}

func (r *pgTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, TxKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
