package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Serialization failures under REPEATABLE READ are expected when two
// documents race on the same stock row. They are safe to rerun.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	maxAttempts          = 3
)

type sqlStater interface {
	SQLState() string
}

func retryable(err error) bool {
	var state sqlStater
	if !errors.As(err, &state) {
		return false
	}
	code := state.SQLState()
	return code == serializationFailure || code == deadlockDetected
}

// WithTx runs fn inside a REPEATABLE READ transaction, retrying a bounded
// number of times on serialization failures. fn must be idempotent up to
// its own writes, which roll back with the transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = runTx(ctx, pool, fn)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return fmt.Errorf("platform/db: tx retries exhausted: %w", lastErr)
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}
