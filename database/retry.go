package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

var (
	retryMaxElapsed      = 10 * time.Second
	retryInitialInterval = 100 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
	retryMaxRetries      = uint64(5)
)

// isRetryableError reports whether err is a transient SQLite lock condition.
func isRetryableError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// withRetry runs operation, retrying with exponential backoff while the database is busy.
func withRetry(ctx context.Context, operation func(context.Context) error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(retryMaxElapsed),
		backoff.WithInitialInterval(retryInitialInterval),
		backoff.WithMaxInterval(retryMaxInterval),
	), retryMaxRetries)

	var lastErr error
	err := backoff.Retry(func() error {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		lastErr = err
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil && !errors.Is(err, lastErr) {
			return fmt.Errorf("database operation failed after retries: %w", lastErr)
		}
		return err
	}
	return nil
}

// exec runs a write statement under the busy-retry policy.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
