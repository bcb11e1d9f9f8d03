package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// RetryPolicy bounds the retry loop around a storage transaction.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Timeout caps each attempt.
	Timeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond, Timeout: 5 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff <= 0 {
		p.Backoff = def.Backoff
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// delay is the wait before the attempt following attempt n (1-indexed).
func (p RetryPolicy) delay(n int) time.Duration {
	return p.Backoff << (n - 1)
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// runs out of attempts. Exhaustion is reported as ErrTransientStorage.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.retry.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !isTransient(err) || ctx.Err() != nil {
			return err
		}
		last = err
		e.observer.VoteRetried(op)
		e.logger.Warn("retrying storage transaction",
			"event", "tournament_retry",
			"op", op,
			"attempt", attempt,
			"error", err.Error(),
		)
		if attempt == e.retry.MaxAttempts {
			break
		}
		timer := time.NewTimer(e.retry.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrTransientStorage, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s gave up after %d attempts: %w", op, e.retry.MaxAttempts, asTransient(last))
}

func asTransient(err error) error {
	if errors.Is(err, ErrTransientStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientStorage, err)
}

var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement_timeout)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientStorage) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCodes[pgErr.Code]
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
