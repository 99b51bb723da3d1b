package tracking

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"delivery-tracking/internal/config"
	"delivery-tracking/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// RetryingRepository decorates the location ingest repository with bounded
// exponential backoff for transient store failures. Only connection-class
// errors are retried; business errors (unknown driver) pass through
// untouched. When retries exhaust, the failure surfaces as
// models.ErrStoreUnavailable. The location write is idempotent, so a report
// replayed after an ambiguous failure converges on the same state.
type RetryingRepository struct {
	next  RepositoryInterface
	cfg   config.RetryConfig
	log   zerolog.Logger
	sleep func(context.Context, time.Duration) bool
}

// NewRetryingRepository wraps next with the given retry policy.
func NewRetryingRepository(next RepositoryInterface, cfg config.RetryConfig, log zerolog.Logger) *RetryingRepository {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingRepository{next: next, cfg: cfg, log: log, sleep: sleepWithContext}
}

func (r *RetryingRepository) ReportDriverLocation(ctx context.Context, driverID string, lon, lat float64) (*models.Delivery, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		out, err := r.next.ReportDriverLocation(ctx, driverID, lon, lat)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) {
			return nil, lastErr
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
		r.log.Warn().
			Str("driver_id", driverID).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("location store retry")
		if !r.sleep(ctx, delay) {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrStoreUnavailable, lastErr)
}

// isRetryable reports whether the error is a transient store failure.
func isRetryable(err error) bool {
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// backoff computes the delay before the given attempt's retry.
func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << (attempt - 1)
	if max > 0 && d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
