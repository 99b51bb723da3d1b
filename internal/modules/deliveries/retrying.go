package deliveries

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

// RetryingRepository decorates a delivery repository with bounded
// exponential backoff for transient store failures. Only connection-class
// errors are retried; business errors (not found, duplicate assignment)
// pass through untouched. When retries exhaust, the failure surfaces as
// models.ErrStoreUnavailable.
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

func (r *RetryingRepository) Create(ctx context.Context, d *models.Delivery) error {
	return r.do(ctx, "Create", func() error { return r.next.Create(ctx, d) })
}

func (r *RetryingRepository) FindByID(ctx context.Context, id string) (*models.Delivery, error) {
	var out *models.Delivery
	err := r.do(ctx, "FindByID", func() error {
		var inner error
		out, inner = r.next.FindByID(ctx, id)
		return inner
	})
	return out, err
}

func (r *RetryingRepository) UpdateStatusCAS(ctx context.Context, id string, from, to models.DeliveryStatus) (bool, error) {
	var out bool
	err := r.do(ctx, "UpdateStatusCAS", func() error {
		var inner error
		out, inner = r.next.UpdateStatusCAS(ctx, id, from, to)
		return inner
	})
	return out, err
}

func (r *RetryingRepository) Delete(ctx context.Context, id string) error {
	return r.do(ctx, "Delete", func() error { return r.next.Delete(ctx, id) })
}

func (r *RetryingRepository) Snapshot(ctx context.Context, id string) (*models.TrackingSnapshot, error) {
	var out *models.TrackingSnapshot
	err := r.do(ctx, "Snapshot", func() error {
		var inner error
		out, inner = r.next.Snapshot(ctx, id)
		return inner
	})
	return out, err
}

func (r *RetryingRepository) do(ctx context.Context, method string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) {
			return lastErr
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
		r.log.Warn().
			Str("method", method).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("delivery store retry")
		if !r.sleep(ctx, delay) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %s", models.ErrStoreUnavailable, lastErr)
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
