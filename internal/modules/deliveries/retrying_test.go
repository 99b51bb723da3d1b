package deliveries

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/config"
	"delivery-tracking/internal/models"
)

// fakeRepo scripts FindByID responses per call; every other method panics.
type fakeRepo struct {
	RepositoryInterface
	findFn func(call int) (*models.Delivery, error)
	calls  atomic.Int32
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*models.Delivery, error) {
	return f.findFn(int(f.calls.Add(1)))
}

func newRetrying(next RepositoryInterface) *RetryingRepository {
	r := NewRetryingRepository(next, config.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
	}, zerolog.Nop())
	r.sleep = func(context.Context, time.Duration) bool { return true }
	return r
}

func transientErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRetryingRepository_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	want := &models.Delivery{ID: "d1"}
	next := &fakeRepo{findFn: func(call int) (*models.Delivery, error) {
		if call < 3 {
			return nil, transientErr()
		}
		return want, nil
	}}

	got, err := newRetrying(next).FindByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestRetryingRepository_BusinessErrorsPassThrough(t *testing.T) {
	t.Parallel()

	next := &fakeRepo{findFn: func(int) (*models.Delivery, error) {
		return nil, models.ErrNotFound
	}}

	_, err := newRetrying(next).FindByID(context.Background(), "d1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NotErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Equal(t, int32(1), next.calls.Load(), "business errors must not be retried")
}

func TestRetryingRepository_ExhaustionSurfacesStoreUnavailable(t *testing.T) {
	t.Parallel()

	next := &fakeRepo{findFn: func(int) (*models.Delivery, error) {
		return nil, transientErr()
	}}

	_, err := newRetrying(next).FindByID(context.Background(), "d1")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestRetryingRepository_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	next := &fakeRepo{findFn: func(int) (*models.Delivery, error) {
		return nil, transientErr()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRetrying(next).FindByID(ctx, "d1")
	require.Error(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, time.Second, 1))
	assert.Equal(t, 200*time.Millisecond, backoff(100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 10), "capped at max")
	assert.Equal(t, time.Duration(0), backoff(0, time.Second, 3))
}
