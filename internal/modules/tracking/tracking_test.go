package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/hub"
	"delivery-tracking/internal/models"
)

// stubRepo records location reports and returns a scripted active delivery.
type stubRepo struct {
	active *models.Delivery
	err    error
	calls  int
	lon    float64
	lat    float64
}

func (s *stubRepo) ReportDriverLocation(_ context.Context, driverID string, lon, lat float64) (*models.Delivery, error) {
	s.calls++
	s.lon, s.lat = lon, lat
	if s.err != nil {
		return nil, s.err
	}
	if s.active != nil {
		cp := *s.active
		cp.Longitude, cp.Latitude = lon, lat
		return &cp, nil
	}
	return nil, nil
}

func newTestService(repo RepositoryInterface) (*Service, *hub.Hub) {
	h := hub.New(8, zerolog.Nop())
	return NewService(repo, h, zerolog.Nop()), h
}

func TestService_Report_RejectsOutOfRangeCoordinates(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	svc, _ := newTestService(repo)

	err := svc.Report(context.Background(), "driver-1", models.LocationReportRequest{
		Location: []float64{200, 6.93},
	})
	assert.ErrorIs(t, err, models.ErrInvalidCoordinates)

	err = svc.Report(context.Background(), "driver-1", models.LocationReportRequest{
		Location: []float64{79.86, -95},
	})
	assert.ErrorIs(t, err, models.ErrInvalidCoordinates)

	assert.Zero(t, repo.calls, "rejected reports must not touch the store")
}

func TestService_Report_UnknownDriver(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{err: models.ErrNotFound}
	svc, _ := newTestService(repo)

	err := svc.Report(context.Background(), "driver-x", models.LocationReportRequest{
		Location: []float64{79.86, 6.93},
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_Report_NoActiveDeliveryStoresWithoutBroadcast(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	svc, h := newTestService(repo)

	sub := h.Subscribe("d1")
	defer h.Unsubscribe(sub)

	err := svc.Report(context.Background(), "driver-1", models.LocationReportRequest{
		Location: []float64{79.86, 6.93},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	select {
	case ev := <-sub.Updates():
		t.Fatalf("unexpected broadcast %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestService_Report_ActiveDeliveryBroadcastsLocation(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{active: &models.Delivery{
		ID:       "d1",
		OrderID:  "O1",
		DriverID: "driver-1",
		Status:   models.StatusInProgress,
	}}
	svc, h := newTestService(repo)

	sub := h.Subscribe("d1")
	defer h.Unsubscribe(sub)

	err := svc.Report(context.Background(), "driver-1", models.LocationReportRequest{
		Location: []float64{79.90, 6.95},
	})
	require.NoError(t, err)
	assert.Equal(t, 79.90, repo.lon)
	assert.Equal(t, 6.95, repo.lat)

	select {
	case ev := <-sub.Updates():
		assert.Equal(t, models.EventLocation, ev.Type)
		assert.Equal(t, "d1", ev.DeliveryID)
		assert.Equal(t, []float64{79.90, 6.95}, ev.Location)
	case <-time.After(time.Second):
		t.Fatal("location event was not broadcast")
	}
}
