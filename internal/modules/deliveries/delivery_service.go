// Package deliveries owns the delivery lifecycle: assignment, the status
// state machine, the administrative hard delete and the tracking snapshot
// read path. All delivery mutations flow through this service; callers never
// touch the store directly.
package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivery-tracking/internal/hub"
	"delivery-tracking/internal/models"
	"delivery-tracking/internal/modules/drivers"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServiceInterface defines the contract for the delivery service.
type ServiceInterface interface {
	Assign(ctx context.Context, orderID string, req models.AssignDeliveryRequest) (*models.Delivery, error)
	UpdateStatus(ctx context.Context, deliveryID, newStatus string) (*models.Delivery, error)
	Get(ctx context.Context, deliveryID string) (*models.Delivery, error)
	Delete(ctx context.Context, deliveryID string) error
	TrackingSnapshot(ctx context.Context, deliveryID string) (*models.TrackingSnapshot, error)
}

// Service implements the delivery lifecycle logic.
type Service struct {
	repo    RepositoryInterface
	drivers drivers.RepositoryInterface
	hub     *hub.Hub
	horizon time.Duration
	log     zerolog.Logger
}

// NewService creates a new delivery service. horizon is the fixed interval
// added to the assignment time to produce the delivery estimate.
func NewService(repo RepositoryInterface, driverRepo drivers.RepositoryInterface, h *hub.Hub, horizon time.Duration, log zerolog.Logger) *Service {
	return &Service{repo: repo, drivers: driverRepo, hub: h, horizon: horizon, log: log}
}

// Assign creates a delivery for the order in the pending state. The store's
// partial unique index guarantees at most one non-cancelled delivery per
// order even under concurrent assignment attempts; the losing insert comes
// back as ErrDuplicateAssignment.
func (s *Service) Assign(ctx context.Context, orderID string, req models.AssignDeliveryRequest) (*models.Delivery, error) {
	if err := models.ValidateCoordinates(req.Location); err != nil {
		return nil, err
	}

	driver, err := s.drivers.FindByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.Status != models.DriverAvailable {
		return nil, models.ErrDriverUnavailable
	}

	now := time.Now().UTC()
	d := &models.Delivery{
		ID:                    uuid.New().String(),
		OrderID:               orderID,
		DriverID:              driver.ID,
		Status:                models.StatusPending,
		Longitude:             req.Location[0],
		Latitude:              req.Location[1],
		EstimatedDeliveryTime: now.Add(s.horizon),
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, models.ErrDuplicateAssignment) {
			return nil, models.ErrDuplicateAssignment
		}
		return nil, fmt.Errorf("service.AssignDelivery: %w", err)
	}

	if err := s.drivers.UpdateStatus(ctx, driver.ID, models.DriverAssigned); err != nil {
		// The delivery record is authoritative; a failed mirror update is
		// logged and corrected by the next transition.
		s.log.Error().Err(err).
			Str("driver_id", driver.ID).
			Str("delivery_id", d.ID).
			Msg("failed to mirror driver status after assignment")
	}

	s.log.Info().
		Str("delivery_id", d.ID).
		Str("order_id", orderID).
		Str("driver_id", driver.ID).
		Msg("delivery assigned")
	return d, nil
}

// UpdateStatus validates and applies a status transition, then broadcasts
// the new status to watchers. Transitions are legal only along
// pending → assigned → in_progress → delivered, or to cancelled from any
// non-terminal state. The conditional update in the store serializes
// concurrent transitions on the same delivery.
func (s *Service) UpdateStatus(ctx context.Context, deliveryID, newStatus string) (*models.Delivery, error) {
	next := models.DeliveryStatus(newStatus)
	if !next.Valid() {
		return nil, models.ErrUnknownStatus
	}

	current, err := s.repo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, models.ErrInvalidTransition
	}

	ok, err := s.repo.UpdateStatusCAS(ctx, deliveryID, current.Status, next)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateDeliveryStatus: %w", err)
	}
	if !ok {
		// Either the record vanished or a concurrent writer moved the status
		// first. Re-read to tell the two apart.
		if _, err := s.repo.FindByID(ctx, deliveryID); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidTransition
	}

	s.mirrorDriverStatus(ctx, current.DriverID, next)
	s.hub.Publish(models.StatusUpdate(deliveryID, next))

	s.log.Info().
		Str("delivery_id", deliveryID).
		Str("from", string(current.Status)).
		Str("to", string(next)).
		Msg("delivery status updated")

	updated := *current
	updated.Status = next
	updated.UpdatedAt = time.Now().UTC()
	return &updated, nil
}

// Get retrieves a single delivery.
func (s *Service) Get(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	return s.repo.FindByID(ctx, deliveryID)
}

// Delete hard-removes a delivery. Administrative cleanup only; it bypasses
// the state machine on purpose.
func (s *Service) Delete(ctx context.Context, deliveryID string) error {
	return s.repo.Delete(ctx, deliveryID)
}

// TrackingSnapshot returns the current status, location and estimate.
func (s *Service) TrackingSnapshot(ctx context.Context, deliveryID string) (*models.TrackingSnapshot, error) {
	return s.repo.Snapshot(ctx, deliveryID)
}

// mirrorDriverStatus keeps the driver's status aligned with the delivery's.
// The mirror is advisory; failures are logged, never surfaced to the caller.
func (s *Service) mirrorDriverStatus(ctx context.Context, driverID string, status models.DeliveryStatus) {
	var mirrored models.DriverStatus
	switch status {
	case models.StatusAssigned:
		mirrored = models.DriverAssigned
	case models.StatusInProgress:
		mirrored = models.DriverInProgress
	case models.StatusDelivered, models.StatusCancelled:
		mirrored = models.DriverAvailable
	default:
		return
	}
	if err := s.drivers.UpdateStatus(ctx, driverID, mirrored); err != nil {
		s.log.Error().Err(err).
			Str("driver_id", driverID).
			Str("status", string(mirrored)).
			Msg("failed to mirror driver status")
	}
}
