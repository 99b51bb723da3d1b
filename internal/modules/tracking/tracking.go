// Package tracking ingests driver location reports and serves the live
// tracking stream. A report updates the driver and its active delivery in
// one transaction, then fans the new position out to watchers through the
// broadcast hub.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"delivery-tracking/internal/hub"
	"delivery-tracking/internal/models"
	"delivery-tracking/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ------------------- Repository Layer -------------------

// RepositoryInterface declares the store operations for location ingest.
type RepositoryInterface interface {
	// ReportDriverLocation updates the driver's location and, when the
	// driver has an active (non-terminal) delivery, that delivery's
	// location, atomically in one transaction. It returns the active
	// delivery with its new location, or nil when the driver has none.
	ReportDriverLocation(ctx context.Context, driverID string, lon, lat float64) (*models.Delivery, error)
}

// Repository is a PostgreSQL implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository instance.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ReportDriverLocation applies both location writes inside a single
// transaction so a driver row and its delivery row can never diverge.
func (r *Repository) ReportDriverLocation(ctx context.Context, driverID string, lon, lat float64) (*models.Delivery, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("repository.ReportDriverLocation begin: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
        UPDATE drivers
        SET location = ST_SetSRID(ST_MakePoint($2, $3), 4326),
            updated_at = now()
        WHERE id = $1`, driverID, lon, lat)
	if err != nil {
		return nil, fmt.Errorf("repository.ReportDriverLocation driver: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	row := tx.QueryRow(ctx, `
        SELECT id, order_id, driver_id, status, estimated_delivery_time, created_at, updated_at
        FROM deliveries
        WHERE driver_id = $1 AND status NOT IN ('delivered', 'cancelled')
        FOR UPDATE`, driverID)

	var d models.Delivery
	err = row.Scan(&d.ID, &d.OrderID, &d.DriverID, &d.Status, &d.EstimatedDeliveryTime, &d.CreatedAt, &d.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No active delivery: the report is stored on the driver only.
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("repository.ReportDriverLocation commit: %w", err)
		}
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("repository.ReportDriverLocation lookup: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE deliveries
        SET location = ST_SetSRID(ST_MakePoint($2, $3), 4326),
            updated_at = now()
        WHERE id = $1`, d.ID, lon, lat); err != nil {
		return nil, fmt.Errorf("repository.ReportDriverLocation delivery: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.ReportDriverLocation commit: %w", err)
	}

	d.Longitude, d.Latitude = lon, lat
	return &d, nil
}

// ------------------- Service Layer -------------------

// ServiceInterface defines the location ingest operations.
type ServiceInterface interface {
	// Report validates and stores one driver location report, broadcasting
	// it to watchers of the driver's active delivery, if any.
	Report(ctx context.Context, driverID string, req models.LocationReportRequest) error
}

// Service implements ServiceInterface.
type Service struct {
	repo RepositoryInterface
	hub  *hub.Hub
	log  zerolog.Logger
}

// NewService creates a new location ingest service.
func NewService(repo RepositoryInterface, h *hub.Hub, log zerolog.Logger) *Service {
	return &Service{repo: repo, hub: h, log: log}
}

// Report validates the coordinates, persists the update and publishes a
// location event. Reports from drivers without an active delivery are
// accepted and stored but produce no subscriber notification.
func (s *Service) Report(ctx context.Context, driverID string, req models.LocationReportRequest) error {
	if err := models.ValidateCoordinates(req.Location); err != nil {
		return err
	}
	lon, lat := req.Location[0], req.Location[1]

	active, err := s.repo.ReportDriverLocation(ctx, driverID, lon, lat)
	if err != nil {
		return err
	}
	if active == nil {
		s.log.Debug().Str("driver_id", driverID).Msg("location stored, no active delivery")
		return nil
	}

	s.hub.Publish(models.LocationUpdate(active.ID, lon, lat))
	return nil
}

// ------------------- HTTP Handlers -------------------

// SnapshotProvider resolves a delivery before a watch stream is opened.
type SnapshotProvider interface {
	TrackingSnapshot(ctx context.Context, deliveryID string) (*models.TrackingSnapshot, error)
}

// Handler handles location reports and live tracking connections.
type Handler struct {
	svc       ServiceInterface
	snapshots SnapshotProvider
	hub       *hub.Hub
	log       zerolog.Logger
}

// NewHandler creates a new tracking handler.
func NewHandler(svc ServiceInterface, snapshots SnapshotProvider, h *hub.Hub, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, snapshots: snapshots, hub: h, log: log}
}

// upgrader is used to upgrade HTTP connections to WebSocket connections.
// Cross-origin checks are handled by the CORS middleware on the HTTP edge.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ReportLocation handles POST /drivers/:driverId/location requests.
func (h *Handler) ReportLocation(c echo.Context) error {
	driverID := c.Param("driverId")

	var req models.LocationReportRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.Report(c.Request().Context(), driverID, req); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// Watch handles GET /ws/deliveries/:deliveryId/track. It upgrades the
// connection, sends the current snapshot, then streams status and location
// events until the client disconnects. The subscription is torn down on any
// exit path so dead watchers never linger in the hub.
func (h *Handler) Watch(c echo.Context) error {
	deliveryID := c.Param("deliveryId")

	snap, err := h.snapshots.TrackingSnapshot(c.Request().Context(), deliveryID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := h.hub.Subscribe(deliveryID)
	defer h.hub.Unsubscribe(sub)

	// The initial snapshot lets a reconnecting client resynchronize; the
	// stream itself has no replay.
	if err := conn.WriteJSON(snap); err != nil {
		return nil
	}

	// Reader loop: we never expect payloads, but reading is how the
	// disconnect surfaces.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case ev, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug().Err(err).
					Str("delivery_id", deliveryID).
					Msg("watcher write failed, closing stream")
				return nil
			}
		}
	}
}
