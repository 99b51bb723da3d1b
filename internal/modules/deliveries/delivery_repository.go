package deliveries

import (
	"context"
	"errors"
	"fmt"

	"delivery-tracking/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE raised when the partial unique index on
// active deliveries rejects a second assignment for the same order.
const uniqueViolation = "23505"

// RepositoryInterface defines the contract for the delivery repository.
type RepositoryInterface interface {
	// Create inserts a new delivery. The partial unique index on
	// deliveries(order_id) for non-cancelled statuses closes the
	// check-then-insert race; a conflict maps to ErrDuplicateAssignment.
	Create(ctx context.Context, d *models.Delivery) error
	// FindByID returns a delivery by its UUID.
	FindByID(ctx context.Context, id string) (*models.Delivery, error)
	// UpdateStatusCAS moves the delivery from the expected status to the new
	// one in a single conditional update. It reports false when no row
	// matched, either because the delivery does not exist or because a
	// concurrent writer changed the status first.
	UpdateStatusCAS(ctx context.Context, id string, from, to models.DeliveryStatus) (bool, error)
	// Delete hard-removes the delivery regardless of its state.
	Delete(ctx context.Context, id string) error
	// Snapshot returns the read-path view: status, location and estimate.
	Snapshot(ctx context.Context, id string) (*models.TrackingSnapshot, error)
}

// Repository implements the RepositoryInterface using PostgreSQL/PostGIS.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new delivery repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const deliveryColumns = `
    id, order_id, driver_id, status,
    COALESCE(ST_X(location::geometry), 0) AS lon,
    COALESCE(ST_Y(location::geometry), 0) AS lat,
    estimated_delivery_time, created_at, updated_at`

// scanDelivery is a helper to scan a row into a Delivery model.
func scanDelivery(row pgx.Row) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(
		&d.ID,
		&d.OrderID,
		&d.DriverID,
		&d.Status,
		&d.Longitude,
		&d.Latitude,
		&d.EstimatedDeliveryTime,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}

// Create inserts a new delivery into the database.
func (r *Repository) Create(ctx context.Context, d *models.Delivery) error {
	query := `
        INSERT INTO deliveries (id, order_id, driver_id, status, location, estimated_delivery_time)
        VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		d.ID, d.OrderID, d.DriverID, d.Status, d.Longitude, d.Latitude, d.EstimatedDeliveryTime).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrDuplicateAssignment
		}
		return fmt.Errorf("repository.CreateDelivery: %w", err)
	}
	return nil
}

// FindByID retrieves a single delivery by its ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	d, err := scanDelivery(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindDeliveryByID: %w", err)
	}
	return d, nil
}

// UpdateStatusCAS performs the compare-and-set status update. Matching on the
// expected current status serializes concurrent transitions: of two writers
// that both read the same prior state, only one can win.
func (r *Repository) UpdateStatusCAS(ctx context.Context, id string, from, to models.DeliveryStatus) (bool, error) {
	query := `
        UPDATE deliveries
        SET status = $3, updated_at = now()
        WHERE id = $1 AND status = $2`
	cmd, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("repository.UpdateDeliveryStatus: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// Delete removes the delivery row unconditionally. The administrative hard
// delete does not participate in the state machine.
func (r *Repository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.DeleteDelivery: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Snapshot reads the current status, location and fixed delivery estimate.
func (r *Repository) Snapshot(ctx context.Context, id string) (*models.TrackingSnapshot, error) {
	query := `
        SELECT id, status,
               COALESCE(ST_X(location::geometry), 0) AS lon,
               COALESCE(ST_Y(location::geometry), 0) AS lat,
               estimated_delivery_time
        FROM deliveries WHERE id = $1`
	var (
		snap     models.TrackingSnapshot
		lon, lat float64
	)
	err := r.db.QueryRow(ctx, query, id).
		Scan(&snap.DeliveryID, &snap.Status, &lon, &lat, &snap.EstimatedDeliveryTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.DeliverySnapshot: %w", err)
	}
	snap.Location = []float64{lon, lat}
	return &snap, nil
}
