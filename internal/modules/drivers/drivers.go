// Package drivers manages the driver registry: the agents that deliveries
// are assigned to, together with their mirrored status and last location.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"delivery-tracking/internal/models"
	"delivery-tracking/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// ------------------- Repository Layer -------------------

// RepositoryInterface declares database operations for driver records.
type RepositoryInterface interface {
	// Create inserts a new driver row.
	Create(ctx context.Context, d *models.Driver) error
	// FindByID returns a driver by its UUID.
	FindByID(ctx context.Context, id string) (*models.Driver, error)
	// List returns all drivers, optionally filtered by status.
	List(ctx context.Context, status models.DriverStatus) ([]*models.Driver, error)
	// UpdateStatus sets the driver's status value.
	UpdateStatus(ctx context.Context, id string, status models.DriverStatus) error
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository instance.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Create inserts the driver and fills in the generated timestamps.
func (r *Repository) Create(ctx context.Context, d *models.Driver) error {
	query := `
        INSERT INTO drivers (id, name, contact, email, status, location)
        VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326))
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		d.ID, d.Name, d.Contact, d.Email, d.Status, d.Longitude, d.Latitude).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateDriver: %w", err)
	}
	return nil
}

// FindByID fetches a single driver. Returns models.ErrNotFound if none exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	query := `
        SELECT id, name, contact, email, status,
               COALESCE(ST_X(location::geometry), 0) AS lon,
               COALESCE(ST_Y(location::geometry), 0) AS lat,
               created_at, updated_at
        FROM drivers WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)
	d := &models.Driver{}
	err := row.Scan(&d.ID, &d.Name, &d.Contact, &d.Email, &d.Status, &d.Longitude, &d.Latitude, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindDriverByID: %w", err)
	}
	return d, nil
}

// List retrieves drivers, all of them or only those in the given status.
func (r *Repository) List(ctx context.Context, status models.DriverStatus) ([]*models.Driver, error) {
	query := `
        SELECT id, name, contact, email, status,
               COALESCE(ST_X(location::geometry), 0) AS lon,
               COALESCE(ST_Y(location::geometry), 0) AS lat,
               created_at, updated_at
        FROM drivers
        WHERE ($1 = '' OR status = $1)
        ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("repository.ListDrivers: %w", err)
	}
	defer rows.Close()

	var out []*models.Driver
	for rows.Next() {
		d := &models.Driver{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Contact, &d.Email, &d.Status, &d.Longitude, &d.Latitude, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListDrivers scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListDrivers rows: %w", err)
	}
	return out, nil
}

// UpdateStatus changes the status of a driver.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.DriverStatus) error {
	query := `
        UPDATE drivers
        SET status = $2,
            updated_at = now()
        WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("repository.UpdateDriverStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ------------------- Service Layer -------------------

// ServiceInterface defines business logic for the driver registry.
type ServiceInterface interface {
	Register(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error)
	Get(ctx context.Context, id string) (*models.Driver, error)
	List(ctx context.Context, status string) ([]*models.Driver, error)
}

// Service implements ServiceInterface.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new driver service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Register creates a new driver in the available state.
func (s *Service) Register(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error) {
	d := &models.Driver{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Status: models.DriverAvailable,
	}
	if req.Contact != "" {
		d.Contact = &req.Contact
	}
	if req.Email != "" {
		d.Email = &req.Email
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("service.RegisterDriver: %w", err)
	}
	return d, nil
}

// Get returns a single driver.
func (s *Service) Get(ctx context.Context, id string) (*models.Driver, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns drivers, optionally filtered by a valid status value.
func (s *Service) List(ctx context.Context, status string) ([]*models.Driver, error) {
	filter := models.DriverStatus(status)
	if status != "" && !filter.Valid() {
		return nil, models.ErrUnknownStatus
	}
	return s.repo.List(ctx, filter)
}

// ------------------- HTTP Handlers -------------------

// Handler handles HTTP requests for the driver registry.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new driver handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /drivers requests.
func (h *Handler) Register(c echo.Context) error {
	var req models.CreateDriverRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	driver, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, driver)
}

// Get handles GET /drivers/:driverId requests.
func (h *Handler) Get(c echo.Context) error {
	driver, err := h.svc.Get(c.Request().Context(), c.Param("driverId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, driver)
}

// List handles GET /drivers requests with an optional ?status= filter.
func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, list)
}
