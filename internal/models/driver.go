package models

import (
	"time"
)

// DriverStatus enumerates the states of a delivery agent. It mirrors, but is
// not identical to, the status of the driver's active delivery.
type DriverStatus string

const (
	DriverAvailable  DriverStatus = "available"
	DriverAssigned   DriverStatus = "assigned"
	DriverInProgress DriverStatus = "in_progress"
	DriverOffline    DriverStatus = "offline"
)

// Valid reports whether s is a recognized driver status value.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverAvailable, DriverAssigned, DriverInProgress, DriverOffline:
		return true
	}
	return false
}

// Driver represents a delivery agent. Drivers are referenced by deliveries
// (driver_id) but not owned by them; a driver has at most one active delivery
// at a time, enforced at assignment.
type Driver struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Contact   *string      `json:"contact,omitempty"`
	Email     *string      `json:"email,omitempty"`
	Status    DriverStatus `json:"status"`
	Longitude float64      `json:"longitude"`
	Latitude  float64      `json:"latitude"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CreateDriverRequest is the body for registering a new driver.
type CreateDriverRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

// LocationReportRequest is a single driver location report.
// Location is a [longitude, latitude] pair.
type LocationReportRequest struct {
	Location []float64 `json:"location" validate:"required,len=2"`
}
