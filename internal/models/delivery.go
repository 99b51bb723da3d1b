// Package models defines the data structures shared across the delivery
// tracking service: persisted entities, request/response shapes, broadcast
// events and the delivery status state machine.
package models

import "time"

// DeliveryStatus enumerates the lifecycle states of a delivery.
type DeliveryStatus string

const (
	StatusPending    DeliveryStatus = "pending"
	StatusAssigned   DeliveryStatus = "assigned"
	StatusInProgress DeliveryStatus = "in_progress"
	StatusDelivered  DeliveryStatus = "delivered"
	StatusCancelled  DeliveryStatus = "cancelled"
)

// deliveryTransitions is the directed graph of legal status moves:
// forward one step at a time, or to cancelled from any non-terminal state.
// delivered and cancelled are terminal.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Valid reports whether s is a recognized delivery status value.
func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryTransitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted out of s.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Delivery represents one physical handoff of an order to a customer.
// DriverID is set at assignment and never reassigned. Location is mutated
// only by the location ingest path.
type Delivery struct {
	ID                    string         `json:"id"`
	OrderID               string         `json:"order_id"`
	DriverID              string         `json:"driver_id"`
	Status                DeliveryStatus `json:"status"`
	Longitude             float64        `json:"longitude"`
	Latitude              float64        `json:"latitude"`
	EstimatedDeliveryTime time.Time      `json:"estimated_delivery_time"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Active reports whether the delivery still occupies its order and driver.
func (d *Delivery) Active() bool {
	return !d.Status.Terminal()
}

// AssignDeliveryRequest is the body for assigning a driver to an order.
// Location is a [longitude, latitude] pair.
type AssignDeliveryRequest struct {
	DriverID string    `json:"driver_id" validate:"required,uuid4"`
	Location []float64 `json:"location" validate:"required,len=2"`
}

// UpdateDeliveryStatusRequest is the body for a status transition.
type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TrackingSnapshot is the read-path view of a delivery: current status,
// last known location and the estimate fixed at assignment time.
type TrackingSnapshot struct {
	DeliveryID            string         `json:"delivery_id"`
	Status                DeliveryStatus `json:"status"`
	Location              []float64      `json:"location"` // [longitude, latitude]
	EstimatedDeliveryTime time.Time      `json:"estimated_delivery_time"`
}
