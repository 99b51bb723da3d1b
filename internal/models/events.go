package models

// EventType discriminates the kinds of updates pushed to watchers.
type EventType string

const (
	EventStatus   EventType = "status"
	EventLocation EventType = "location"
)

// TrackingUpdate is a single broadcast event for one delivery. Status events
// carry Status; location events carry Location as [longitude, latitude].
type TrackingUpdate struct {
	Type       EventType      `json:"type"`
	DeliveryID string         `json:"delivery_id"`
	Status     DeliveryStatus `json:"status,omitempty"`
	Location   []float64      `json:"location,omitempty"`
}

// StatusUpdate builds a status broadcast event.
func StatusUpdate(deliveryID string, status DeliveryStatus) TrackingUpdate {
	return TrackingUpdate{Type: EventStatus, DeliveryID: deliveryID, Status: status}
}

// LocationUpdate builds a location broadcast event.
func LocationUpdate(deliveryID string, lon, lat float64) TrackingUpdate {
	return TrackingUpdate{Type: EventLocation, DeliveryID: deliveryID, Location: []float64{lon, lat}}
}
