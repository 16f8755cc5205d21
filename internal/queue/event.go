// Package queue carries booking notifications from the API to the in-game
// SRS endpoint. Events are published to a broker (RabbitMQ or NATS) after
// the database transaction commits; a consumer delivers them over HTTP with
// its own retry policy.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names an event and selects its SRS endpoint.
type Kind string

const (
	KindBookingCreated   Kind = "booking.created"
	KindBookingCancelled Kind = "booking.cancelled"
	KindCheckedIn        Kind = "booking.checked_in"
)

// Endpoint returns the SRS path for the event kind.
func (k Kind) Endpoint() (string, error) {
	switch k {
	case KindBookingCreated:
		return "booking/create", nil
	case KindBookingCancelled:
		return "booking/cancel", nil
	case KindCheckedIn:
		return "checkin", nil
	}
	return "", fmt.Errorf("unknown event kind %q", k)
}

// Event is the broker envelope. Payload is the exact JSON body sent to SRS.
type Event struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// BookingPayload is sent when a booking is created.
type BookingPayload struct {
	PassengerID  string `json:"passengerId"`
	Flight       string `json:"flight"`
	Departing    string `json:"departing"`
	Arriving     string `json:"arriving"`
	Aircraft     string `json:"aircraft"`
	Confirmation string `json:"confirmation"`
	CheckInTime  string `json:"checkInTime"`
}

// CancelPayload is sent when a booking is removed. Manual is false when the
// cancellation came from a flight deletion rather than the passenger.
type CancelPayload struct {
	PassengerID  string `json:"passengerId"`
	Flight       string `json:"flight"`
	Departing    string `json:"departing"`
	Arriving     string `json:"arriving"`
	Confirmation string `json:"confirmation"`
	Manual       bool   `json:"manual"`
}

// CheckinPayload carries the boarding pass image, base64 encoded.
type CheckinPayload struct {
	PassengerID  string `json:"passengerId"`
	Flight       string `json:"flight"`
	Confirmation string `json:"confirmation"`
	Bytes        string `json:"bytes"`
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(kind Kind, payload any, now time.Time) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Event{ID: uuid.NewString(), Kind: kind, OccurredAt: now.UTC(), Payload: body}, nil
}
