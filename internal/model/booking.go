package model

import "time"

// Booking mirrors the `bookings` table. The confirmation code is the
// primary identity and never changes after issue. BoardingGroup and
// BoardingPosition are assigned together on the first check-in.
type Booking struct {
	Confirmation     string     `json:"confirmationNumber"`
	UserID           string     `json:"userId"`
	Username         string     `json:"username"`
	FlightID         string     `json:"flightId"`
	BookedAt         time.Time  `json:"bookedAt"`
	BoardingGroup    string     `json:"boardingGroup,omitempty"`
	BoardingPosition int        `json:"boardingPosition,omitempty"`
	CheckedInAt      *time.Time `json:"checkedInAt,omitempty"`
}

// HasPosition reports whether a boarding slot has been assigned.
func (b Booking) HasPosition() bool {
	return b.BoardingGroup != "" && b.BoardingPosition > 0
}

// CheckedIn reports whether the booking has been checked in.
func (b Booking) CheckedIn() bool { return b.CheckedInAt != nil }
