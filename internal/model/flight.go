package model

import "time"

// Flight mirrors the `flights` table. Seats and Booked form the seat
// ledger: Booked is only ever changed by booking and cancellation, never
// by an administrative edit.
type Flight struct {
	ID          string    `json:"id"`
	Origin      string    `json:"from"`
	Destination string    `json:"to"`
	Aircraft    string    `json:"aircraft"`
	Departure   time.Time `json:"departure"`
	Seats       int       `json:"seats"`
	Booked      int       `json:"booked"`
	AcftReg     string    `json:"acftReg"`
	DeptGate    string    `json:"deptGate"`
	ArrGate     string    `json:"arrGate"`

	CodeshareIDs     string `json:"codeshareIds,omitempty"`
	Host             string `json:"host,omitempty"`
	DiscordEventID   string `json:"discordEventId,omitempty"`
	RobloxServerLink string `json:"robloxPrivateServerLink,omitempty"`
}

// Available returns the number of unbooked seats, never negative.
func (f Flight) Available() int {
	if n := f.Seats - f.Booked; n > 0 {
		return n
	}
	return 0
}
