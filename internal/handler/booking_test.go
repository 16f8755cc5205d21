package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/southwestptfs/flightdeck/internal/model"
)

type bookingResp struct {
	Booking model.Booking `json:"booking"`
}

func (s *server) book(t *testing.T, user, flightID string) model.Booking {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/bookings", user, map[string]string{"flightId": flightID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book %s on %s: status %d, body %s", user, flightID, rec.Code, rec.Body)
	}
	return decode[bookingResp](t, rec).Booking
}

func TestBookingCreate(t *testing.T) {
	s := newServer(t)
	for _, id := range []string{"1", "2", "3"} {
		s.addUser(t, id)
	}
	s.addFlight(t, "SWA100", 2, start.Add(3*time.Hour))
	s.addFlight(t, "SWA101", 2, start.Add(30*time.Minute))

	b := s.book(t, "1", "SWA100")
	if len(b.Confirmation) != 6 || b.UserID != "1" || b.Username != "pilot1" {
		t.Fatalf("booking = %+v", b)
	}

	tests := []struct {
		name   string
		user   string
		flight string
		status int
		code   string
	}{
		{"duplicate", "1", "SWA100", http.StatusConflict, "duplicate_booking"},
		{"unknown flight", "2", "NOPE", http.StatusNotFound, "flight_not_found"},
		{"inside cutoff", "2", "SWA101", http.StatusBadRequest, "flight_departed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/bookings", tc.user, map[string]string{"flightId": tc.flight})
			if rec.Code != tc.status || errorCode(t, rec) != tc.code {
				t.Fatalf("got %d %s, want %d %s", rec.Code, rec.Body, tc.status, tc.code)
			}
		})
	}

	s.book(t, "2", "SWA100")
	rec := s.do(t, http.MethodPost, "/v1/bookings", "3", map[string]string{"flightId": "SWA100"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "capacity_exceeded" {
		t.Fatalf("full flight: got %d %s", rec.Code, rec.Body)
	}
}

func TestBookingCreateRequiresFlightID(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	if rec := s.do(t, http.MethodPost, "/v1/bookings", "1", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBookingCancel(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	s.addUser(t, "2")
	s.addFlight(t, "SWA100", 2, start.Add(3*time.Hour))
	b := s.book(t, "1", "SWA100")
	body := map[string]string{"confirmationNumber": b.Confirmation}

	if rec := s.do(t, http.MethodPost, "/v1/bookings/cancel", "2", body); rec.Code != http.StatusForbidden {
		t.Fatalf("cancel by other user: status %d, want 403", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/v1/bookings/cancel", "1", map[string]string{"confirmationNumber": "ABC"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("short code: status %d, want 400", rec.Code)
	}

	s.clock.Set(start.Add(2*time.Hour + 20*time.Minute))
	if rec := s.do(t, http.MethodPost, "/v1/bookings/cancel", "1", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("cancel inside cutoff: status %d, want 400", rec.Code)
	}

	s.clock.Set(start)
	if rec := s.do(t, http.MethodPost, "/v1/bookings/cancel", "1", body); rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d, body %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodPost, "/v1/bookings/cancel", "1", body); rec.Code != http.StatusNotFound {
		t.Fatalf("second cancel: status %d, want 404", rec.Code)
	}

	f := decode[model.Flight](t, s.do(t, http.MethodGet, "/v1/flights/SWA100", "", nil))
	if f.Booked != 0 {
		t.Fatalf("booked after cancel = %d, want 0", f.Booked)
	}
}

func TestBookingQueries(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	s.addUser(t, "2")
	s.addFlight(t, "SWA100", 5, start.Add(3*time.Hour))
	s.addFlight(t, "SWA200", 5, start.Add(26*time.Hour))
	b1 := s.book(t, "1", "SWA100")
	s.book(t, "1", "SWA200")
	s.book(t, "2", "SWA100")

	rec := s.do(t, http.MethodGet, "/v1/bookings/me", "1", nil)
	mine := decode[[]map[string]any](t, rec)
	if len(mine) != 2 {
		t.Fatalf("mine = %v, want 2 bookings", mine)
	}
	for _, v := range mine {
		if v["status"] != "Upcoming" || v["flight"] == nil {
			t.Fatalf("view = %v, want upcoming with flight", v)
		}
	}

	if rec := s.do(t, http.MethodGet, "/v1/bookings/"+b1.Confirmation, "1", nil); rec.Code != http.StatusOK {
		t.Fatalf("owner get: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/v1/bookings/"+b1.Confirmation, "2", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner get: status %d, want 404", rec.Code)
	}

	byFlight := decode[[]map[string]any](t, s.do(t, http.MethodGet, "/v1/bookings/flight/SWA100", "", nil))
	if len(byFlight) != 2 {
		t.Fatalf("by flight = %v, want 2", byFlight)
	}
	empty := s.do(t, http.MethodGet, "/v1/bookings/flight/NOPE", "", nil)
	if empty.Code != http.StatusOK || empty.Body.String() != "[]\n" {
		t.Fatalf("unknown flight: got %d %q", empty.Code, empty.Body)
	}
}
