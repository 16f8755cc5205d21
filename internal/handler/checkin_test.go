package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCheckinStartAndPrinted(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	s.addUser(t, "2")
	s.addFlight(t, "SWA100", 10, start.Add(3*time.Hour))
	b := s.book(t, "1", "SWA100")
	body := map[string]string{"confirmationNumber": b.Confirmation}

	rec := s.do(t, http.MethodGet, "/v1/checkin/printed/"+b.Confirmation, "1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("printed before check-in: status %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/v1/checkin/start", "2", body); rec.Code != http.StatusForbidden {
		t.Fatalf("check-in by non-owner: status %d, want 403", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/v1/checkin/start", "1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-in: status %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get("X-Boarding-Position"); got != "A1" {
		t.Fatalf("position = %q, want A1", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "PNG:"+b.Confirmation) {
		t.Fatalf("body = %q", rec.Body)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	// Checking in again keeps the slot and serves the same bytes.
	again := s.do(t, http.MethodPost, "/v1/checkin/start", "1", body)
	if again.Header().Get("X-Boarding-Position") != "A1" || again.Header().Get("ETag") != etag {
		t.Fatalf("re-check-in changed the pass: %q %q", again.Header().Get("X-Boarding-Position"), again.Header().Get("ETag"))
	}

	rec = s.do(t, http.MethodGet, "/v1/checkin/printed/"+b.Confirmation, "1", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("ETag") != etag {
		t.Fatalf("printed: status %d etag %q", rec.Code, rec.Header().Get("ETag"))
	}
	rec = s.do(t, http.MethodGet, "/v1/checkin/printed/"+b.Confirmation, "1", nil, "If-None-Match", etag)
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 {
		t.Fatalf("conditional printed: status %d, %d bytes", rec.Code, rec.Body.Len())
	}
	if rec := s.do(t, http.MethodGet, "/v1/checkin/printed/"+b.Confirmation, "2", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("printed by non-owner: status %d, want 404", rec.Code)
	}
}

func TestCheckinTooEarly(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	s.addFlight(t, "SWA100", 10, start.Add(30*time.Hour))
	b := s.book(t, "1", "SWA100")

	rec := s.do(t, http.MethodPost, "/v1/checkin/start", "1", map[string]string{"confirmationNumber": b.Confirmation})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["code"] != "too_early" || body["hours"] != float64(6) {
		t.Fatalf("body = %v, want too_early in 6 hours", body)
	}
}

func TestCheckinEarlyBirdWindow(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	s.addFlight(t, "SWA100", 10, start.Add(30*time.Hour))
	b := s.book(t, "1", "SWA100")

	if err := s.users.AddPoints(t.Context(), "1", 100); err != nil {
		t.Fatal(err)
	}
	if rec := s.do(t, http.MethodPost, "/v1/upgrades/earlybird", "1", nil); rec.Code != http.StatusOK {
		t.Fatalf("purchase: status %d, body %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodPost, "/v1/upgrades/earlybird", "1", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("second purchase: status %d, want 400", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/v1/checkin/start", "1", map[string]string{"confirmationNumber": b.Confirmation})
	if rec.Code != http.StatusOK {
		t.Fatalf("early-bird check-in: status %d, body %s", rec.Code, rec.Body)
	}
}

func TestStaffCheckin(t *testing.T) {
	s := newServer(t)
	s.addUser(t, "1")
	s.addUser(t, "2")
	s.addFlight(t, "SWA100", 10, start.Add(3*time.Hour))
	s.book(t, "1", "SWA100")
	b := s.book(t, "2", "SWA100")

	// The first passenger checks in first and takes A1.
	first := decode[[]map[string]any](t, s.do(t, http.MethodGet, "/v1/bookings/me", "1", nil))
	code := first[0]["confirmationNumber"].(string)
	if rec := s.do(t, http.MethodPost, "/v1/checkin/start", "1", map[string]string{"confirmationNumber": code}); rec.Code != http.StatusOK {
		t.Fatalf("owner check-in: status %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/v1/checkin/staff/start", "", map[string]string{"confirmationNumber": b.Confirmation})
	if rec.Code != http.StatusOK {
		t.Fatalf("staff check-in: status %d, body %s", rec.Code, rec.Body)
	}
	got := decode[map[string]any](t, rec)
	if got["position"] != "A2" || got["boardingGroup"] != "A" || got["boardingPosition"] != float64(2) {
		t.Fatalf("staff check-in = %v, want A2", got)
	}

	if rec := s.do(t, http.MethodPost, "/v1/checkin/staff/start", "", map[string]string{"confirmationNumber": "ZZZZZZ"}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown code: status %d, want 404", rec.Code)
	}
}
