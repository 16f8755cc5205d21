package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boarding"
)

func TestCheckInTooEarly(t *testing.T) {
	fx := newFixture(t)
	fx.addUser(t, "u1")
	fx.addFlight(t, "WN1", 5, start.Add(30*time.Hour))
	b := fx.book(t, "u1", "WN1")

	_, err := fx.checkin.CheckIn(context.Background(), b.Confirmation, "u1")
	if !errors.Is(err, apperr.ErrTooEarly) {
		t.Fatalf("CheckIn = %v", err)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Hours != 6 {
		t.Fatalf("hours until open = %+v", ae)
	}

	fx.clock.Advance(5*time.Hour + 30*time.Minute)
	_, err = fx.checkin.CheckIn(context.Background(), b.Confirmation, "u1")
	if !errors.As(err, &ae) || ae.Hours != 1 {
		t.Fatalf("hours rounded up = %+v, %v", ae, err)
	}
	fx.clock.Advance(30 * time.Minute)
	if _, err := fx.checkin.CheckIn(context.Background(), b.Confirmation, "u1"); err != nil {
		t.Fatalf("CheckIn at window open: %v", err)
	}
}

func TestCheckInEarlyBirdWindow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addUser(t, "u1")
	fx.addFlight(t, "WN1", 5, start.Add(30*time.Hour))
	b := fx.book(t, "u1", "WN1")

	if err := fx.users.AddPoints(ctx, "u1", 30000); err != nil {
		t.Fatal(err)
	}
	st, err := fx.upgrade.PurchaseEarlyBird(ctx, "u1")
	if err != nil || !st.Owned || st.Points != 0 {
		t.Fatalf("PurchaseEarlyBird = %+v, %v", st, err)
	}
	res, err := fx.checkin.CheckIn(ctx, b.Confirmation, "u1")
	if err != nil {
		t.Fatalf("early bird CheckIn: %v", err)
	}
	if res.Position != (boarding.Position{Group: "A", Number: 1}) {
		t.Fatalf("position = %v", res.Position)
	}
}

func TestCheckInIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addUser(t, "u1")
	fx.addFlight(t, "WN1", 5, start.Add(3*time.Hour))
	b := fx.book(t, "u1", "WN1")

	first, err := fx.checkin.CheckIn(ctx, b.Confirmation, "u1")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if !first.Booking.CheckedIn() || !first.Booking.CheckedInAt.Equal(start) {
		t.Fatalf("checked in at = %v", first.Booking.CheckedInAt)
	}
	if cached, err := fx.store.Get(ctx, "WN1", b.Confirmation); err != nil || !bytes.Equal(cached, first.Pass) {
		t.Fatalf("pass not cached: %v", err)
	}

	fx.clock.Advance(10 * time.Minute)
	second, err := fx.checkin.CheckIn(ctx, b.Confirmation, "u1")
	if err != nil {
		t.Fatalf("second CheckIn: %v", err)
	}
	if second.Position != first.Position || !bytes.Equal(second.Pass, first.Pass) {
		t.Fatalf("second check-in changed the result: %v vs %v", second.Position, first.Position)
	}
	if !second.Booking.CheckedInAt.Equal(start) {
		t.Fatalf("check-in stamp moved to %v", second.Booking.CheckedInAt)
	}
	if fx.renderer.calls != 1 {
		t.Fatalf("renderer calls = %d", fx.renderer.calls)
	}
	if len(fx.relay.checkins) != 2 {
		t.Fatalf("relay check-ins = %v", fx.relay.checkins)
	}
	if fx.renderer.last.Passenger != "pilotu1" || fx.renderer.last.Position != "A1" || fx.renderer.last.From.IATA != "RFD" {
		t.Fatalf("rendered snapshot = %+v", fx.renderer.last)
	}
}

func TestCheckInAssignsDistinctPositions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addFlight(t, "WN1", 5, start.Add(3*time.Hour))
	fx.addFlight(t, "WN2", 5, start.Add(3*time.Hour))
	var codes []string
	for _, u := range []string{"u1", "u2", "u3"} {
		codes = append(codes, fx.book(t, u, "WN1").Confirmation)
	}
	other := fx.book(t, "u1", "WN2")

	want := []string{"A1", "A2", "A3"}
	for i, code := range codes {
		res, err := fx.checkin.StaffCheckIn(ctx, code)
		if err != nil {
			t.Fatalf("StaffCheckIn %s: %v", code, err)
		}
		if res.Position.String() != want[i] {
			t.Fatalf("position %d = %v, want %s", i, res.Position, want[i])
		}
	}
	res, err := fx.checkin.StaffCheckIn(ctx, other.Confirmation)
	if err != nil || res.Position.String() != "A1" {
		t.Fatalf("positions leak across flights: %v, %v", res.Position, err)
	}
}

func TestCheckInOwnership(t *testing.T) {
	fx := newFixture(t)
	fx.addFlight(t, "WN1", 5, start.Add(3*time.Hour))
	b := fx.book(t, "u1", "WN1")

	if _, err := fx.checkin.CheckIn(context.Background(), b.Confirmation, "u2"); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Fatalf("CheckIn by stranger = %v", err)
	}
	if _, err := fx.checkin.CheckIn(context.Background(), "NOPE00", "u1"); !errors.Is(err, apperr.ErrBookingNotFound) {
		t.Fatalf("CheckIn unknown code = %v", err)
	}
}

func TestCheckInSkipWindow(t *testing.T) {
	fx := newFixture(t)
	fx.checkin.SkipWindow = true
	fx.addFlight(t, "WN1", 5, start.Add(200*time.Hour))
	b := fx.book(t, "u1", "WN1")
	if _, err := fx.checkin.CheckIn(context.Background(), b.Confirmation, "u1"); err != nil {
		t.Fatalf("CheckIn with window disabled: %v", err)
	}
}

func TestPrintedPassIsCacheOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addFlight(t, "WN1", 5, start.Add(3*time.Hour))
	b := fx.book(t, "u1", "WN1")

	if _, err := fx.passes.Render(ctx, b.Confirmation, true); !errors.Is(err, apperr.ErrArtifactNotFound) {
		t.Fatalf("cache-only render before check-in = %v", err)
	}
	if fx.renderer.calls != 0 {
		t.Fatal("cache-only render drew a pass")
	}
	res, err := fx.checkin.CheckIn(ctx, b.Confirmation, "u1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := fx.passes.Render(ctx, b.Confirmation, true)
	if err != nil || !bytes.Equal(got, res.Pass) {
		t.Fatalf("cache-only render after check-in = %q, %v", got, err)
	}
}
