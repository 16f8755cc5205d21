package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/southwestptfs/flightdeck/internal/airport"
	"github.com/southwestptfs/flightdeck/internal/boarding"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/database/dbtest"
	"github.com/southwestptfs/flightdeck/internal/logger"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

var start = time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

type recordingRelay struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
	manual    []bool
	checkins  []string
}

func (r *recordingRelay) BookingCreated(b model.Booking, _ model.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, b.Confirmation)
	return nil
}

func (r *recordingRelay) BookingCancelled(b model.Booking, _ model.Flight, manual bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, b.Confirmation)
	r.manual = append(r.manual, manual)
	return nil
}

func (r *recordingRelay) CheckedIn(b model.Booking, _ model.Flight, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkins = append(r.checkins, b.Confirmation)
	return nil
}

type countingRenderer struct {
	mu    sync.Mutex
	calls int
	last  boardingpass.Pass
}

func (r *countingRenderer) Render(p boardingpass.Pass) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = p
	return []byte("PNG:" + p.Confirmation + ":" + p.Position), nil
}

type fixture struct {
	db       *database.DB
	clock    *clock.Fake
	relay    *recordingRelay
	renderer *countingRenderer
	store    *boardingpass.FSStore
	flights  *repository.FlightRepo
	bookings *repository.BookingRepo
	users    *repository.UserRepo

	booking *BookingService
	checkin *CheckinService
	flight  *FlightService
	passes  *PassService
	upgrade *UpgradeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.Discard()
	fx := &fixture{
		db:       db,
		clock:    clock.NewFake(start),
		relay:    &recordingRelay{},
		renderer: &countingRenderer{},
		store:    boardingpass.NewFSStore(t.TempDir()),
		flights:  repository.NewFlightRepo(db, log),
		bookings: repository.NewBookingRepo(db),
		users:    repository.NewUserRepo(db),
	}
	fx.booking = &BookingService{
		DB: db, Flights: fx.flights, Bookings: fx.bookings, Codes: repository.DefaultCodes,
		Artifacts: fx.store, Relay: fx.relay, Clock: fx.clock, Log: log,
	}
	fx.passes = &PassService{
		Flights: fx.flights, Bookings: fx.bookings, Artifacts: fx.store,
		Renderer: fx.renderer, Airports: airport.Default(), Log: log,
	}
	fx.checkin = &CheckinService{
		DB: db, Flights: fx.flights, Bookings: fx.bookings, Users: fx.users, Passes: fx.passes,
		Layout: boarding.DefaultLayout, Relay: fx.relay, Clock: fx.clock, Log: log,
	}
	fx.flight = &FlightService{
		DB: db, Flights: fx.flights, Bookings: fx.bookings, Artifacts: fx.store,
		Relay: fx.relay, Clock: fx.clock, Log: log,
	}
	fx.upgrade = &UpgradeService{Users: fx.users, Price: 30000, Log: log}
	return fx
}

func (fx *fixture) addFlight(t *testing.T, id string, seats int, departure time.Time) {
	t.Helper()
	_, err := fx.flight.Create(context.Background(), model.Flight{
		ID: id, Origin: "IRFD", Destination: "ITKO", Aircraft: "B737-800",
		Departure: departure, Seats: seats, DeptGate: "12",
	})
	if err != nil {
		t.Fatalf("create flight %s: %v", id, err)
	}
}

func (fx *fixture) addUser(t *testing.T, id string) {
	t.Helper()
	if err := fx.users.Upsert(context.Background(), model.User{ID: id, Username: "pilot" + id}, start); err != nil {
		t.Fatalf("upsert user %s: %v", id, err)
	}
}

func (fx *fixture) book(t *testing.T, userID, flightID string) model.Booking {
	t.Helper()
	b, err := fx.booking.Create(context.Background(), userID, "pilot"+userID, flightID)
	if err != nil {
		t.Fatalf("book %s on %s: %v", userID, flightID, err)
	}
	return b
}

func (fx *fixture) ledger(t *testing.T, id string) (int, int) {
	t.Helper()
	f, err := fx.flights.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get flight %s: %v", id, err)
	}
	return f.Seats, f.Booked
}
