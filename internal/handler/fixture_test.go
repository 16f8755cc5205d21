package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/airport"
	"github.com/southwestptfs/flightdeck/internal/boarding"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/database/dbtest"
	"github.com/southwestptfs/flightdeck/internal/logger"
	"github.com/southwestptfs/flightdeck/internal/middleware"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
	"github.com/southwestptfs/flightdeck/internal/service"
)

var start = time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

type stubRenderer struct{}

func (stubRenderer) Render(p boardingpass.Pass) ([]byte, error) {
	return []byte("PNG:" + p.Confirmation + ":" + p.Position), nil
}

type server struct {
	e        *echo.Echo
	clock    *clock.Fake
	users    *repository.UserRepo
	bookings *repository.BookingRepo
	flights  *service.FlightService
}

// asHeader authenticates test requests by the X-Test-User header. Route
// authorization itself is covered by the middleware package.
func asHeader(users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get("X-Test-User")
			if id == "" {
				return next(c)
			}
			u, err := users.GetByID(c.Request().Context(), id)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown test user"})
			}
			c.Set(middleware.ContextUserID, u.ID)
			c.Set(middleware.ContextUser, u)
			return next(c)
		}
	}
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.Discard()
	clk := clock.NewFake(start)
	store := boardingpass.NewFSStore(t.TempDir())

	flights := repository.NewFlightRepo(db, log)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	relay := service.NopRelay{}

	passes := &service.PassService{
		Flights: flights, Bookings: bookings, Artifacts: store,
		Renderer: stubRenderer{}, Airports: airport.Default(), Log: log,
	}
	flightSvc := &service.FlightService{
		DB: db, Flights: flights, Bookings: bookings, Artifacts: store,
		Relay: relay, Clock: clk, Log: log,
	}
	bookingSvc := &service.BookingService{
		DB: db, Flights: flights, Bookings: bookings, Codes: repository.DefaultCodes,
		Artifacts: store, Relay: relay, Clock: clk, Log: log,
	}
	checkinSvc := &service.CheckinService{
		DB: db, Flights: flights, Bookings: bookings, Users: users, Passes: passes,
		Layout: boarding.DefaultLayout, Relay: relay, Clock: clk, Log: log,
	}

	fh := NewFlightHandler(flightSvc, log)
	bh := NewBookingHandler(bookingSvc, log)
	ch := NewCheckinHandler(checkinSvc, passes, bookings, log)
	uh := NewUpgradeHandler(&service.UpgradeService{Users: users, Price: 100, Log: log}, log)

	e := echo.New()
	e.Validator = NewRequestValidator()
	g := e.Group("/v1", asHeader(users))
	g.GET("/flights", fh.List)
	g.GET("/flights/:id", fh.Get)
	g.POST("/flights", fh.Create)
	g.PUT("/flights/:id", fh.Update)
	g.DELETE("/flights/:id", fh.Delete)
	g.POST("/bookings", bh.Create)
	g.POST("/bookings/cancel", bh.Cancel)
	g.GET("/bookings/me", bh.Mine)
	g.GET("/bookings/:code", bh.Get)
	g.GET("/bookings/flight/:id", bh.ByFlight)
	g.POST("/checkin/start", ch.Start)
	g.POST("/checkin/staff/start", ch.Staff)
	g.GET("/checkin/printed/:code", ch.Printed)
	g.GET("/upgrades/earlybird", uh.EarlyBird)
	g.POST("/upgrades/earlybird", uh.PurchaseEarlyBird)

	return &server{e: e, clock: clk, users: users, bookings: bookings, flights: flightSvc}
}

func (s *server) addUser(t *testing.T, id string) {
	t.Helper()
	if err := s.users.Upsert(context.Background(), model.User{ID: id, Username: "pilot" + id}, start); err != nil {
		t.Fatalf("upsert user %s: %v", id, err)
	}
}

func (s *server) addFlight(t *testing.T, id string, seats int, departure time.Time) {
	t.Helper()
	_, err := s.flights.Create(context.Background(), model.Flight{
		ID: id, Origin: "IRFD", Destination: "ITKO", Aircraft: "A320",
		Departure: departure, Seats: seats,
	})
	if err != nil {
		t.Fatalf("create flight %s: %v", id, err)
	}
}

// do sends body (marshalled to JSON unless nil) as user and returns the
// recorded response.
func (s *server) do(t *testing.T, method, path, user string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]any](t, rec)
	code, _ := body["code"].(string)
	return code
}
