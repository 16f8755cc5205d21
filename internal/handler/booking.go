package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/middleware"
	"github.com/southwestptfs/flightdeck/internal/service"
)

// BookingHandler exposes booking creation, cancellation and lookups.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      *slog.Logger
}

func NewBookingHandler(bookings *service.BookingService, log *slog.Logger) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Log: log}
}

type createBookingRequest struct {
	FlightID string `json:"flightId" validate:"required,max=16"`
}

type cancelBookingRequest struct {
	Confirmation string `json:"confirmationNumber" validate:"required,len=6,alphanum"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	username := ""
	if u, ok := middleware.CurrentUser(c); ok {
		username = u.Username
	}
	b, err := h.Bookings.Create(c.Request().Context(), userID, username, req.FlightID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Flight booked successfully", "booking": b})
}

// Cancel handles POST /v1/bookings/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cancelBookingRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Bookings.Cancel(c.Request().Context(), req.Confirmation, userID); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled"})
}

// Mine handles GET /v1/bookings/me.
func (h *BookingHandler) Mine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.Bookings.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Get handles GET /v1/bookings/:code. Other users' bookings are reported
// as missing.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	v, err := h.Bookings.Get(c.Request().Context(), c.Param("code"), userID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// ByFlight handles GET /v1/bookings/flight/:id for staff.
func (h *BookingHandler) ByFlight(c echo.Context) error {
	views, err := h.Bookings.ListForFlight(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, views)
}
