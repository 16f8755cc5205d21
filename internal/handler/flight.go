package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/service"
)

// FlightHandler serves the flight table. Reads are open to any signed-in
// user; writes are limited to bots and staff by the router.
type FlightHandler struct {
	Flights *service.FlightService
	Log     *slog.Logger
}

func NewFlightHandler(flights *service.FlightService, log *slog.Logger) *FlightHandler {
	if flights == nil {
		panic("nil flight service passed to NewFlightHandler")
	}
	return &FlightHandler{Flights: flights, Log: log}
}

type createFlightRequest struct {
	ID               string    `json:"id" validate:"required,max=16,alphanum"`
	From             string    `json:"from" validate:"required,max=8"`
	To               string    `json:"to" validate:"required,max=8"`
	Aircraft         string    `json:"aircraft" validate:"max=64"`
	Departure        time.Time `json:"departure" validate:"required"`
	Seats            *int      `json:"seats" validate:"required,gte=0"`
	AcftReg          string    `json:"acftReg" validate:"max=16"`
	DeptGate         string    `json:"deptGate" validate:"max=16"`
	ArrGate          string    `json:"arrGate" validate:"max=16"`
	CodeshareIDs     string    `json:"codeshareIds" validate:"max=128"`
	Host             string    `json:"host" validate:"max=64"`
	DiscordEventID   string    `json:"discordEventId" validate:"max=32"`
	RobloxServerLink string    `json:"robloxPrivateServerLink" validate:"omitempty,url,max=255"`
}

type updateFlightRequest struct {
	From             *string    `json:"from" validate:"omitempty,max=8"`
	To               *string    `json:"to" validate:"omitempty,max=8"`
	Aircraft         *string    `json:"aircraft" validate:"omitempty,max=64"`
	Departure        *time.Time `json:"departure"`
	Seats            *int       `json:"seats" validate:"omitempty,gte=0"`
	Booked           *int       `json:"booked"`
	AcftReg          *string    `json:"acftReg" validate:"omitempty,max=16"`
	DeptGate         *string    `json:"deptGate" validate:"omitempty,max=16"`
	ArrGate          *string    `json:"arrGate" validate:"omitempty,max=16"`
	CodeshareIDs     *string    `json:"codeshareIds" validate:"omitempty,max=128"`
	Host             *string    `json:"host" validate:"omitempty,max=64"`
	DiscordEventID   *string    `json:"discordEventId" validate:"omitempty,max=32"`
	RobloxServerLink *string    `json:"robloxPrivateServerLink" validate:"omitempty,url,max=255"`
}

// List handles GET /v1/flights.
func (h *FlightHandler) List(c echo.Context) error {
	flights, err := h.Flights.List(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, flights)
}

// Get handles GET /v1/flights/:id.
func (h *FlightHandler) Get(c echo.Context) error {
	f, err := h.Flights.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Create handles POST /v1/flights. The booked counter always starts at 0.
func (h *FlightHandler) Create(c echo.Context) error {
	var req createFlightRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	f, err := h.Flights.Create(c.Request().Context(), model.Flight{
		ID:               req.ID,
		Origin:           req.From,
		Destination:      req.To,
		Aircraft:         req.Aircraft,
		Departure:        req.Departure,
		Seats:            *req.Seats,
		AcftReg:          req.AcftReg,
		DeptGate:         req.DeptGate,
		ArrGate:          req.ArrGate,
		CodeshareIDs:     req.CodeshareIDs,
		Host:             req.Host,
		DiscordEventID:   req.DiscordEventID,
		RobloxServerLink: req.RobloxServerLink,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "flight created", "flight": f})
}

// Update handles PUT /v1/flights/:id. Only the fields present in the body
// change.
func (h *FlightHandler) Update(c echo.Context) error {
	var req updateFlightRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	if req.Booked != nil {
		return respond(c, h.Log, apperr.Invalid("booked cannot be edited"))
	}
	f, err := h.Flights.Update(c.Request().Context(), c.Param("id"), service.FlightPatch{
		Origin:           req.From,
		Destination:      req.To,
		Aircraft:         req.Aircraft,
		Departure:        req.Departure,
		Seats:            req.Seats,
		AcftReg:          req.AcftReg,
		DeptGate:         req.DeptGate,
		ArrGate:          req.ArrGate,
		CodeshareIDs:     req.CodeshareIDs,
		Host:             req.Host,
		DiscordEventID:   req.DiscordEventID,
		RobloxServerLink: req.RobloxServerLink,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "flight updated", "flight": f})
}

// Delete handles DELETE /v1/flights/:id, cascading to bookings and passes.
func (h *FlightHandler) Delete(c echo.Context) error {
	if err := h.Flights.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
