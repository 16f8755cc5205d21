package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/repository"
	"github.com/southwestptfs/flightdeck/internal/service"
)

// CheckinHandler serves self check-in, staff check-in and printed passes.
type CheckinHandler struct {
	Checkin  *service.CheckinService
	Passes   *service.PassService
	Bookings *repository.BookingRepo
	Log      *slog.Logger
}

func NewCheckinHandler(checkin *service.CheckinService, passes *service.PassService, bookings *repository.BookingRepo, log *slog.Logger) *CheckinHandler {
	if checkin == nil || passes == nil || bookings == nil {
		panic("nil dependency passed to NewCheckinHandler")
	}
	return &CheckinHandler{Checkin: checkin, Passes: passes, Bookings: bookings, Log: log}
}

type checkinRequest struct {
	Confirmation string `json:"confirmationNumber" validate:"required,len=6,alphanum"`
}

// writePass answers with PNG bytes, honouring If-None-Match.
func writePass(c echo.Context, data []byte) error {
	etag := boardingpass.ETag(data)
	h := c.Response().Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "private, no-cache")
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

// Start handles POST /v1/checkin/start. It returns the boarding pass image
// and the assigned slot in the X-Boarding-Position header.
func (h *CheckinHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req checkinRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	res, err := h.Checkin.CheckIn(c.Request().Context(), req.Confirmation, userID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	c.Response().Header().Set("X-Boarding-Position", res.Position.String())
	return writePass(c, res.Pass)
}

// Staff handles POST /v1/checkin/staff/start for flight staff.
func (h *CheckinHandler) Staff(c echo.Context) error {
	var req checkinRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	res, err := h.Checkin.StaffCheckIn(c.Request().Context(), req.Confirmation)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":            "Checked in",
		"confirmationNumber": res.Booking.Confirmation,
		"boardingGroup":      res.Position.Group,
		"boardingPosition":   res.Position.Number,
		"position":           res.Position.String(),
	})
}

// Printed handles GET /v1/checkin/printed/:code. It only ever serves the
// cached pass of a checked-in booking owned by the caller.
func (h *CheckinHandler) Printed(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	b, err := h.Bookings.GetByCode(ctx, c.Param("code"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	if b.UserID != userID {
		h.Log.Warn("printed pass requested by non-owner",
			slog.String("confirmation", b.Confirmation), slog.String("user_id", userID))
		return respond(c, h.Log, apperr.ErrArtifactNotFound)
	}
	if !b.CheckedIn() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not checked in yet", "code": apperr.ErrArtifactNotFound.Code})
	}
	data, err := h.Passes.Render(ctx, b.Confirmation, true)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return writePass(c, data)
}
