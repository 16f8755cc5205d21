package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

// BotHandler hosts the endpoints the Discord bot and admins drive: the ban
// list, point awards and role flags.
type BotHandler struct {
	Bans  *repository.BannedRepo
	Users *repository.UserRepo
	Log   *slog.Logger
}

func NewBotHandler(bans *repository.BannedRepo, users *repository.UserRepo, log *slog.Logger) *BotHandler {
	return &BotHandler{Bans: bans, Users: users, Log: log}
}

type uploadBannedRequest struct {
	Banned []model.BannedUser `json:"banned" validate:"dive"`
}

type pointsRequest struct {
	UserID string `json:"userId" validate:"required"`
	Points int    `json:"points" validate:"required,ne=0"`
}

type rolesRequest struct {
	Admin       bool `json:"isAdmin"`
	Bot         bool `json:"isBot"`
	Staff       bool `json:"isStaff"`
	FlightStaff bool `json:"isFlightStaff"`
}

// ListBanned handles GET /v1/bot/banned.
func (h *BotHandler) ListBanned(c echo.Context) error {
	bans, err := h.Bans.List(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	if bans == nil {
		bans = []model.BannedUser{}
	}
	return c.JSON(http.StatusOK, bans)
}

// UploadBanned handles POST /v1/bot/banned, replacing the whole list.
func (h *BotHandler) UploadBanned(c echo.Context) error {
	var req uploadBannedRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Bans.ReplaceAll(c.Request().Context(), req.Banned); err != nil {
		return respond(c, h.Log, err)
	}
	h.Log.Info("banned list replaced", slog.Int("count", len(req.Banned)))
	return c.JSON(http.StatusOK, echo.Map{"message": "banned list updated", "count": len(req.Banned)})
}

// AwardPoints handles POST /v1/rewards/points. Negative values deduct.
func (h *BotHandler) AwardPoints(c echo.Context) error {
	var req pointsRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx := c.Request().Context()
	if err := h.Users.AddPoints(ctx, req.UserID, req.Points); err != nil {
		return respond(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"userId": u.ID, "points": u.Points})
}

// SetRoles handles PUT /v1/users/:id/roles for admins.
func (h *BotHandler) SetRoles(c echo.Context) error {
	var req rolesRequest
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.Users.SetRoles(ctx, id, req.Admin, req.Bot, req.Staff, req.FlightStaff); err != nil {
		return respond(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	h.Log.Info("roles updated", slog.String("user_id", id), slog.Any("roles", u.Roles()))
	return c.JSON(http.StatusOK, u)
}
