package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/service"
)

// UpgradeHandler sells the Early-Bird upgrade.
type UpgradeHandler struct {
	Upgrades *service.UpgradeService
	Log      *slog.Logger
}

func NewUpgradeHandler(upgrades *service.UpgradeService, log *slog.Logger) *UpgradeHandler {
	return &UpgradeHandler{Upgrades: upgrades, Log: log}
}

// EarlyBird handles GET /v1/upgrades/earlybird.
func (h *UpgradeHandler) EarlyBird(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	st, err := h.Upgrades.EarlyBird(c.Request().Context(), userID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// PurchaseEarlyBird handles POST /v1/upgrades/earlybird.
func (h *UpgradeHandler) PurchaseEarlyBird(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	st, err := h.Upgrades.PurchaseEarlyBird(c.Request().Context(), userID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Early-Bird check-in purchased", "status": st})
}
