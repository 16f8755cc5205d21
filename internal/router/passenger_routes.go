package router

import (
	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/handler"
)

// RegisterFlights registers flight reads for any signed-in user. The
// listing goes through the response cache.
func RegisterFlights(e *echo.Echo, h *handler.FlightHandler, authn, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/flights", authn)
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get)
}

// RegisterPassenger registers the booking, check-in and upgrade endpoints
// every authenticated user may call. Writes pass the rate limiter.
func RegisterPassenger(e *echo.Echo, b *handler.BookingHandler, ci *handler.CheckinHandler, u *handler.UpgradeHandler, authn, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", authn)

	g.POST("/bookings", b.Create, limit)
	g.POST("/bookings/cancel", b.Cancel, limit)
	g.GET("/bookings/me", b.Mine)
	g.GET("/bookings/:code", b.Get)

	g.POST("/checkin/start", ci.Start, limit)
	g.GET("/checkin/printed/:code", ci.Printed)

	g.GET("/upgrades/earlybird", u.EarlyBird)
	g.POST("/upgrades/earlybird", u.PurchaseEarlyBird, limit)
}
