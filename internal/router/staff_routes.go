package router

import (
	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/handler"
	"github.com/southwestptfs/flightdeck/internal/middleware"
	"github.com/southwestptfs/flightdeck/internal/model"
)

// RegisterStaff registers flight administration, crew tools and the bot
// endpoints. Every route requires a credential plus the matching role flag.
func RegisterStaff(e *echo.Echo, f *handler.FlightHandler, b *handler.BookingHandler, ci *handler.CheckinHandler, bot *handler.BotHandler, authn echo.MiddlewareFunc) {
	botOrStaff := middleware.RequireRole(model.RoleBot, model.RoleStaff)
	crew := middleware.RequireRole(model.RoleStaff, model.RoleFlightStaff)
	botOrAdmin := middleware.RequireRole(model.RoleBot, model.RoleAdmin)

	e.POST("/v1/flights", f.Create, authn, botOrStaff)
	e.PUT("/v1/flights/:id", f.Update, authn, botOrStaff)
	e.DELETE("/v1/flights/:id", f.Delete, authn, botOrStaff)

	e.GET("/v1/bookings/flight/:id", b.ByFlight, authn, crew)
	e.POST("/v1/checkin/staff/start", ci.Staff, authn, middleware.RequireRole(model.RoleFlightStaff))

	e.GET("/v1/bot/banned", bot.ListBanned, authn, botOrAdmin)
	e.POST("/v1/bot/banned", bot.UploadBanned, authn, botOrAdmin)
	e.POST("/v1/rewards/points", bot.AwardPoints, authn, botOrStaff)
	e.PUT("/v1/users/:id/roles", bot.SetRoles, authn, middleware.RequireRole(model.RoleAdmin))
}
