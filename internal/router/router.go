package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication: the
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the login flow under /v1/auth. Login and callback
// are public; the profile and API token endpoints need a credential.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.GET("/login", a.Login)
	g.GET("/callback", a.Callback)
	g.GET("/user", a.Me, authn)
	g.POST("/token", a.IssueAPIToken, authn)
}
