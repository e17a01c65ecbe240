package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-zaiko/internal/handler"
	"github.com/iliyamo/smart-zaiko/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the sign-up/sign-in endpoints behind the rate
// limiter, and /me behind the session check.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limiter)
	g.POST("/signup", a.Signup)
	g.POST("/signin", a.Signin)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.SessionAuth(jwtSecret))
}
