package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/live-event-sessions/internal/config"
	"github.com/iliyamo/live-event-sessions/internal/handler"
	"github.com/iliyamo/live-event-sessions/internal/middleware"
	"github.com/iliyamo/live-event-sessions/internal/model"
)

// RegisterRoutes registers the operational endpoints: the health check
// and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check, g prometheus.Gatherer) {
	e.GET("/healthz", handler.Health(checks))
	if g != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
}

// RegisterAuth registers the platform identity routes.  Register, login,
// refresh and logout are open; /v1/me requires an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// refresh rotates the refresh token; refresh-access only mints a new
	// access token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
	e.POST("/v1/logout", a.Logout)
}

// LiveDeps carries what RegisterLive needs besides the handlers.
type LiveDeps struct {
	JWTSecret string
	Cache     *middleware.ResponseCache
	RateLimit config.RateLimitConfig
	Redis     *redis.Client // nil disables rate limiting
}

// RegisterLive registers the session lifecycle, phase control and room
// token routes.
func RegisterLive(e *echo.Echo, s *handler.SessionHandler, ev *handler.EventHandler, d LiveDeps) {
	jwt := middleware.JWTAuth(d.JWTSecret)

	// Event phase control and session start for authorized actors.
	events := e.Group("/v1/events", jwt)
	events.POST("/:id/sessions", s.Create)
	events.POST("/:id/phase", ev.Phase)
	events.POST("/:id/extend", ev.Extend)

	// Listings are public; the active list sits behind the response cache
	// and is purged by Create and End.
	e.GET(handler.ActiveSessionsRoute, s.Active, d.Cache.Middleware())
	e.GET("/v1/sessions/:id", s.Details)

	e.POST("/v1/sessions/:id/end", s.End, jwt)
	e.PATCH("/v1/sessions/:id/metrics", s.Metrics, jwt, middleware.RequireRole(model.RoleAdmin))

	// Token issuance authenticates when it can, so the rate limit key can
	// use the caller's id.
	e.POST("/v1/sessions/:id/token", s.Token,
		middleware.OptionalJWT(d.JWTSecret),
		middleware.RateLimit(d.RateLimit, d.Redis))
}
