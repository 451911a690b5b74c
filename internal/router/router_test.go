package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/live-event-sessions/internal/config"
	"github.com/iliyamo/live-event-sessions/internal/handler"
	"github.com/iliyamo/live-event-sessions/internal/service"
	"github.com/iliyamo/live-event-sessions/internal/testutil"
)

func TestRoutesRegistered(t *testing.T) {
	events := testutil.NewEventStore()
	sessions := testutil.NewSessionStore()
	perms := testutil.NewPermissions()
	rooms := testutil.NewRooms()
	mgr := service.NewSessionManager(events, sessions, perms, rooms)
	issuer := service.NewTokenIssuer(events, sessions, perms, service.NewAccessChecker(testutil.NewTickets()), rooms)

	reg := prometheus.NewRegistry()
	service.NewMetrics(reg)

	e := echo.New()
	RegisterRoutes(e, nil, reg)
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: "s"}, nil, nil, nil), "s")
	RegisterLive(e, handler.NewSessionHandler(mgr, issuer, nil), handler.NewEventHandler(mgr), LiveDeps{JWTSecret: "s"})

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"POST /v1/auth/refresh-access",
		"POST /v1/auth/logout",
		"GET /v1/me",
		"POST /v1/events/:id/sessions",
		"POST /v1/events/:id/phase",
		"POST /v1/events/:id/extend",
		"GET /v1/sessions/active",
		"GET /v1/sessions/:id",
		"POST /v1/sessions/:id/end",
		"PATCH /v1/sessions/:id/metrics",
		"POST /v1/sessions/:id/token",
	} {
		if !got[want] {
			t.Errorf("route %s not registered", want)
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d", rec.Code)
	}

	// protected routes reject anonymous callers before reaching a handler
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/events/1/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", rec.Code)
	}
}
