package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-event-sessions/internal/geofence"
    "github.com/iliyamo/live-event-sessions/internal/middleware"
    "github.com/iliyamo/live-event-sessions/internal/model"
    "github.com/iliyamo/live-event-sessions/internal/service"
)

// ActiveSessionsRoute is the cached listing purged whenever a session
// starts or ends.
const ActiveSessionsRoute = "/v1/sessions/active"

// SessionHandler exposes the session lifecycle and room token endpoints.
type SessionHandler struct {
    Sessions *service.SessionManager
    Tokens   *service.TokenIssuer
    Cache    *middleware.ResponseCache // may be nil
}

// NewSessionHandler panics on a missing service.
func NewSessionHandler(sessions *service.SessionManager, tokens *service.TokenIssuer, cache *middleware.ResponseCache) *SessionHandler {
    if sessions == nil || tokens == nil {
        panic("nil service passed to NewSessionHandler")
    }
    return &SessionHandler{Sessions: sessions, Tokens: tokens, Cache: cache}
}

type createSessionReq struct {
    AccessLevel string   `json:"access_level"`
    GeoRegions  []string `json:"geo_regions" validate:"omitempty,dive,required"`
}

type metricsReq struct {
    Metrics model.Metrics `json:"metrics" validate:"required,min=1"`
}

type tokenReq struct {
    Role string `json:"role"`
    Name string `json:"name" validate:"max=128"`
    geofence.Claims
}

// Create handles POST /v1/events/:id/sessions.
func (h *SessionHandler) Create(c echo.Context) error {
    eventID, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    actor, ok := middleware.ActorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createSessionReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    ctx := c.Request().Context()
    s, err := h.Sessions.CreateSession(ctx, service.CreateSessionInput{
        EventID:     eventID,
        AccessLevel: model.AccessLevel(strings.ToUpper(req.AccessLevel)),
        GeoRegions:  req.GeoRegions,
    }, actor)
    if err != nil {
        return fail(c, err)
    }
    h.Cache.Purge(ctx, ActiveSessionsRoute)
    return c.JSON(http.StatusCreated, s)
}

// End handles POST /v1/sessions/:id/end.
func (h *SessionHandler) End(c echo.Context) error {
    actor, ok := middleware.ActorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx := c.Request().Context()
    s, err := h.Sessions.EndSession(ctx, c.Param("id"), actor)
    if err != nil {
        return fail(c, err)
    }
    h.Cache.Purge(ctx, ActiveSessionsRoute)
    return c.JSON(http.StatusOK, s)
}

// Active handles GET /v1/sessions/active.
func (h *SessionHandler) Active(c echo.Context) error {
    list, err := h.Sessions.GetActiveSessions(c.Request().Context())
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// Details handles GET /v1/sessions/:id.
func (h *SessionHandler) Details(c echo.Context) error {
    d, err := h.Sessions.GetSessionDetails(c.Request().Context(), c.Param("id"))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

// Metrics handles PATCH /v1/sessions/:id/metrics.  Values are deltas.
func (h *SessionHandler) Metrics(c echo.Context) error {
    var req metricsReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    s, err := h.Sessions.UpdateMetrics(c.Request().Context(), c.Param("id"), req.Metrics)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, s)
}

// Token handles POST /v1/sessions/:id/token.  Authentication is
// optional; anonymous callers can only join PUBLIC sessions.
func (h *SessionHandler) Token(c echo.Context) error {
    var req tokenReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    viewer, _ := middleware.ActorFrom(c)
    tok, err := h.Tokens.Issue(c.Request().Context(), service.TokenRequest{
        SessionID: c.Param("id"),
        Role:      model.ParticipantRole(strings.ToUpper(strings.TrimSpace(req.Role))),
        Viewer:    viewer,
        Name:      strings.TrimSpace(req.Name),
        Location:  req.Claims,
    })
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, tok)
}
