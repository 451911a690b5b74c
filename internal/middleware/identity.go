package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-event-sessions/internal/model"
)

// Context keys set by the auth middleware.  "user_id" and "role" keep
// plain values for handlers that only echo them back.
const (
    ctxActor  = "actor"
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// SetActor stores the authenticated caller on c.
func SetActor(c echo.Context, a model.Actor) {
    c.Set(ctxActor, a)
    c.Set(ctxUserID, a.UserID)
    c.Set(ctxRole, string(a.Role))
}

// ActorFrom returns the authenticated caller, or false for anonymous
// requests.
func ActorFrom(c echo.Context) (model.Actor, bool) {
    a, ok := c.Get(ctxActor).(model.Actor)
    return a, ok && a.UserID != 0
}

// userKey identifies the caller for rate limiting.
func userKey(c echo.Context) string {
    if a, ok := ActorFrom(c); ok {
        return "user-" + strconv.FormatUint(a.UserID, 10)
    }
    return "anon"
}
