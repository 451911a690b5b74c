package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-event-sessions/internal/model"
)

// RequireRole allows only callers whose global role is one of roles.  It
// must run after JWTAuth.
func RequireRole(roles ...model.GlobalRole) echo.MiddlewareFunc {
    allowed := make(map[model.GlobalRole]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            a, ok := ActorFrom(c)
            if !ok || !allowed[a.Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
