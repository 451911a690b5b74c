package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds the dependency checks
    "net/http" // net/http provides status codes and response helpers
    "time"     // time sets the check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Check probes one dependency; nil means healthy.
type Check func(ctx context.Context) error

// Health reports process liveness plus the state of each named
// dependency.  Any failing check turns the response into a 503 so load
// balancers stop routing to the instance.
func Health(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := http.StatusOK
        deps := make(map[string]string, len(checks))
        for name, check := range checks {
            if err := check(ctx); err != nil {
                deps[name] = err.Error()
                status = http.StatusServiceUnavailable
                continue
            }
            deps[name] = "ok"
        }
        state := "ok"
        if status != http.StatusOK {
            state = "degraded"
        }
        return c.JSON(status, echo.Map{"status": state, "dependencies": deps})
    }
}
