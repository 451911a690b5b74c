package handler

import (
    "errors"
    "fmt"
    "log"
    "net/http"
    "strconv"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-event-sessions/internal/service"
)

// validate checks request DTOs tagged with `validate:"..."`.
var validate = validator.New()

// statusFor maps engine failures to HTTP status codes.  Unknown errors
// are internal.
func statusFor(err error) int {
    switch {
    case errors.Is(err, service.ErrInvalidArgument):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, service.ErrConflict):
        return http.StatusConflict
    case errors.Is(err, service.ErrPreconditionFailed):
        return http.StatusPreconditionFailed
    case errors.Is(err, service.ErrProviderUnavailable):
        return http.StatusBadGateway
    }
    return http.StatusInternalServerError
}

// fail writes err as {"error": msg}.  Internal errors are logged and
// replaced by a generic message.
func fail(c echo.Context, err error) error {
    code := statusFor(err)
    if code == http.StatusInternalServerError {
        log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(code, echo.Map{"error": "internal error"})
    }
    return c.JSON(code, echo.Map{"error": err.Error()})
}

// bindValid binds the request body into dst and runs struct validation.
// Failures are ErrInvalidArgument so fail maps them to 400.
func bindValid(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return fmt.Errorf("%w: invalid body", service.ErrInvalidArgument)
    }
    if err := validate.Struct(dst); err != nil {
        return fmt.Errorf("%w: %v", service.ErrInvalidArgument, err)
    }
    return nil
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}
