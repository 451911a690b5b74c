package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-event-sessions/internal/middleware"
    "github.com/iliyamo/live-event-sessions/internal/model"
    "github.com/iliyamo/live-event-sessions/internal/service"
)

// EventHandler exposes manual phase control for authorized actors.
type EventHandler struct {
    Sessions *service.SessionManager
}

func NewEventHandler(sessions *service.SessionManager) *EventHandler {
    if sessions == nil {
        panic("nil service passed to NewEventHandler")
    }
    return &EventHandler{Sessions: sessions}
}

type phaseReq struct {
    Phase string `json:"phase" validate:"required"`
}

type extendReq struct {
    Minutes int `json:"minutes" validate:"required,gt=0,lte=1440"`
}

// Phase handles POST /v1/events/:id/phase.
func (h *EventHandler) Phase(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    actor, ok := middleware.ActorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req phaseReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    target := model.Phase(strings.ToUpper(strings.TrimSpace(req.Phase)))
    ev, err := h.Sessions.TransitionEvent(c.Request().Context(), id, target, actor)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, ev)
}

// Extend handles POST /v1/events/:id/extend.
func (h *EventHandler) Extend(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    actor, ok := middleware.ActorFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req extendReq
    if err := bindValid(c, &req); err != nil {
        return fail(c, err)
    }
    ev, err := h.Sessions.ExtendEvent(c.Request().Context(), id, req.Minutes, actor)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, ev)
}
