package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/repository"
)

// allowedNext is the phase transition table.  POST_LIVE is terminal.
var allowedNext = map[model.Phase][]model.Phase{
	model.PhasePreLive:  {model.PhaseLive},
	model.PhaseLive:     {model.PhasePostLive},
	model.PhasePostLive: {},
}

// maxTransitionAttempts bounds the re-read loop when another writer
// changes the phase between our read and our conditional update.
const maxTransitionAttempts = 3

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to model.Phase) bool {
	for _, p := range allowedNext[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Apply validates moving ev to target and mutates ev in place.  A target
// outside the known phases is an invalid transition like any other.  Going
// LIVE requires ticket types when the event requires tickets.  Status
// follows the phase (LIVE -> LIVE, POST_LIVE -> COMPLETED) unless the
// event is already terminal.
func Apply(ev *model.Event, target model.Phase, actor model.Actor) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, target)
	}
	if !CanTransition(ev.Phase, target) {
		return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, ev.Phase, target)
	}
	if target == model.PhaseLive && ev.TicketRequired && len(ev.TicketTypes) == 0 {
		return fmt.Errorf("%w: ticket types must be configured before going live", ErrPreconditionFailed)
	}

	ev.Phase = target
	if !ev.Status.Terminal() {
		switch target {
		case model.PhaseLive:
			ev.Status = model.StatusLive
		case model.PhasePostLive:
			ev.Status = model.StatusCompleted
		}
	}
	by := actor.UserID
	ev.LastTransitionBy = &by
	return nil
}

// Extend pushes ev's end time forward by minutes.
func Extend(ev *model.Event, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: minutes must be positive", ErrInvalidArgument)
	}
	if ev.EndTime == nil {
		return fmt.Errorf("%w: event has no end time to extend", ErrPreconditionFailed)
	}
	end := ev.EndTime.Add(time.Duration(minutes) * time.Minute)
	ev.EndTime = &end
	return nil
}

// PhaseMachine persists phase changes.  Every transition is validated
// against the phase as currently stored, never a caller's copy.
type PhaseMachine struct {
	events EventStore
	rt     runtime
}

// NewPhaseMachine returns a PhaseMachine over events.
func NewPhaseMachine(events EventStore, opts ...Option) *PhaseMachine {
	return &PhaseMachine{events: events, rt: newRuntime(opts)}
}

// Transition moves the event to target on behalf of actor.
func (m *PhaseMachine) Transition(ctx context.Context, eventID uint64, target model.Phase, actor model.Actor) (*model.Event, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		ev, err := loadEvent(ctx, m.events, eventID)
		if err != nil {
			return nil, err
		}
		from := ev.Phase
		if err := Apply(ev, target, actor); err != nil {
			return nil, err
		}
		err = m.events.UpdatePhase(ctx, ev.ID, from, ev.Phase, ev.Status, actor.UserID)
		if errors.Is(err, repository.ErrPhaseChanged) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update phase: %w", err)
		}
		m.rt.logger.Printf("phase: event %d %s -> %s by user %d", ev.ID, from, ev.Phase, actor.UserID)
		m.rt.notify.send(ctx, phaseEvent(ev, actor.UserID, m.rt.clock.Now()))
		return ev, nil
	}
	return nil, fmt.Errorf("%w: event %d phase changed concurrently", ErrConflict, eventID)
}

// Extend adds minutes to the event's scheduled end.
func (m *PhaseMachine) Extend(ctx context.Context, eventID uint64, minutes int) (*model.Event, error) {
	ev, err := loadEvent(ctx, m.events, eventID)
	if err != nil {
		return nil, err
	}
	if err := Extend(ev, minutes); err != nil {
		return nil, err
	}
	if err := m.events.SetEndTime(ctx, ev.ID, *ev.EndTime); err != nil {
		return nil, fmt.Errorf("set end time: %w", err)
	}
	return ev, nil
}

// settle brings the event in line with a session that just ended: LIVE
// moves to POST_LIVE, an event already POST_LIVE only has its status
// completed.
func (m *PhaseMachine) settle(ctx context.Context, ev *model.Event, actor model.Actor) (*model.Event, error) {
	switch ev.Phase {
	case model.PhaseLive:
		next, err := m.Transition(ctx, ev.ID, model.PhasePostLive, actor)
		if errors.Is(err, ErrInvalidTransition) {
			// someone else already ended the broadcast
			return loadEvent(ctx, m.events, ev.ID)
		}
		return next, err
	case model.PhasePostLive:
		if ev.Status.Terminal() {
			return ev, nil
		}
		if err := m.events.UpdateStatus(ctx, ev.ID, model.StatusCompleted); err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		ev.Status = model.StatusCompleted
		return ev, nil
	case model.PhasePreLive:
		m.rt.logger.Printf("phase: event %d still PRE_LIVE after session end; leaving phase unchanged", ev.ID)
	}
	return ev, nil
}

func loadEvent(ctx context.Context, events EventStore, id uint64) (*model.Event, error) {
	ev, err := events.GetEvent(ctx, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return ev, nil
}
