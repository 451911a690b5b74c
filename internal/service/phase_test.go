package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/model"
)

func TestApplyTransitionTable(t *testing.T) {
	t.Parallel()
	phases := []model.Phase{model.PhasePreLive, model.PhaseLive, model.PhasePostLive}
	accepted := map[[2]model.Phase]bool{
		{model.PhasePreLive, model.PhaseLive}:  true,
		{model.PhaseLive, model.PhasePostLive}: true,
	}

	for _, from := range phases {
		for _, to := range phases {
			ev := model.Event{ID: 1, Phase: from, Status: model.StatusScheduled}
			err := Apply(&ev, to, owner)
			if accepted[[2]model.Phase{from, to}] {
				if err != nil {
					t.Fatalf("%s -> %s: expected success, got %v", from, to, err)
				}
				if ev.Phase != to {
					t.Fatalf("%s -> %s: phase not applied", from, to)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) || !errors.Is(err, ErrPreconditionFailed) {
				t.Fatalf("%s -> %s: expected invalid transition, got %v", from, to, err)
			}
			if ev.Phase != from {
				t.Fatalf("%s -> %s: phase mutated on failure", from, to)
			}
		}
	}
}

func TestApplyRejectsUnknownPhase(t *testing.T) {
	t.Parallel()
	ev := model.Event{Phase: model.PhasePreLive}
	err := Apply(&ev, model.Phase("PAUSED"), owner)
	if !errors.Is(err, ErrInvalidTransition) || !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown phase must not surface as an invalid argument: %v", err)
	}
	if ev.Phase != model.PhasePreLive {
		t.Fatalf("phase mutated on rejected transition: %s", ev.Phase)
	}
}

func TestApplyTicketPrecondition(t *testing.T) {
	t.Parallel()

	ev := model.Event{Phase: model.PhasePreLive, Status: model.StatusScheduled, TicketRequired: true}
	err := Apply(&ev, model.PhaseLive, owner)
	if !errors.Is(err, ErrPreconditionFailed) || errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected missing ticket types to fail, got %v", err)
	}

	ev.TicketTypes = []model.TicketType{{Type: "GA", PriceCents: 1500, Available: 100}}
	if err := Apply(&ev, model.PhaseLive, owner); err != nil {
		t.Fatalf("expected success with ticket types, got %v", err)
	}
	if ev.Status != model.StatusLive {
		t.Fatalf("expected status LIVE, got %s", ev.Status)
	}
	if ev.LastTransitionBy == nil || *ev.LastTransitionBy != ownerID {
		t.Fatalf("expected last transition by %d, got %v", ownerID, ev.LastTransitionBy)
	}
}

func TestApplyStatusFollowsPhase(t *testing.T) {
	t.Parallel()

	ev := model.Event{Phase: model.PhaseLive, Status: model.StatusLive}
	if err := Apply(&ev, model.PhasePostLive, owner); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.Status != model.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", ev.Status)
	}

	cancelled := model.Event{Phase: model.PhasePreLive, Status: model.StatusCancelled}
	if err := Apply(&cancelled, model.PhaseLive, owner); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected terminal status to stay, got %s", cancelled.Status)
	}
}

func TestExtend(t *testing.T) {
	t.Parallel()
	end := t0.Add(time.Hour)

	if err := Extend(&model.Event{}, 10); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed without end time, got %v", err)
	}
	ev := model.Event{EndTime: &end}
	if err := Extend(&ev, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero minutes, got %v", err)
	}
	if err := Extend(&ev, 30); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ev.EndTime.Equal(t0.Add(90 * time.Minute)) {
		t.Fatalf("expected end %v, got %v", t0.Add(90*time.Minute), ev.EndTime)
	}
}

func TestPhaseMachineRereadsStoredPhase(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := NewPhaseMachine(f.events, WithClock(f.clock), WithPublisher(f.pub))

	// another actor moves the event to LIVE between our read and write
	raced := false
	f.events.BeforeUpdate = func(id uint64) {
		if raced {
			return
		}
		raced = true
		ev := f.events.Get(id)
		ev.Phase = model.PhaseLive
		ev.Status = model.StatusLive
		f.events.Put(ev)
	}

	_, err := m.Transition(context.Background(), eventID, model.PhaseLive, owner)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected stale transition to be rejected, got %v", err)
	}
	if len(f.pub.Types()) != 0 {
		t.Fatalf("expected no notification, got %v", f.pub.Types())
	}
}

func TestPhaseMachinePersistsAndNotifies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	m := NewPhaseMachine(f.events, WithClock(f.clock), WithPublisher(f.pub))
	ctx := context.Background()

	ev, err := m.Transition(ctx, eventID, model.PhaseLive, owner)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.Phase != model.PhaseLive || f.events.Get(eventID).Status != model.StatusLive {
		t.Fatalf("expected stored LIVE/LIVE, got %+v", f.events.Get(eventID))
	}
	if got := f.pub.Types(); len(got) != 1 || got[0] != "phase.changed" {
		t.Fatalf("expected one phase.changed, got %v", got)
	}

	if _, err := m.Transition(ctx, 404, model.PhaseLive, owner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ext, err := m.Extend(ctx, eventID, 15)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := t0.Add(2*time.Hour + 15*time.Minute)
	if !ext.EndTime.Equal(want) || !f.events.Get(eventID).EndTime.Equal(want) {
		t.Fatalf("expected end %v, got %v", want, f.events.Get(eventID).EndTime)
	}
}
