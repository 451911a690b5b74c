// Package testutil provides in-memory implementations of the engine's
// collaborators for service and handler tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/repository"
)

// EventStore keeps events in memory.
type EventStore struct {
	mu     sync.Mutex
	events map[uint64]model.Event
	// BeforeUpdate, when set, runs inside UpdatePhase before the
	// compare-and-swap, letting tests simulate a concurrent writer.
	BeforeUpdate func(id uint64)
}

// NewEventStore returns a store holding events.
func NewEventStore(events ...model.Event) *EventStore {
	s := &EventStore{events: map[uint64]model.Event{}}
	for _, ev := range events {
		s.Put(ev)
	}
	return s
}

// Put inserts or replaces an event.
func (s *EventStore) Put(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
}

// Get returns a copy of an event for assertions.
func (s *EventStore) Get(id uint64) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

func (s *EventStore) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	ev.GeoRegions = append([]string(nil), ev.GeoRegions...)
	ev.TicketTypes = append([]model.TicketType(nil), ev.TicketTypes...)
	return &ev, nil
}

func (s *EventStore) UpdatePhase(_ context.Context, id uint64, from, to model.Phase, status model.EventStatus, actorID uint64) error {
	if s.BeforeUpdate != nil {
		s.BeforeUpdate(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.Phase != from {
		return repository.ErrPhaseChanged
	}
	ev.Phase = to
	ev.Status = status
	by := actorID
	ev.LastTransitionBy = &by
	s.events[id] = ev
	return nil
}

func (s *EventStore) UpdateStatus(_ context.Context, id uint64, status model.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	ev.Status = status
	s.events[id] = ev
	return nil
}

func (s *EventStore) SetEndTime(_ context.Context, id uint64, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	ev.EndTime = &end
	s.events[id] = ev
	return nil
}

// SessionStore keeps sessions in memory and enforces one active session
// per event the way the unique index does.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.StreamingSession
	// SkipFastPath makes FindActiveByEvent report nothing, so tests can
	// reach the unique-index conflict.
	SkipFastPath bool
	// FailCreate, when set, is returned by every Create.
	FailCreate error
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]model.StreamingSession{}}
}

// All returns every stored session, active or not.
func (s *SessionStore) All() []model.StreamingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StreamingSession, 0, len(s.sessions))
	for _, v := range s.sessions {
		out = append(out, v)
	}
	return out
}

func (s *SessionStore) FindActiveByEvent(_ context.Context, eventID uint64) (*model.StreamingSession, error) {
	if s.SkipFastPath {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.sessions {
		if v.EventID == eventID && v.Active {
			cp := clone(v)
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *SessionStore) Create(_ context.Context, in *model.StreamingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	for _, v := range s.sessions {
		if v.EventID == in.EventID && v.Active {
			return repository.ErrActiveSessionExists
		}
	}
	if _, ok := s.sessions[in.ID]; ok {
		return errors.New("duplicate session id")
	}
	s.sessions[in.ID] = clone(*in)
	return nil
}

func (s *SessionStore) GetByID(_ context.Context, id string) (*model.StreamingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := clone(v)
	return &cp, nil
}

func (s *SessionStore) Deactivate(_ context.Context, id string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sessions[id]
	if !ok || !v.Active {
		return repository.ErrSessionNotFound
	}
	v.Active = false
	v.EndTime = &end
	s.sessions[id] = v
	return nil
}

func (s *SessionStore) ListActive(_ context.Context) ([]model.StreamingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.StreamingSession{}
	for _, v := range s.sessions {
		if v.Active {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (s *SessionStore) MergeMetrics(_ context.Context, id string, delta model.Metrics, at time.Time) (*model.StreamingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	v = clone(v)
	for k, d := range delta {
		v.Metrics[k] += d
	}
	v.MetricsUpdatedAt = &at
	s.sessions[id] = v
	cp := clone(v)
	return &cp, nil
}

func clone(v model.StreamingSession) model.StreamingSession {
	m := model.Metrics{}
	for k, n := range v.Metrics {
		m[k] = n
	}
	v.Metrics = m
	v.GeoRegions = append([]string{}, v.GeoRegions...)
	return v
}

// Permissions grants management rights per event plus to global admins.
type Permissions struct {
	mu      sync.Mutex
	allowed map[uint64]map[uint64]bool
}

// NewPermissions returns a checker where no one but admins is authorized.
func NewPermissions() *Permissions {
	return &Permissions{allowed: map[uint64]map[uint64]bool{}}
}

// Allow authorizes userID for eventID.
func (p *Permissions) Allow(eventID, userID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allowed[eventID] == nil {
		p.allowed[eventID] = map[uint64]bool{}
	}
	p.allowed[eventID][userID] = true
}

func (p *Permissions) IsAuthorized(_ context.Context, ev *model.Event, actor model.Actor) (bool, error) {
	if actor.Role == model.RoleAdmin {
		return true, nil
	}
	if ev.CoordinatorID != nil && *ev.CoordinatorID == actor.UserID {
		return true, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allowed[ev.ID][actor.UserID], nil
}

// Tickets records (user, event) ownership.
type Tickets struct {
	mu    sync.Mutex
	owned map[[2]uint64]bool
}

// NewTickets returns an empty ticket store.
func NewTickets() *Tickets { return &Tickets{owned: map[[2]uint64]bool{}} }

// Grant gives userID a ticket for eventID.
func (t *Tickets) Grant(userID, eventID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owned[[2]uint64{userID, eventID}] = true
}

func (t *Tickets) HasTicket(_ context.Context, userID, eventID uint64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owned[[2]uint64{userID, eventID}], nil
}
