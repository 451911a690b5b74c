package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/queue"
	"github.com/iliyamo/live-event-sessions/internal/repository"
)

// SessionManager owns the lifecycle of the single active streaming
// session per event.  Starting a session moves a PRE_LIVE event to LIVE
// and ending one moves a LIVE event to POST_LIVE; both are explicit
// calls into the PhaseMachine.
type SessionManager struct {
	events   EventStore
	sessions SessionStore
	perms    PermissionChecker
	rooms    RoomProvider
	phases   *PhaseMachine
	rt       runtime
}

// NewSessionManager wires a SessionManager.  rooms may be nil, in which
// case every session runs on a locally generated room id.
func NewSessionManager(events EventStore, sessions SessionStore, perms PermissionChecker, rooms RoomProvider, opts ...Option) *SessionManager {
	rt := newRuntime(opts)
	return &SessionManager{
		events:   events,
		sessions: sessions,
		perms:    perms,
		rooms:    rooms,
		phases:   &PhaseMachine{events: events, rt: rt},
		rt:       rt,
	}
}

// CreateSessionInput describes a session to start.
type CreateSessionInput struct {
	EventID     uint64
	AccessLevel model.AccessLevel // empty means PUBLIC
	GeoRegions  []string          // empty inherits the event's regions
}

// CreateSession starts a session for in.EventID on behalf of actor.
func (m *SessionManager) CreateSession(ctx context.Context, in CreateSessionInput, actor model.Actor) (*model.StreamingSession, error) {
	level := in.AccessLevel
	if level == "" {
		level = model.AccessPublic
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown access level %q", ErrInvalidArgument, in.AccessLevel)
	}

	ev, err := loadEvent(ctx, m.events, in.EventID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, m.perms, ev, actor); err != nil {
		return nil, err
	}

	// fast path; the unique index on active sessions is authoritative
	existing, err := m.sessions.FindActiveByEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: event already has an active session", ErrConflict)
	}

	wentLive := false
	if ev.Phase == model.PhasePreLive {
		live, err := m.phases.Transition(ctx, ev.ID, model.PhaseLive, actor)
		wentLive = err == nil
		if errors.Is(err, ErrInvalidTransition) {
			// a concurrent start may have moved it first
			live, err = loadEvent(ctx, m.events, ev.ID)
			if err == nil && live.Phase != model.PhaseLive {
				err = fmt.Errorf("%w from %s to %s", ErrInvalidTransition, live.Phase, model.PhaseLive)
			}
		}
		if err != nil {
			return nil, err
		}
		ev = live
	}

	now := m.rt.clock.Now()
	key, err := newSessionKey()
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	room := m.openRoom(ctx, fmt.Sprintf("event_%d_%d", ev.ID, now.UnixMilli()))

	s := &model.StreamingSession{
		ID:             uuid.NewString(),
		EventID:        ev.ID,
		EntityID:       ev.EntityID,
		RoomID:         room.ID,
		ProviderBacked: room.ProviderBacked,
		SessionKey:     key,
		AccessLevel:    level,
		GeoRegions:     nonNil(in.GeoRegions),
		Metrics:        model.Metrics{},
		Active:         true,
		StartTime:      now,
		CreatedBy:      actor.UserID,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		if room.ProviderBacked {
			m.closeRoom(ctx, room.ID)
		}
		if errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, fmt.Errorf("%w: event already has an active session", ErrConflict)
		}
		if wentLive {
			// the phase change is not rolled back; an operator can end the
			// event or start a new session against it
			m.rt.logger.Printf("session-manager: persist session for event %d failed after going live; event stays LIVE without an active session: %v", ev.ID, err)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.rt.metrics.sessionCreated(room.ProviderBacked)
	m.rt.logger.Printf("session-manager: started session %s for event %d in room %s (provider_backed=%t)", s.ID, ev.ID, s.RoomID, s.ProviderBacked)
	m.rt.notify.send(ctx, sessionEvent(queue.TypeSessionStarted, s, actor.UserID, now))
	return s, nil
}

// EndSession ends an active session and settles its event.  Ending an
// already ended session fails with ErrNotFound.
func (m *SessionManager) EndSession(ctx context.Context, sessionID string, actor model.Actor) (*model.StreamingSession, error) {
	s, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ev, err := loadEvent(ctx, m.events, s.EventID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, m.perms, ev, actor); err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, fmt.Errorf("%w: session %s is not active", ErrNotFound, s.ID)
	}

	if s.ProviderBacked {
		m.closeRoom(ctx, s.RoomID)
	}

	now := m.rt.clock.Now()
	if err := m.sessions.Deactivate(ctx, s.ID, now); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: session %s is not active", ErrNotFound, s.ID)
		}
		return nil, fmt.Errorf("deactivate session: %w", err)
	}
	s.Active = false
	s.EndTime = &now

	if _, err := m.phases.settle(ctx, ev, actor); err != nil {
		return nil, fmt.Errorf("settle event %d: %w", ev.ID, err)
	}

	m.rt.metrics.sessionEnded()
	m.rt.logger.Printf("session-manager: ended session %s for event %d", s.ID, s.EventID)
	m.rt.notify.send(ctx, sessionEvent(queue.TypeSessionEnded, s, actor.UserID, now))
	return s, nil
}

// GetActiveSessions lists active sessions, newest start first.
func (m *SessionManager) GetActiveSessions(ctx context.Context) ([]model.StreamingSession, error) {
	list, err := m.sessions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	if list == nil {
		list = []model.StreamingSession{}
	}
	return list, nil
}

// SessionDetails is a session plus derived live values.
type SessionDetails struct {
	model.StreamingSession
	DurationSeconds  int64   `json:"duration_seconds"`
	LiveParticipants *uint32 `json:"live_participants,omitempty"`
}

// GetSessionDetails returns the session with its duration and, when the
// provider answers, the number of participants currently in the room.
func (m *SessionManager) GetSessionDetails(ctx context.Context, sessionID string) (*SessionDetails, error) {
	s, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	end := m.rt.clock.Now()
	if s.EndTime != nil {
		end = *s.EndTime
	}
	d := &SessionDetails{StreamingSession: *s, DurationSeconds: int64(end.Sub(s.StartTime).Seconds())}
	if d.DurationSeconds < 0 {
		d.DurationSeconds = 0
	}
	if s.Active && s.ProviderBacked && m.rooms != nil {
		d.LiveParticipants = m.participantCount(ctx, s.RoomID)
	}
	return d, nil
}

// UpdateMetrics adds delta to the session's counters.  Keys not in delta
// keep their value; new keys start from zero.
func (m *SessionManager) UpdateMetrics(ctx context.Context, sessionID string, delta model.Metrics) (*model.StreamingSession, error) {
	if len(delta) == 0 {
		return nil, fmt.Errorf("%w: no metrics supplied", ErrInvalidArgument)
	}
	for k := range delta {
		if k == "" {
			return nil, fmt.Errorf("%w: empty metric name", ErrInvalidArgument)
		}
	}
	s, err := m.sessions.MergeMetrics(ctx, sessionID, delta, m.rt.clock.Now())
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("merge metrics: %w", err)
	}
	return s, nil
}

// TransitionEvent applies a manual phase change requested by actor.
func (m *SessionManager) TransitionEvent(ctx context.Context, eventID uint64, target model.Phase, actor model.Actor) (*model.Event, error) {
	ev, err := loadEvent(ctx, m.events, eventID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, m.perms, ev, actor); err != nil {
		return nil, err
	}
	return m.phases.Transition(ctx, eventID, target, actor)
}

// ExtendEvent pushes the event's end time out by minutes.
func (m *SessionManager) ExtendEvent(ctx context.Context, eventID uint64, minutes int, actor model.Actor) (*model.Event, error) {
	ev, err := loadEvent(ctx, m.events, eventID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, m.perms, ev, actor); err != nil {
		return nil, err
	}
	return m.phases.Extend(ctx, eventID, minutes)
}

// openRoom creates the provider room.  On failure the session still
// runs under the local name and the handle says so.
func (m *SessionManager) openRoom(ctx context.Context, name string) model.RoomHandle {
	if m.rooms == nil {
		return model.RoomHandle{ID: name}
	}
	room, err := m.rooms.CreateRoom(ctx, name, m.rt.emptyTimeout, m.rt.maxParticipants)
	if err != nil {
		m.rt.metrics.providerError("create_room")
		m.rt.logger.Printf("session-manager: create room %s failed, continuing without provider room: %v", name, err)
		return model.RoomHandle{ID: name}
	}
	if room.Name != "" {
		name = room.Name
	}
	return model.RoomHandle{ID: name, ProviderBacked: true}
}

func (m *SessionManager) closeRoom(ctx context.Context, name string) {
	if m.rooms == nil {
		return
	}
	if err := m.rooms.DeleteRoom(ctx, name); err != nil {
		m.rt.metrics.providerError("delete_room")
		m.rt.logger.Printf("session-manager: delete room %s failed: %v", name, err)
	}
}

func (m *SessionManager) participantCount(ctx context.Context, room string) *uint32 {
	stats, err := m.rooms.ListRooms(ctx, []string{room})
	if err != nil {
		m.rt.metrics.providerError("list_rooms")
		m.rt.logger.Printf("session-manager: list room %s failed: %v", room, err)
		return nil
	}
	for _, st := range stats {
		if st.Name == room {
			n := st.NumParticipants
			return &n
		}
	}
	return nil
}

func (m *SessionManager) loadSession(ctx context.Context, id string) (*model.StreamingSession, error) {
	s, err := m.sessions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

func newSessionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
