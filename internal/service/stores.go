package service

import (
	"context"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/queue"
	"github.com/iliyamo/live-event-sessions/internal/roomprovider"
)

// EventStore reads and updates events.  GetEvent returns
// repository.ErrEventNotFound for unknown ids; UpdatePhase only writes
// when the stored phase still equals from and returns
// repository.ErrPhaseChanged otherwise.
type EventStore interface {
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	UpdatePhase(ctx context.Context, id uint64, from, to model.Phase, status model.EventStatus, actorID uint64) error
	UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error
	SetEndTime(ctx context.Context, id uint64, end time.Time) error
}

// SessionStore persists streaming sessions.  Create returns
// repository.ErrActiveSessionExists when another active session holds the
// event; GetByID and Deactivate return repository.ErrSessionNotFound.
// FindActiveByEvent returns nil, nil when the event has no active session.
type SessionStore interface {
	FindActiveByEvent(ctx context.Context, eventID uint64) (*model.StreamingSession, error)
	Create(ctx context.Context, s *model.StreamingSession) error
	GetByID(ctx context.Context, id string) (*model.StreamingSession, error)
	Deactivate(ctx context.Context, id string, end time.Time) error
	ListActive(ctx context.Context) ([]model.StreamingSession, error)
	MergeMetrics(ctx context.Context, id string, delta model.Metrics, at time.Time) (*model.StreamingSession, error)
}

// PermissionChecker decides whether an actor may run sessions for an
// event: entity owner, event coordinator, entity ADMIN or MANAGER, or a
// global admin.
type PermissionChecker interface {
	IsAuthorized(ctx context.Context, ev *model.Event, actor model.Actor) (bool, error)
}

// TicketStore answers ticket ownership.
type TicketStore interface {
	HasTicket(ctx context.Context, userID, eventID uint64) (bool, error)
}

// RoomProvider is the SFU control plane.  *roomprovider.Client satisfies it.
type RoomProvider interface {
	URL() string
	CreateRoom(ctx context.Context, name string, emptyTimeout time.Duration, maxParticipants int) (roomprovider.Room, error)
	DeleteRoom(ctx context.Context, name string) error
	ListRooms(ctx context.Context, names []string) ([]roomprovider.RoomStats, error)
	SignToken(identity, name string, g roomprovider.Grant) (string, error)
}

// Publisher delivers live events downstream.  *queue.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev queue.LiveEvent) error
}
