package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/queue"
)

const notifyTimeout = 2 * time.Second

// notifier emits live events.  Delivery failure never affects the
// caller: the publish runs under its own short timeout and errors are
// only logged.
type notifier struct {
	pub    Publisher
	logger *log.Logger
}

func (n notifier) send(ctx context.Context, ev queue.LiveEvent) {
	if n.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.logger.Printf("notifier: publish %s for event %d failed: %v", ev.Type, ev.EventID, err)
	}
}

func sessionEvent(typ string, s *model.StreamingSession, actorID uint64, at time.Time) queue.LiveEvent {
	return queue.LiveEvent{
		Type:           typ,
		EventID:        s.EventID,
		SessionID:      s.ID,
		RoomID:         s.RoomID,
		ProviderBacked: s.ProviderBacked,
		ActorID:        actorID,
		OccurredAt:     at.UTC().Format(time.RFC3339),
	}
}

func phaseEvent(ev *model.Event, actorID uint64, at time.Time) queue.LiveEvent {
	return queue.LiveEvent{
		Type:       queue.TypePhaseChanged,
		EventID:    ev.ID,
		Phase:      string(ev.Phase),
		Status:     string(ev.Status),
		ActorID:    actorID,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
