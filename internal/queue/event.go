// Package queue defines the live event messages exchanged over the
// message broker, plus the publisher and the background consumer.
package queue

// Event types carried in LiveEvent.Type.
const (
    TypeSessionStarted = "session.started"
    TypeSessionEnded   = "session.ended"
    TypePhaseChanged   = "phase.changed"
)

// LiveEvent is published whenever a session starts or ends or an event
// changes phase.  It carries enough for downstream fan-out to notify
// viewers without querying the primary database.
type LiveEvent struct {
    Type           string `json:"type"`
    EventID        uint64 `json:"event_id"`
    SessionID      string `json:"session_id,omitempty"`
    RoomID         string `json:"room_id,omitempty"`
    ProviderBacked bool   `json:"provider_backed,omitempty"`
    Phase          string `json:"phase,omitempty"`
    Status         string `json:"status,omitempty"`
    ActorID        uint64 `json:"actor_id,omitempty"`
    OccurredAt     string `json:"occurred_at"`
}
