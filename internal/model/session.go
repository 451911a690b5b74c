package model

import "time"

// AccessLevel is the viewer-eligibility tier of a streaming session.
type AccessLevel string

const (
    AccessPublic     AccessLevel = "PUBLIC"
    AccessRegistered AccessLevel = "REGISTERED"
    AccessTicketed   AccessLevel = "TICKETED"
)

// Valid reports whether a is a known access level.
func (a AccessLevel) Valid() bool {
    switch a {
    case AccessPublic, AccessRegistered, AccessTicketed:
        return true
    }
    return false
}

// Metrics holds free-form session counters such as viewers,
// participants, messages and reactions.
type Metrics map[string]int64

// StreamingSession binds an event to a room on the real-time transport.
// At most one session per event is active at any time; ended sessions
// keep their row with Active=false and EndTime set.
//
// Fields:
//  ID               – UUID primary key.
//  EventID          – event being broadcast.
//  EntityID         – entity owning the event.
//  RoomID           – room identifier on the transport.
//  ProviderBacked   – false when the room could not be created remotely
//                     and RoomID is only the locally generated name.
//  SessionKey       – opaque secret correlating the session to its room.
//  AccessLevel      – PUBLIC, REGISTERED or TICKETED.
//  GeoRegions       – session override of event regions (empty = inherit).
//  Metrics          – counters merged by UpdateMetrics.
//  MetricsUpdatedAt – when Metrics last changed (nullable).
//  Active           – whether the session is live.
//  StartTime        – when the session was created.
//  EndTime          – when it ended (nil while active).
//  CreatedBy        – actor who started the session.
type StreamingSession struct {
    ID               string      `json:"id"`
    EventID          uint64      `json:"event_id"`
    EntityID         uint64      `json:"entity_id"`
    RoomID           string      `json:"room_id"`
    ProviderBacked   bool        `json:"provider_backed"`
    SessionKey       string      `json:"-"`
    AccessLevel      AccessLevel `json:"access_level"`
    GeoRegions       []string    `json:"geo_regions"`
    Metrics          Metrics     `json:"metrics"`
    MetricsUpdatedAt *time.Time  `json:"metrics_updated_at,omitempty"`
    Active           bool        `json:"active"`
    StartTime        time.Time   `json:"start_time"`
    EndTime          *time.Time  `json:"end_time,omitempty"`
    CreatedBy        uint64      `json:"created_by"`
}

// RoomHandle is the outcome of asking the transport for a room.  A handle
// that is not provider backed carries the locally generated identifier
// so the session can still be recorded while the provider is down.
type RoomHandle struct {
    ID             string
    ProviderBacked bool
}
