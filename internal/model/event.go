package model

import "time"

// Phase is an event's position in its broadcast lifecycle.
type Phase string

const (
    PhasePreLive  Phase = "PRE_LIVE"
    PhaseLive     Phase = "LIVE"
    PhasePostLive Phase = "POST_LIVE"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
    switch p {
    case PhasePreLive, PhaseLive, PhasePostLive:
        return true
    }
    return false
}

// EventStatus is the publication status of an event.  It moves alongside
// the phase: a LIVE phase implies a LIVE status unless the event is
// already terminal.
type EventStatus string

const (
    StatusDraft     EventStatus = "DRAFT"
    StatusScheduled EventStatus = "SCHEDULED"
    StatusLive      EventStatus = "LIVE"
    StatusCompleted EventStatus = "COMPLETED"
    StatusCancelled EventStatus = "CANCELLED"
)

// Terminal reports whether no further status changes are expected.
func (s EventStatus) Terminal() bool {
    return s == StatusCompleted || s == StatusCancelled
}

// TicketType describes one purchasable tier of an event.  The engine only
// cares whether at least one exists; price and availability are carried
// through for callers.
type TicketType struct {
    Type       string `json:"type"`
    PriceCents uint32 `json:"price_cents"`
    Available  int    `json:"available"`
}

// Event represents a scheduled broadcast as stored in the `events`
// table.  Only the attributes the live session engine reads or writes
// are modelled here.
//
// Fields:
//  ID               – primary key identifier.
//  EntityID         – owning entity (creator/organization).
//  CoordinatorID    – designated coordinator user (nullable).
//  Title            – display title.
//  Phase            – PRE_LIVE, LIVE or POST_LIVE.
//  Status           – DRAFT, SCHEDULED, LIVE, COMPLETED or CANCELLED.
//  GeoRestricted    – whether viewer location is enforced.
//  GeoRegions       – ordered region tags applied when restricted.
//  Geofence         – optional allow/block policy attached to the event.
//  TicketRequired   – whether tickets must exist before going live.
//  TicketTypes      – ticket tiers (may be empty).
//  StartTime        – scheduled start.
//  EndTime          – scheduled end (nullable).
//  LastTransitionBy – user that performed the last phase transition.
//  UpdatedAt        – last update timestamp.
type Event struct {
    ID               uint64          `json:"id"`
    EntityID         uint64          `json:"entity_id"`
    CoordinatorID    *uint64         `json:"coordinator_id,omitempty"`
    Title            string          `json:"title"`
    Phase            Phase           `json:"phase"`
    Status           EventStatus     `json:"status"`
    GeoRestricted    bool            `json:"geo_restricted"`
    GeoRegions       []string        `json:"geo_regions"`
    Geofence         *GeofencePolicy `json:"geofence,omitempty"`
    TicketRequired   bool            `json:"ticket_required"`
    TicketTypes      []TicketType    `json:"ticket_types"`
    StartTime        time.Time       `json:"start_time"`
    EndTime          *time.Time      `json:"end_time,omitempty"`
    LastTransitionBy *uint64         `json:"last_transition_by,omitempty"`
    UpdatedAt        time.Time       `json:"updated_at"`
}

// GeofenceType selects whether matching regions admit or reject a viewer.
type GeofenceType string

const (
    GeofenceAllowlist GeofenceType = "ALLOWLIST"
    GeofenceBlocklist GeofenceType = "BLOCKLIST"
)

// GeofencePolicy is the location policy attached to an event.  Regions use
// the tag forms country:<CODE>, state:<CODE>, city:<NAME>,
// timezone:<ABBR> plus the special tokens "global" and
// "region:international".
type GeofencePolicy struct {
    Type    GeofenceType `json:"type"`
    Regions []string     `json:"regions"`
}
