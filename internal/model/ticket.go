package model

// Ticket records that a user holds a ticket for an event.  Existence of
// the row is all the access checker needs.
type Ticket struct {
    ID      uint64 // tickets.id
    UserID  uint64 // tickets.user_id
    EventID uint64 // tickets.event_id
}
