package repository

import (
	"context"
	"database/sql"
)

// TicketRepo answers ticket ownership questions.  Ticket sales live
// elsewhere; this repo only reads.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a new TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// HasTicket reports whether userID holds any ticket for eventID.
func (r *TicketRepo) HasTicket(ctx context.Context, userID, eventID uint64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE user_id = ? AND event_id = ?)`, userID, eventID).Scan(&ok)
	return ok, err
}
