package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/live-event-sessions/internal/model"
)

// AccessChecker gates token requests on a session's access level.
type AccessChecker struct {
	tickets TicketStore
}

// NewAccessChecker returns an AccessChecker backed by tickets.
func NewAccessChecker(tickets TicketStore) *AccessChecker {
	return &AccessChecker{tickets: tickets}
}

// Check returns nil when viewerID may join s.  A zero viewerID is an
// anonymous viewer, which only PUBLIC sessions admit.
func (a *AccessChecker) Check(ctx context.Context, s *model.StreamingSession, viewerID uint64) error {
	switch s.AccessLevel {
	case model.AccessPublic:
		return nil
	case model.AccessRegistered:
		if viewerID == 0 {
			return fmt.Errorf("%w: sign in required", ErrForbidden)
		}
		return nil
	case model.AccessTicketed:
		if viewerID == 0 {
			return fmt.Errorf("%w: ticket required", ErrForbidden)
		}
		ok, err := a.tickets.HasTicket(ctx, viewerID, s.EventID)
		if err != nil {
			return fmt.Errorf("check ticket: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: ticket required", ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown access level %q", ErrForbidden, s.AccessLevel)
}

// authorize applies the event management rule to actor.
func authorize(ctx context.Context, perms PermissionChecker, ev *model.Event, actor model.Actor) error {
	if actor.UserID == 0 {
		return fmt.Errorf("%w: authentication required", ErrForbidden)
	}
	ok, err := perms.IsAuthorized(ctx, ev, actor)
	if err != nil {
		return fmt.Errorf("check permissions: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %d may not manage event %d", ErrForbidden, actor.UserID, ev.ID)
	}
	return nil
}
