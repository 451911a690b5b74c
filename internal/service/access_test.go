package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/testutil"
)

func TestAccessChecker(t *testing.T) {
	t.Parallel()
	tickets := testutil.NewTickets()
	tickets.Grant(viewerID, eventID)
	checker := NewAccessChecker(tickets)

	tests := []struct {
		name    string
		level   model.AccessLevel
		viewer  uint64
		allowed bool
	}{
		{"public anonymous", model.AccessPublic, 0, true},
		{"public known", model.AccessPublic, strangerID, true},
		{"registered anonymous", model.AccessRegistered, 0, false},
		{"registered known", model.AccessRegistered, strangerID, true},
		{"ticketed without ticket", model.AccessTicketed, strangerID, false},
		{"ticketed with ticket", model.AccessTicketed, viewerID, true},
		{"ticketed anonymous", model.AccessTicketed, 0, false},
		{"unknown level", model.AccessLevel("VIP"), viewerID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &model.StreamingSession{EventID: eventID, AccessLevel: tt.level}
			err := checker.Check(context.Background(), s, tt.viewer)
			if tt.allowed && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestTicketedDenialSaysTicketRequired(t *testing.T) {
	t.Parallel()
	checker := NewAccessChecker(testutil.NewTickets())
	s := &model.StreamingSession{EventID: eventID, AccessLevel: model.AccessTicketed}

	err := checker.Check(context.Background(), s, viewerID)
	if err == nil || err.Error() != "forbidden: ticket required" {
		t.Fatalf("expected ticket required, got %v", err)
	}
}
