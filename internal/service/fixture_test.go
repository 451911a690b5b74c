package service

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/clock"
	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/testutil"
)

const (
	eventID    uint64 = 1
	ownerID    uint64 = 10
	viewerID   uint64 = 20
	strangerID uint64 = 99
)

var (
	t0     = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	owner  = model.Actor{UserID: ownerID, Role: model.RoleUser}
	viewer = model.Actor{UserID: viewerID, Role: model.RoleUser}
)

type fixture struct {
	events   *testutil.EventStore
	sessions *testutil.SessionStore
	perms    *testutil.Permissions
	tickets  *testutil.Tickets
	rooms    *testutil.Rooms
	pub      *testutil.Publisher
	clock    *clock.Manual
	mgr      *SessionManager
	issuer   *TokenIssuer
}

func preLiveEvent() model.Event {
	end := t0.Add(2 * time.Hour)
	return model.Event{
		ID:          eventID,
		EntityID:    5,
		Title:       "Launch stream",
		Phase:       model.PhasePreLive,
		Status:      model.StatusScheduled,
		GeoRegions:  []string{},
		TicketTypes: []model.TicketType{},
		StartTime:   t0,
		EndTime:     &end,
	}
}

func newFixture(t *testing.T, events ...model.Event) *fixture {
	t.Helper()
	if len(events) == 0 {
		events = []model.Event{preLiveEvent()}
	}
	f := &fixture{
		events:   testutil.NewEventStore(events...),
		sessions: testutil.NewSessionStore(),
		perms:    testutil.NewPermissions(),
		tickets:  testutil.NewTickets(),
		rooms:    testutil.NewRooms(),
		pub:      &testutil.Publisher{},
		clock:    clock.NewManual(t0),
	}
	for _, ev := range events {
		f.perms.Allow(ev.ID, ownerID)
	}
	opts := []Option{
		WithClock(f.clock),
		WithLogger(log.New(io.Discard, "", 0)),
		WithPublisher(f.pub),
		WithRoomLimits(5*time.Minute, 100),
	}
	f.mgr = NewSessionManager(f.events, f.sessions, f.perms, f.rooms, opts...)
	f.issuer = NewTokenIssuer(f.events, f.sessions, f.perms, NewAccessChecker(f.tickets), f.rooms, opts...)
	return f
}
