package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/queue"
	"github.com/iliyamo/live-event-sessions/internal/roomprovider"
)

// ErrProviderDown is what a failing Rooms returns.
var ErrProviderDown = fmt.Errorf("%w: provider down", roomprovider.ErrUnavailable)

// Rooms is a scriptable room provider.
type Rooms struct {
	mu           sync.Mutex
	FailCreate   bool
	FailDelete   bool
	FailList     bool
	FailSign     bool
	Created      []string
	Deleted      []string
	Participants map[string]uint32
	LastGrant    roomprovider.Grant
	LastIdentity string
}

// NewRooms returns a healthy provider.
func NewRooms() *Rooms { return &Rooms{Participants: map[string]uint32{}} }

func (r *Rooms) URL() string { return "wss://sfu.test" }

func (r *Rooms) CreateRoom(_ context.Context, name string, emptyTimeout time.Duration, maxParticipants int) (roomprovider.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate {
		return roomprovider.Room{}, ErrProviderDown
	}
	r.Created = append(r.Created, name)
	return roomprovider.Room{SID: "RM_" + name, Name: name, EmptyTimeout: uint32(emptyTimeout / time.Second), MaxParticipants: uint32(maxParticipants)}, nil
}

func (r *Rooms) DeleteRoom(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailDelete {
		return ErrProviderDown
	}
	r.Deleted = append(r.Deleted, name)
	return nil
}

func (r *Rooms) ListRooms(_ context.Context, names []string) ([]roomprovider.RoomStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailList {
		return nil, ErrProviderDown
	}
	var out []roomprovider.RoomStats
	for _, n := range names {
		if c, ok := r.Participants[n]; ok {
			out = append(out, roomprovider.RoomStats{Name: n, NumParticipants: c})
		}
	}
	return out, nil
}

func (r *Rooms) SignToken(identity, _ string, g roomprovider.Grant) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSign {
		return "", errors.New("signing key missing")
	}
	r.LastGrant = g
	r.LastIdentity = identity
	return fmt.Sprintf("tok:%s:%s:%t", identity, g.Room, g.CanPublish), nil
}

// Publisher records published live events.
type Publisher struct {
	mu     sync.Mutex
	Fail   bool
	events []queue.LiveEvent
}

func (p *Publisher) Publish(_ context.Context, ev queue.LiveEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return errors.New("broker unreachable")
	}
	p.events = append(p.events, ev)
	return nil
}

// Types returns the published event types in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
