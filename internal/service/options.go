package service

import (
	"log"
	"time"

	"github.com/iliyamo/live-event-sessions/internal/clock"
)

// runtime carries the collaborators every engine component shares.
type runtime struct {
	clock           clock.Clock
	logger          *log.Logger
	metrics         *Metrics
	notify          notifier
	emptyTimeout    time.Duration
	maxParticipants int
}

// Option configures an engine component.
type Option func(*runtime)

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) Option {
	return func(r *runtime) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger overrides log.Default().
func WithLogger(l *log.Logger) Option {
	return func(r *runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records engine outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(r *runtime) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithPublisher enables live event notifications.
func WithPublisher(p Publisher) Option {
	return func(r *runtime) { r.notify.pub = p }
}

// WithRoomLimits sets the empty timeout and participant cap for rooms
// created on the provider.  A zero maxParticipants means unlimited.
func WithRoomLimits(emptyTimeout time.Duration, maxParticipants int) Option {
	return func(r *runtime) {
		if emptyTimeout > 0 {
			r.emptyTimeout = emptyTimeout
		}
		if maxParticipants >= 0 {
			r.maxParticipants = maxParticipants
		}
	}
}

const defaultEmptyTimeout = 10 * time.Minute

func newRuntime(opts []Option) runtime {
	r := runtime{
		clock:        clock.NewSystem(),
		logger:       log.Default(),
		emptyTimeout: defaultEmptyTimeout,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	r.notify.logger = r.logger
	return r
}
