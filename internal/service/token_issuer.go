package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/iliyamo/live-event-sessions/internal/geofence"
	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/repository"
	"github.com/iliyamo/live-event-sessions/internal/roomprovider"
)

// TokenRequest asks for a room token.  Viewer.UserID is zero for an
// anonymous caller.
type TokenRequest struct {
	SessionID string
	Role      model.ParticipantRole // empty means VIEWER
	Viewer    model.Actor
	Name      string
	Location  geofence.Claims
}

// IssuedToken is what a participant needs to connect.
type IssuedToken struct {
	Token      string                `json:"token"`
	RoomID     string                `json:"room_id"`
	Identity   string                `json:"participant_identity"`
	Role       model.ParticipantRole `json:"role"`
	URL        string                `json:"url"`
	CanPublish bool                  `json:"can_publish"`
}

// TokenIssuer mints capability-scoped room tokens after the geofence and
// access checks pass.
type TokenIssuer struct {
	events   EventStore
	sessions SessionStore
	perms    PermissionChecker
	access   *AccessChecker
	rooms    RoomProvider
	rt       runtime
}

// NewTokenIssuer wires a TokenIssuer.
func NewTokenIssuer(events EventStore, sessions SessionStore, perms PermissionChecker, access *AccessChecker, rooms RoomProvider, opts ...Option) *TokenIssuer {
	return &TokenIssuer{
		events:   events,
		sessions: sessions,
		perms:    perms,
		access:   access,
		rooms:    rooms,
		rt:       newRuntime(opts),
	}
}

// Issue checks req against the session's policy and signs a token.
func (t *TokenIssuer) Issue(ctx context.Context, req TokenRequest) (*IssuedToken, error) {
	role := req.Role
	if role == "" {
		role = model.ParticipantViewer
	}
	if _, ok := model.ParseParticipantRole(string(role)); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, req.Role)
	}

	s, err := t.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, req.SessionID)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !s.Active {
		return nil, fmt.Errorf("%w: session %s is not active", ErrNotFound, s.ID)
	}
	ev, err := loadEvent(ctx, t.events, s.EventID)
	if err != nil {
		return nil, err
	}

	if policy := geofence.Effective(*ev, *s); policy.Restricted {
		if d := geofence.Evaluate(policy, req.Location); !d.Allowed {
			t.rt.metrics.denied("geofence")
			return nil, fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
		}
	}
	if err := t.access.Check(ctx, s, req.Viewer.UserID); err != nil {
		if errors.Is(err, ErrForbidden) {
			t.rt.metrics.denied("access")
		}
		return nil, err
	}
	if role.CanPublish() {
		if err := authorize(ctx, t.perms, ev, req.Viewer); err != nil {
			if errors.Is(err, ErrForbidden) {
				t.rt.metrics.denied("role")
			}
			return nil, err
		}
	}

	identity := participantIdentity(req.Viewer.UserID)
	name := req.Name
	if name == "" {
		name = identity
	}
	token, err := t.rooms.SignToken(identity, name, GrantFor(s.RoomID, role))
	if err != nil {
		t.rt.metrics.providerError("sign_token")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	t.rt.metrics.tokenIssued(string(role))
	return &IssuedToken{
		Token:      token,
		RoomID:     s.RoomID,
		Identity:   identity,
		Role:       role,
		URL:        t.rooms.URL(),
		CanPublish: role.CanPublish(),
	}, nil
}

// GrantFor scopes a grant to room.  Everyone may subscribe and send data
// messages; only hosts and coordinators publish media.
func GrantFor(room string, role model.ParticipantRole) roomprovider.Grant {
	return roomprovider.Grant{
		Room:           room,
		CanPublish:     role.CanPublish(),
		CanSubscribe:   true,
		CanPublishData: true,
	}
}

func participantIdentity(userID uint64) string {
	if userID == 0 {
		return "guest-" + uuid.NewString()
	}
	return "user-" + strconv.FormatUint(userID, 10)
}
