// Package roomprovider talks to the LiveKit SFU that hosts live rooms.  It
// creates, lists and deletes rooms through the server SDK's RoomService
// client and signs participant tokens locally with the shared API secret.
package roomprovider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/iliyamo/live-event-sessions/internal/config"
)

// ErrUnavailable wraps every transport or API failure from the SFU.
var ErrUnavailable = errors.New("room provider unavailable")

// Room is the SFU's description of a created room.
type Room struct {
	SID             string
	Name            string
	EmptyTimeout    uint32
	MaxParticipants uint32
	CreationTime    int64
}

// RoomStats is the subset of room state used for session details.
type RoomStats struct {
	SID             string
	Name            string
	NumParticipants uint32
	NumPublishers   uint32
}

// Client is an SFU control-plane client.
type Client struct {
	url       string
	apiKey    string
	apiSecret string
	timeout   time.Duration
	tokenTTL  time.Duration
	rooms     *lksdk.RoomServiceClient
}

// New builds a Client from configuration.
func New(cfg config.RoomProviderConfig) *Client {
	return &Client{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		timeout:   cfg.Timeout,
		tokenTTL:  cfg.TokenTTL,
		rooms:     lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret),
	}
}

// URL is the endpoint participants connect to with an issued token.
func (c *Client) URL() string { return c.url }

// CreateRoom asks the SFU to create (or return the existing) room name.
func (c *Client) CreateRoom(ctx context.Context, name string, emptyTimeout time.Duration, maxParticipants int) (Room, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req := &livekit.CreateRoomRequest{
		Name:         name,
		EmptyTimeout: uint32(emptyTimeout / time.Second),
	}
	if maxParticipants > 0 {
		req.MaxParticipants = uint32(maxParticipants)
	}
	room, err := c.rooms.CreateRoom(ctx, req)
	if err != nil {
		return Room{}, fmt.Errorf("%w: create room %s: %v", ErrUnavailable, name, err)
	}
	return Room{
		SID:             room.GetSid(),
		Name:            room.GetName(),
		EmptyTimeout:    room.GetEmptyTimeout(),
		MaxParticipants: room.GetMaxParticipants(),
		CreationTime:    room.GetCreationTime(),
	}, nil
}

// DeleteRoom closes a room and disconnects its participants.
func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if _, err := c.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: name}); err != nil {
		return fmt.Errorf("%w: delete room %s: %v", ErrUnavailable, name, err)
	}
	return nil
}

// ListRooms returns stats for the named rooms.  Rooms the SFU does not
// know about are simply absent from the result.
func (c *Client) ListRooms(ctx context.Context, names []string) ([]RoomStats, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{Names: names})
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms: %v", ErrUnavailable, err)
	}
	out := make([]RoomStats, 0, len(resp.GetRooms()))
	for _, r := range resp.GetRooms() {
		out = append(out, RoomStats{
			SID:             r.GetSid(),
			Name:            r.GetName(),
			NumParticipants: r.GetNumParticipants(),
			NumPublishers:   r.GetNumPublishers(),
		})
	}
	return out, nil
}

// SignToken mints a participant token for identity.  No network call is
// made; failure here is a configuration problem.
func (c *Client) SignToken(identity, name string, g Grant) (string, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", fmt.Errorf("%w: api credentials not configured", ErrUnavailable)
	}
	tok, err := auth.NewAccessToken(c.apiKey, c.apiSecret).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(c.tokenTTL).
		SetVideoGrant(videoGrant(g)).
		ToJWT()
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrUnavailable, err)
	}
	return tok, nil
}

// bound applies the configured per-call timeout on top of ctx.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
