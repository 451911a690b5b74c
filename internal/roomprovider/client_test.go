package roomprovider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"

	"github.com/iliyamo/live-event-sessions/internal/config"
)

const (
	testKey    = "APIkey123"
	testSecret = "secret-that-is-long-enough-for-hs256"
)

// sfuClaims mirrors the token body the SFU verifies.
type sfuClaims struct {
	jwt.RegisteredClaims
	Name  string           `json:"name,omitempty"`
	Video *auth.VideoGrant `json:"video,omitempty"`
}

// fakeRooms is an in-memory RoomService.  Methods the client never calls
// are left to the embedded interface.
type fakeRooms struct {
	livekit.RoomService

	mu       sync.Mutex
	fail     bool
	created  []*livekit.CreateRoomRequest
	deleted  []string
	rooms    []*livekit.Room
	authHdrs []string
}

func (f *fakeRooms) CreateRoom(_ context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("sfu overloaded")
	}
	f.created = append(f.created, req)
	return &livekit.Room{Sid: "RM_" + req.Name, Name: req.Name, EmptyTimeout: req.EmptyTimeout, MaxParticipants: req.MaxParticipants, CreationTime: 1000}, nil
}

func (f *fakeRooms) DeleteRoom(_ context.Context, req *livekit.DeleteRoomRequest) (*livekit.DeleteRoomResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("sfu overloaded")
	}
	f.deleted = append(f.deleted, req.Room)
	return &livekit.DeleteRoomResponse{}, nil
}

func (f *fakeRooms) ListRooms(_ context.Context, req *livekit.ListRoomsRequest) (*livekit.ListRoomsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("sfu overloaded")
	}
	out := &livekit.ListRoomsResponse{}
	for _, r := range f.rooms {
		if len(req.Names) == 0 || slices.Contains(req.Names, r.Name) {
			out.Rooms = append(out.Rooms, r)
		}
	}
	return out, nil
}

func (f *fakeRooms) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.authHdrs) == 0 {
		return ""
	}
	return f.authHdrs[len(f.authHdrs)-1]
}

func (f *fakeRooms) snapshot() (created []*livekit.CreateRoomRequest, deleted []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created), slices.Clone(f.deleted)
}

func newTestClient(t *testing.T, f *fakeRooms) *Client {
	t.Helper()
	twirp := livekit.NewRoomServiceServer(f)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHdrs = append(f.authHdrs, r.Header.Get("Authorization"))
		f.mu.Unlock()
		twirp.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(config.RoomProviderConfig{
		URL:       strings.Replace(srv.URL, "http://", "ws://", 1),
		APIKey:    testKey,
		APISecret: testSecret,
		Timeout:   2 * time.Second,
		TokenTTL:  time.Hour,
	})
}

func parseClaims(t *testing.T, raw string) *sfuClaims {
	t.Helper()
	var cl sfuClaims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(time.Minute))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return &cl
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	f := &fakeRooms{}
	c := newTestClient(t, f)

	room, err := c.CreateRoom(context.Background(), "event_7_1000", 10*time.Minute, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if room.SID != "RM_event_7_1000" || room.Name != "event_7_1000" || room.EmptyTimeout != 600 || room.CreationTime != 1000 {
		t.Fatalf("unexpected room %+v", room)
	}
	if created, _ := f.snapshot(); len(created) != 1 || created[0].MaxParticipants != 0 {
		t.Fatalf("expected one unlimited room request, got %+v", created)
	}

	gotAuth := parseClaims(t, strings.TrimPrefix(f.lastAuth(), "Bearer "))
	if gotAuth.Issuer != testKey || gotAuth.Video == nil || !gotAuth.Video.RoomCreate {
		t.Fatalf("expected admin token with roomCreate, got %+v", gotAuth)
	}

	if _, err := c.CreateRoom(context.Background(), "capped", time.Minute, 25); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created, _ := f.snapshot(); len(created) != 2 || created[1].MaxParticipants != 25 {
		t.Fatalf("expected a second room capped at 25, got %+v", created)
	}
}

func TestListAndDeleteRooms(t *testing.T) {
	t.Parallel()
	f := &fakeRooms{rooms: []*livekit.Room{
		{Sid: "RM_1", Name: "a", NumParticipants: 12, NumPublishers: 1},
		{Sid: "RM_2", Name: "b", NumParticipants: 3},
	}}
	c := newTestClient(t, f)

	rooms, err := c.ListRooms(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rooms) != 1 || rooms[0].SID != "RM_1" || rooms[0].NumParticipants != 12 || rooms[0].NumPublishers != 1 {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
	gotAuth := parseClaims(t, strings.TrimPrefix(f.lastAuth(), "Bearer "))
	if gotAuth.Video == nil || !gotAuth.Video.RoomList {
		t.Fatalf("expected admin token with roomList, got %+v", gotAuth.Video)
	}

	missing, err := c.ListRooms(context.Background(), []string{"gone"})
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected no rooms, got %+v, %v", missing, err)
	}

	if err := c.DeleteRoom(context.Background(), "a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, deleted := f.snapshot(); len(deleted) != 1 || deleted[0] != "a" {
		t.Fatalf("unexpected deletes %v", deleted)
	}
}

func TestProviderErrors(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &fakeRooms{fail: true})

	if err := c.DeleteRoom(context.Background(), "a"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.CreateRoom(context.Background(), "a", time.Minute, 5); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	down := New(config.RoomProviderConfig{URL: "http://127.0.0.1:1", APIKey: testKey, APISecret: testSecret, Timeout: 200 * time.Millisecond})
	if _, err := down.ListRooms(context.Background(), []string{"a"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for unreachable provider, got %v", err)
	}
}

func TestSignToken(t *testing.T) {
	t.Parallel()

	c := New(config.RoomProviderConfig{URL: "wss://sfu.example.com", APIKey: testKey, APISecret: testSecret, TokenTTL: time.Hour})
	raw, err := c.SignToken("user-42", "Ada", Grant{Room: "event_1_1", CanPublish: false, CanSubscribe: true, CanPublishData: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	cl := parseClaims(t, raw)
	if cl.Subject != "user-42" || cl.Issuer != testKey || cl.Name != "Ada" {
		t.Fatalf("unexpected claims %+v", cl)
	}
	if cl.ExpiresAt == nil || cl.ExpiresAt.Sub(time.Now()) > time.Hour+time.Minute {
		t.Fatalf("expected expiry within the token ttl, got %v", cl.ExpiresAt)
	}
	v := cl.Video
	if v == nil || v.Room != "event_1_1" || !v.RoomJoin || v.RoomCreate {
		t.Fatalf("unexpected grant %+v", v)
	}
	if v.CanPublish == nil || *v.CanPublish {
		t.Fatalf("expected explicit canPublish=false")
	}
	if v.CanSubscribe == nil || !*v.CanSubscribe || v.CanPublishData == nil || !*v.CanPublishData {
		t.Fatalf("expected subscribe and data grants")
	}
	if c.URL() != "wss://sfu.example.com" {
		t.Fatalf("unexpected url %s", c.URL())
	}

	unconfigured := New(config.RoomProviderConfig{URL: "wss://sfu.example.com"})
	if _, err := unconfigured.SignToken("u", "u", Grant{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without credentials, got %v", err)
	}
}
