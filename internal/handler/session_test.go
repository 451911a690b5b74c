package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-event-sessions/internal/clock"
	"github.com/iliyamo/live-event-sessions/internal/middleware"
	"github.com/iliyamo/live-event-sessions/internal/model"
	"github.com/iliyamo/live-event-sessions/internal/service"
	"github.com/iliyamo/live-event-sessions/internal/testutil"
	"github.com/iliyamo/live-event-sessions/internal/utils"
)

const testSecret = "handler-test-secret"

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

type server struct {
	e        *echo.Echo
	events   *testutil.EventStore
	sessions *testutil.SessionStore
	rooms    *testutil.Rooms
}

func newServer(t *testing.T) *server {
	t.Helper()
	end := t0.Add(2 * time.Hour)
	events := testutil.NewEventStore(model.Event{
		ID:          1,
		EntityID:    5,
		Title:       "Launch stream",
		Phase:       model.PhasePreLive,
		Status:      model.StatusScheduled,
		GeoRegions:  []string{},
		TicketTypes: []model.TicketType{},
		StartTime:   t0,
		EndTime:     &end,
	})
	sessions := testutil.NewSessionStore()
	perms := testutil.NewPermissions()
	perms.Allow(1, 10)
	rooms := testutil.NewRooms()
	opts := []service.Option{
		service.WithClock(clock.NewManual(t0)),
		service.WithLogger(log.New(io.Discard, "", 0)),
	}
	mgr := service.NewSessionManager(events, sessions, perms, rooms, opts...)
	issuer := service.NewTokenIssuer(events, sessions, perms, service.NewAccessChecker(testutil.NewTickets()), rooms, opts...)

	sh := NewSessionHandler(mgr, issuer, nil)
	eh := NewEventHandler(mgr)
	jwt := middleware.JWTAuth(testSecret)

	e := echo.New()
	e.POST("/v1/events/:id/sessions", sh.Create, jwt)
	e.POST("/v1/events/:id/phase", eh.Phase, jwt)
	e.POST("/v1/events/:id/extend", eh.Extend, jwt)
	e.GET(ActiveSessionsRoute, sh.Active)
	e.GET("/v1/sessions/:id", sh.Details)
	e.POST("/v1/sessions/:id/end", sh.End, jwt)
	e.PATCH("/v1/sessions/:id/metrics", sh.Metrics, jwt, middleware.RequireRole(model.RoleAdmin))
	e.POST("/v1/sessions/:id/token", sh.Token, middleware.OptionalJWT(testSecret))
	return &server{e: e, events: events, sessions: sessions, rooms: rooms}
}

func bearerFor(t *testing.T, id uint64, role model.GlobalRole) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, 15, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok.Token
}

func (s *server) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSessionEndpointsLifecycle(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	owner := bearerFor(t, 10, model.RoleUser)

	rec := s.do(http.MethodPost, "/v1/events/1/sessions", `{"access_level":"public"}`, owner)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	created := decode[model.StreamingSession](t, rec)
	if !created.Active || created.AccessLevel != model.AccessPublic || !created.ProviderBacked {
		t.Fatalf("created = %+v", created)
	}
	if key := s.sessions.All()[0].SessionKey; key == "" || strings.Contains(rec.Body.String(), key) {
		t.Fatalf("session key missing or leaked in response")
	}
	if got := s.events.Get(1).Phase; got != model.PhaseLive {
		t.Fatalf("phase = %s, want LIVE", got)
	}

	rec = s.do(http.MethodGet, ActiveSessionsRoute, "", "")
	list := decode[struct {
		Items []model.StreamingSession `json:"items"`
	}](t, rec)
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("active = %+v", list.Items)
	}

	rec = s.do(http.MethodGet, "/v1/sessions/"+created.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("details = %d %s", rec.Code, rec.Body)
	}

	rec = s.do(http.MethodPost, "/v1/sessions/"+created.ID+"/token", `{"name":"Ann"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("token = %d %s", rec.Code, rec.Body)
	}
	tok := decode[service.IssuedToken](t, rec)
	if !strings.HasPrefix(tok.Identity, "guest-") || tok.Role != model.ParticipantViewer || tok.CanPublish {
		t.Fatalf("token = %+v", tok)
	}

	rec = s.do(http.MethodPost, "/v1/sessions/"+created.ID+"/end", "", owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("end = %d %s", rec.Code, rec.Body)
	}
	if got := s.events.Get(1); got.Phase != model.PhasePostLive || got.Status != model.StatusCompleted {
		t.Fatalf("event after end = %s/%s", got.Phase, got.Status)
	}

	if rec := s.do(http.MethodPost, "/v1/sessions/"+created.ID+"/end", "", owner); rec.Code != http.StatusNotFound {
		t.Fatalf("second end = %d, want 404", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/v1/sessions/"+created.ID+"/token", `{}`, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("token after end = %d, want 404", rec.Code)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	t.Parallel()
	owner := bearerFor(t, 10, model.RoleUser)
	stranger := bearerFor(t, 99, model.RoleUser)

	tests := []struct {
		name  string
		path  string
		body  string
		token string
		want  int
	}{
		{"no token", "/v1/events/1/sessions", `{}`, "", http.StatusUnauthorized},
		{"bad event id", "/v1/events/abc/sessions", `{}`, owner, http.StatusBadRequest},
		{"unknown event", "/v1/events/42/sessions", `{}`, owner, http.StatusNotFound},
		{"not authorized", "/v1/events/1/sessions", `{}`, stranger, http.StatusForbidden},
		{"bad access level", "/v1/events/1/sessions", `{"access_level":"VIP"}`, owner, http.StatusBadRequest},
		{"malformed body", "/v1/events/1/sessions", `{"access_level":`, owner, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newServer(t)
			if rec := s.do(http.MethodPost, tc.path, tc.body, tc.token); rec.Code != tc.want {
				t.Fatalf("status = %d %s, want %d", rec.Code, rec.Body, tc.want)
			}
		})
	}
}

func TestCreateSessionConflict(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	owner := bearerFor(t, 10, model.RoleUser)
	if rec := s.do(http.MethodPost, "/v1/events/1/sessions", `{}`, owner); rec.Code != http.StatusCreated {
		t.Fatalf("first = %d", rec.Code)
	}
	rec := s.do(http.MethodPost, "/v1/events/1/sessions", `{}`, owner)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second = %d, want 409", rec.Code)
	}
	if len(s.sessions.All()) != 1 {
		t.Fatalf("sessions = %d, want 1", len(s.sessions.All()))
	}
}

func TestUpdateMetricsRequiresAdmin(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	owner := bearerFor(t, 10, model.RoleUser)
	admin := bearerFor(t, 1, model.RoleAdmin)
	created := decode[model.StreamingSession](t, s.do(http.MethodPost, "/v1/events/1/sessions", `{}`, owner))
	path := "/v1/sessions/" + created.ID + "/metrics"

	if rec := s.do(http.MethodPatch, path, `{"metrics":{"viewers":3}}`, owner); rec.Code != http.StatusForbidden {
		t.Fatalf("owner = %d, want 403", rec.Code)
	}
	if rec := s.do(http.MethodPatch, path, `{"metrics":{}}`, admin); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty = %d, want 400", rec.Code)
	}
	s.do(http.MethodPatch, path, `{"metrics":{"viewers":3}}`, admin)
	rec := s.do(http.MethodPatch, path, `{"metrics":{"viewers":2,"reactions":1}}`, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge = %d %s", rec.Code, rec.Body)
	}
	got := decode[model.StreamingSession](t, rec)
	if got.Metrics["viewers"] != 5 || got.Metrics["reactions"] != 1 {
		t.Fatalf("metrics = %v", got.Metrics)
	}
	if rec := s.do(http.MethodPatch, "/v1/sessions/missing/metrics", `{"metrics":{"viewers":1}}`, admin); rec.Code != http.StatusNotFound {
		t.Fatalf("missing = %d, want 404", rec.Code)
	}
}

func TestPrivilegedTokenRoles(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	owner := bearerFor(t, 10, model.RoleUser)
	viewer := bearerFor(t, 20, model.RoleUser)
	created := decode[model.StreamingSession](t, s.do(http.MethodPost, "/v1/events/1/sessions", `{}`, owner))
	path := "/v1/sessions/" + created.ID + "/token"

	if rec := s.do(http.MethodPost, path, `{"role":"host"}`, viewer); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer as host = %d, want 403", rec.Code)
	}
	if rec := s.do(http.MethodPost, path, `{"role":"DIRECTOR"}`, owner); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role = %d, want 400", rec.Code)
	}
	rec := s.do(http.MethodPost, path, `{"role":"HOST"}`, owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner as host = %d %s", rec.Code, rec.Body)
	}
	tok := decode[service.IssuedToken](t, rec)
	if tok.Identity != "user-10" || !tok.CanPublish || tok.URL != "wss://sfu.test" {
		t.Fatalf("token = %+v", tok)
	}
	if rec := s.do(http.MethodPost, path, `{}`, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad bearer = %d, want 401", rec.Code)
	}
}

func TestPhaseAndExtendEndpoints(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	owner := bearerFor(t, 10, model.RoleUser)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown phase", "/v1/events/1/phase", `{"phase":"DONE"}`, http.StatusPreconditionFailed},
		{"missing phase", "/v1/events/1/phase", `{}`, http.StatusBadRequest},
		{"skip live", "/v1/events/1/phase", `{"phase":"POST_LIVE"}`, http.StatusPreconditionFailed},
		{"zero minutes", "/v1/events/1/extend", `{"minutes":0}`, http.StatusBadRequest},
		{"extend", "/v1/events/1/extend", `{"minutes":30}`, http.StatusOK},
		{"go live", "/v1/events/1/phase", `{"phase":"live"}`, http.StatusOK},
	}
	for _, tc := range tests {
		if rec := s.do(http.MethodPost, tc.path, tc.body, owner); rec.Code != tc.want {
			t.Fatalf("%s: status = %d %s, want %d", tc.name, rec.Code, rec.Body, tc.want)
		}
	}
	ev := s.events.Get(1)
	if ev.Phase != model.PhaseLive || !ev.EndTime.Equal(t0.Add(150*time.Minute)) {
		t.Fatalf("event = %s end %v", ev.Phase, ev.EndTime)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidArgument, http.StatusBadRequest},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusPreconditionFailed},
		{service.ErrProviderUnavailable, http.StatusBadGateway},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
