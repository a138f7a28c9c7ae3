package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/match"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUsers keeps accounts in memory; passwords are stored as given.
type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.User
}

func (u *memUsers) CreateUser(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, other := range u.byID {
		if user.Email != "" && other.Email == user.Email {
			return database.ErrUserExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Rating = 1500
	u.byID[user.ID] = *user
	return nil
}

func (u *memUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return &user, nil
}

func (u *memUsers) AuthenticateUser(_ context.Context, email, password string) (*models.User, string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if user.Email == email && user.Password == password {
			token, err := auth.CreateJWT(user.ID)
			return &user, token, err
		}
	}
	return nil, "", database.ErrInvalidCredentials
}

func newTestServer(t *testing.T) (*MatchServer, http.Handler) {
	t.Helper()
	authCfg := config.Auth{TokenExpireTime: "1h"}
	require.NoError(t, auth.Init(authCfg))
	ttl, err := authCfg.TokenTTL()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	clock := quartz.NewMock(t)
	s := NewMatchServer(logger, match.NewStore(clock), &memUsers{byID: map[uuid.UUID]models.User{}})
	s.Clock = clock
	s.Defaults.TurnTimeoutSec = 0
	s.TokenTTL = ttl
	return s, s.Routes()
}

type caller struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (c *caller) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == authCookie {
			c.cookie = ck
		}
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateUserAndLogin(t *testing.T) {
	_, h := newTestServer(t)
	c := &caller{t: t, h: h}

	w := c.do(http.MethodPost, "/user/create", map[string]string{"email": "a@b.c", "password": "pw", "username": "alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.User](t, w)
	assert.Empty(t, created.Password)
	assert.Equal(t, "alice", created.Username)

	w = c.do(http.MethodPost, "/user/create", map[string]string{"email": "a@b.c", "password": "pw", "username": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(http.MethodPost, "/user/create", map[string]string{"email": "x@y.z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/user/login", map[string]string{"email": "a@b.c", "password": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, c.cookie)

	w = c.do(http.MethodPost, "/user/login", map[string]string{"email": "a@b.c", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[loginResponse](t, w)
	require.NotNil(t, c.cookie)
	assert.Equal(t, resp.Token, c.cookie.Value)
	assert.Equal(t, 3600, c.cookie.MaxAge)

	w = c.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[models.User](t, w).ID)
}

func TestGuestGetsCookie(t *testing.T) {
	_, h := newTestServer(t)
	c := &caller{t: t, h: h}

	w := c.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	guest := decode[models.User](t, w)
	assert.True(t, guest.IsEphemeral)
	require.NotNil(t, c.cookie)

	w = c.do(http.MethodGet, "/user/me", nil)
	assert.Equal(t, guest.ID, decode[models.User](t, w).ID, "the cookie keeps the same guest")
}

func TestMatchLifecycle(t *testing.T) {
	s, h := newTestServer(t)
	host := &caller{t: t, h: h}
	guest := &caller{t: t, h: h}

	w := host.do(http.MethodPost, "/match/create", map[string]any{
		"settings": map[string]any{"targetScore": 100},
		"bots":     []string{"first"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	summary := decode[match.Summary](t, w)
	assert.Equal(t, []string{"Guest", "first-bot-2"}, summary.Seats)
	assert.Equal(t, 100, summary.Settings.TargetScore)
	assert.Equal(t, 2, summary.OpenSeats)
	base := "/match/" + summary.ID.String()

	w = guest.do(http.MethodPost, base+"/start", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = guest.do(http.MethodPost, base+"/join", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[seatResponse](t, w).Seat)

	w = guest.do(http.MethodPost, base+"/settings", map[string]any{"cardsPerPlayer": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = host.do(http.MethodPost, base+"/settings", map[string]any{"cardsPerPlayer": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = host.do(http.MethodPost, base+"/settings", map[string]any{"cardsPerPlayer": 5})
	require.Equal(t, http.StatusOK, w.Code)

	w = host.do(http.MethodPost, base+"/bots", map[string]string{"strategy": "random"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[seatResponse](t, w).Seat)
	w = host.do(http.MethodPost, base+"/bots", map[string]string{"strategy": "clever"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = host.do(http.MethodPost, base+"/bots", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "four seats are taken")

	w = host.do(http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[match.MatchView](t, w)
	assert.Equal(t, match.StatusInProgress, view.Status)
	assert.Equal(t, 0, view.YourSeat)
	assert.Equal(t, 1, view.HandNumber)
	assert.NotEmpty(t, view.Hand)

	w = guest.do(http.MethodPost, base+"/leave", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	outsider := &caller{t: t, h: h}
	w = outsider.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	other := decode[match.MatchView](t, w)
	assert.Equal(t, -1, other.YourSeat)
	assert.Empty(t, other.Hand)
	assert.Empty(t, other.LegalPlays)

	w = outsider.do(http.MethodPost, base+"/join", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = outsider.do(http.MethodGet, "/match/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]match.Summary](t, w), 1)
	assert.Len(t, s.Store.List(), 1)
}

func TestMatchRequestErrors(t *testing.T) {
	_, h := newTestServer(t)
	c := &caller{t: t, h: h}

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/match/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/match/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/match/create", map[string]any{"bots": []string{"clever"}}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/match/create", map[string]any{"settings": map[string]any{"dealerPolicy": "oldest"}}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/match/create", map[string]any{"bots": []string{"first", "first", "first", "first"}}).Code)

	w := c.do(http.MethodPost, "/match/create", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[match.Summary](t, w).ID
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/match/"+id.String()+"/start", nil).Code, "one seat is not enough")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(match.ErrNotYourTurn))
	assert.Equal(t, http.StatusForbidden, statusFor(match.ErrNotHost))
	assert.Equal(t, http.StatusBadRequest, statusFor(match.ErrInvalidSettings))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

type wsMessage struct {
	Type    string           `json:"type"`
	Message string           `json:"message"`
	Action  string           `json:"action"`
	State   *match.MatchView `json:"state"`
}

func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) wsMessage {
	t.Helper()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg wsMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestMatchWebSocket(t *testing.T) {
	s, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	host := &caller{t: t, h: h}
	w := host.do(http.MethodPost, "/match/create", map[string]any{"bots": []string{"first"}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[match.Summary](t, w).ID
	url := "ws" + srv.URL[len("http"):] + "/match/ws/" + id.String()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   http.Header{"Cookie": {authCookie + "=" + host.cookie.Value}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	first := readUntil(t, ctx, conn, string(match.EventPrivateSyncState))
	require.NotNil(t, first.State)
	assert.Equal(t, match.StatusWaiting, first.State.Status)
	assert.True(t, first.State.Seats[0].Connected)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	readUntil(t, ctx, conn, "pong")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"draw"}`)))
	errMsg := readUntil(t, ctx, conn, "error")
	assert.Equal(t, "draw", errMsg.Action)
	assert.Equal(t, match.ErrMatchNotRunning.Error(), errMsg.Message)

	require.Equal(t, http.StatusOK, host.do(http.MethodPost, "/match/"+id.String()+"/start", nil).Code)
	readUntil(t, ctx, conn, string(match.EventMatchStarted))
	started := readUntil(t, ctx, conn, string(match.EventPrivateSyncState))
	assert.Equal(t, match.StatusInProgress, started.State.Status)
	assert.NotEmpty(t, started.State.Hand)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"dance"}`)))
	assert.Equal(t, "dance", readUntil(t, ctx, conn, "error").Action)

	conn.Close(websocket.StatusNormalClosure, "")
	m, ok := s.Store.Get(id)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		seat := m.ViewFor(uuid.Nil).Seats[0]
		return !seat.Connected
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMatchWebSocketRejects(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	host := &caller{t: t, h: h}
	w := host.do(http.MethodPost, "/match/create", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	url := "ws" + srv.URL[len("http"):] + "/match/ws/" + decode[match.Summary](t, w).ID.String()

	stranger := &caller{t: t, h: h}
	stranger.do(http.MethodGet, "/user/me", nil)

	cases := map[string]struct {
		opts *websocket.DialOptions
		code websocket.StatusCode
	}{
		"no subprotocol": {&websocket.DialOptions{HTTPHeader: http.Header{"Cookie": {authCookie + "=" + host.cookie.Value}}}, BadSubprotocolError},
		"no token":       {&websocket.DialOptions{Subprotocols: []string{subprotocol}}, InvalidAuthTokenError},
		"not seated":     {&websocket.DialOptions{Subprotocols: []string{subprotocol}, HTTPHeader: http.Header{"Cookie": {authCookie + "=" + stranger.cookie.Value}}}, NotSeatedError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			conn, _, err := websocket.Dial(ctx, url, tc.opts)
			require.NoError(t, err)
			defer conn.CloseNow()
			_, _, err = conn.Read(ctx)
			assert.Equal(t, tc.code, websocket.CloseStatus(err))
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/match/ws/"+uuid.NewString(), &websocket.DialOptions{Subprotocols: []string{subprotocol}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAllowOrigin(t *testing.T) {
	s := &MatchServer{OriginPatterns: []string{"localhost:*", "*.uno.example.com"}}
	assert.True(t, s.AllowOrigin(nil, "http://localhost:3000"))
	assert.True(t, s.AllowOrigin(nil, "https://play.uno.example.com"))
	assert.False(t, s.AllowOrigin(nil, "https://uno.example.com"))
	assert.False(t, s.AllowOrigin(nil, "https://evil.test"))
	assert.False(t, s.AllowOrigin(nil, "null"))
}
