package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/config"
	"github.com/chasedut/chatfun/internal/feed"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/mute"
	"github.com/chasedut/chatfun/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// fakeAPI is a small in-memory ChatFun server.
type fakeAPI struct {
	mu           sync.Mutex
	role         string
	messages     []map[string]any
	posts        []map[string]any
	settingsPuts []map[string]any
	muteUntil    time.Time
	rejectAll    bool
	// token is handed out on login, "tok" when empty.
	token       string
	fetches     int
	moderations []map[string]any
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	user := func() map[string]any {
		return map[string]any{"id": 1, "username": "me", "role": f.role}
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		token := f.token
		if token == "" {
			token = "tok"
		}
		writeJSON(w, map[string]any{"access_token": token, "user": user()})
	})
	mux.HandleFunc("GET /auth/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := map[string]any{"user": user()}
		if !f.muteUntil.IsZero() {
			out["mute"] = map[string]any{"muted": true, "expires_at": f.muteUntil.Format(time.RFC3339), "reason": "spam", "scope": "both"}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /settings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"settings": map[string]any{"theme": "light"}})
	})
	mux.HandleFunc("PUT /settings", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.settingsPuts = append(f.settingsPuts, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /chat/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.fetches++
		if f.rejectAll {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{"error": "token expired"})
			return
		}
		writeJSON(w, map[string]any{"messages": f.messages})
	})
	mux.HandleFunc("POST /chat/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.posts = append(f.posts, body)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"message": map[string]any{"id": 99, "content": body["content"], "user_id": 1, "username": "me"}})
	})
	mux.HandleFunc("POST /moderation/users/{name}/actions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["target"] = r.PathValue("name")
		f.mu.Lock()
		f.moderations = append(f.moderations, body)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"success": true})
	})
	mux.HandleFunc("POST /chat/messages/{id}/reactions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"reactions": map[string]any{"👍": []any{1}}})
	})
	return mux
}

func (f *fakeAPI) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func newTestApp(t *testing.T, f *fakeAPI) (*App, *memStore) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.APIURL = srv.URL
	cfg.ChatInterval = 20 * time.Millisecond
	cfg.DMInterval = 20 * time.Millisecond
	cfg.SpyInterval = 20 * time.Millisecond
	cfg.RequestsPerSecond = 1000

	st := newMemStore()
	a, err := New(context.Background(), cfg, st)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a, st
}

// waitFor drains events until match accepts one.
func waitFor[T any](t *testing.T, a *App, match func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-a.Events():
			if v, ok := msg.(T); ok && match(v) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestLoginStartAndSend(t *testing.T) {
	f := &fakeAPI{role: "user", messages: []map[string]any{
		{"id": 1, "content": "hello", "user_id": 2, "username": "bob"},
	}}
	a, st := newTestApp(t, f)
	ctx := context.Background()

	require.NoError(t, a.Login(ctx, "me", "pw"))
	assert.Equal(t, "tok", st.data[store.KeyToken])
	require.NoError(t, a.Start(ctx))
	assert.Equal(t, "light", a.Settings().Theme)

	rendered := waitFor(t, a, func(m RenderedMsg) bool { return m.Slot == feed.SlotGlobal })
	require.Len(t, rendered.Messages, 1)
	assert.Equal(t, "bob", rendered.Messages[0].Author.Name)

	require.NoError(t, a.Handle(ctx, SendRequested{Slot: feed.SlotGlobal, Content: "  hi there  "}))
	assert.Equal(t, 1, f.postCount())
	assert.Equal(t, "hi there", f.posts[0]["content"])

	echoed := waitFor(t, a, func(m FeedMsg) bool {
		return m.Op == OpAppend && len(m.Rows) == 1 && m.Rows[0].Local
	})
	assert.True(t, echoed.Rows[0].Own)
	assert.Equal(t, "me", echoed.Rows[0].Author)
}

func TestSendRejectsEmpty(t *testing.T) {
	a, _ := newTestApp(t, &fakeAPI{role: "user"})
	err := a.Send(context.Background(), feed.SlotGlobal, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendWhileMuted(t *testing.T) {
	f := &fakeAPI{role: "user", muteUntil: time.Now().Add(10 * time.Minute)}
	a, _ := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	require.NoError(t, a.Start(ctx))

	ev := waitFor(t, a, func(m MuteMsg) bool { return m.Active })
	assert.NotEmpty(t, ev.Text)

	err := a.Send(ctx, feed.SlotGlobal, "hi", "")
	assert.ErrorIs(t, err, mute.ErrMuted)
	assert.Zero(t, f.postCount())
}

func TestSessionExpiryStopsPolling(t *testing.T) {
	f := &fakeAPI{role: "user"}
	a, st := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	require.NoError(t, a.Start(ctx))

	f.mu.Lock()
	f.rejectAll = true
	f.mu.Unlock()

	waitFor(t, a, func(SessionExpiredMsg) bool { return true })
	assert.False(t, a.Session.Authenticated())
	_, ok := st.data[store.KeyToken]
	assert.False(t, ok)

	e, err := a.Feeds.Engine(feed.SlotGlobal)
	require.NoError(t, err)
	assert.False(t, e.Running())
}

func TestExpiredTokenIsNotSent(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(300 * time.Millisecond).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	f := &fakeAPI{role: "user", token: token}
	a, _ := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	require.NoError(t, a.Start(ctx))

	// The server never rejects; the session ends on the exp claim alone.
	waitFor(t, a, func(SessionExpiredMsg) bool { return true })
	assert.False(t, a.Session.Authenticated())

	e, err := a.Feeds.Engine(feed.SlotGlobal)
	require.NoError(t, err)
	assert.False(t, e.Running())

	f.mu.Lock()
	sent := f.fetches
	f.mu.Unlock()
	time.Sleep(60 * time.Millisecond)
	f.mu.Lock()
	assert.Equal(t, sent, f.fetches)
	f.mu.Unlock()
}

func TestSpyRequiresModerator(t *testing.T) {
	a, _ := newTestApp(t, &fakeAPI{role: "user"})
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))

	assert.ErrorIs(t, a.SwitchTo(feed.SlotSpy, chat.Channel{ID: "1", Target: "bob"}), ErrNotModerator)
	_, err := a.SpyConversations(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotModerator)
	_, err = a.Reports(ctx)
	assert.ErrorIs(t, err, ErrNotModerator)
}

func TestReactAppliesReturnedCounts(t *testing.T) {
	f := &fakeAPI{role: "user", messages: []map[string]any{
		{"id": 1, "content": "hello", "user_id": 2, "username": "bob"},
	}}
	a, _ := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	require.NoError(t, a.Start(ctx))
	waitFor(t, a, func(m RenderedMsg) bool { return len(m.Messages) == 1 })

	require.NoError(t, a.Handle(ctx, ReactionToggled{Slot: feed.SlotGlobal, MessageID: "1", Emoji: "👍"}))
	got := waitFor(t, a, func(m FeedMsg) bool { return m.Op == OpReactions && m.MessageID == "1" })
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, 1, got.Reactions[0].Count)
}

func TestUpdateSettingsPersistsAndPushes(t *testing.T) {
	f := &fakeAPI{role: "user"}
	a, st := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	st.data[store.KeySettings] = `{"autoScroll":true,"futureKey":1}`
	require.NoError(t, a.loadSettings(ctx))

	s := a.Settings()
	s.AutoScroll = false
	require.NoError(t, a.UpdateSettings(ctx, s))

	assert.False(t, a.Settings().AutoScroll)
	assert.Contains(t, st.data[store.KeySettings], `"futureKey":1`)
	assert.Contains(t, st.data[store.KeySettings], `"autoScroll":false`)
	f.mu.Lock()
	assert.Len(t, f.settingsPuts, 1)
	f.mu.Unlock()
}

func TestApplyActionsSelfMute(t *testing.T) {
	f := &fakeAPI{role: "mod"}
	a, _ := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	require.Equal(t, moderation.RoleMod, a.Session.Role())

	summary, err := a.ApplyActions(ctx, "me", "", moderation.Actions{Mute: &moderation.Mute{Minutes: 5, Reason: "cool off"}})
	require.NoError(t, err)
	assert.NotEmpty(t, summary)

	f.mu.Lock()
	require.Len(t, f.moderations, 1)
	assert.Equal(t, "me", f.moderations[0]["target"])
	assert.Contains(t, f.moderations[0], "mute")
	f.mu.Unlock()

	status, muted := a.Mute.Status()
	require.True(t, muted)
	assert.Equal(t, "cool off", status.Reason)
	assert.Equal(t, mute.ScopeBoth, status.Scope)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), status.Expiry, 5*time.Second)
}

func TestApplyActionsOnOthersLeavesSelfUnmuted(t *testing.T) {
	f := &fakeAPI{role: "mod"}
	a, _ := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))

	_, err := a.ApplyActions(ctx, "bob", "", moderation.Actions{Mute: &moderation.Mute{Minutes: 5, Reason: "spam"}})
	require.NoError(t, err)
	_, muted := a.Mute.Status()
	assert.False(t, muted)
}

func TestLogout(t *testing.T) {
	f := &fakeAPI{role: "user"}
	a, st := newTestApp(t, f)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "me", "pw"))
	require.NoError(t, a.Start(ctx))

	require.NoError(t, a.Logout(ctx))
	waitFor(t, a, func(LoggedOutMsg) bool { return true })
	assert.False(t, a.Session.Authenticated())
	assert.Empty(t, st.data[store.KeyToken])

	e, err := a.Feeds.Engine(feed.SlotGlobal)
	require.NoError(t, err)
	assert.False(t, e.Running())
	assert.True(t, e.Channel().IsZero())
}
