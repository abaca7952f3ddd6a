package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingView struct {
	mu           sync.Mutex
	resets       int
	scrolls      int
	appends      int
	placeholder  string
	rows         []Row
	reactionPush map[string][]ReactionCount
	header       chat.Header
}

func (v *recordingView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets++
	v.rows = nil
	v.placeholder = ""
}

func (v *recordingView) Placeholder(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.placeholder = text
}

func (v *recordingView) Append(rows ...Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appends++
	v.rows = append(v.rows, rows...)
}

func (v *recordingView) UpdateReactions(id string, reactions []ReactionCount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.reactionPush == nil {
		v.reactionPush = make(map[string][]ReactionCount)
	}
	v.reactionPush[id] = reactions
	for i := range v.rows {
		if v.rows[i].ID == id {
			v.rows[i].Reactions = reactions
		}
	}
}

func (v *recordingView) SetHeader(h chat.Header) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.header = h
}

func (v *recordingView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

func (v *recordingView) ids() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.rows))
	for _, r := range v.rows {
		out = append(out, r.ID)
	}
	return out
}

func (v *recordingView) counts() (resets, appends, scrolls int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resets, v.appends, v.scrolls
}

// fakeServer serves a message list per channel id. A gate holds the next
// fetch for that channel until it is closed, ignoring cancellation the way a
// slow request would.
type fakeServer struct {
	mu    sync.Mutex
	data  map[string][]chat.Message
	errs  map[string]error
	gates map[string]chan struct{}
	calls map[string]int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		data:  make(map[string][]chat.Message),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
		calls: make(map[string]int),
	}
}

func (f *fakeServer) set(id string, msgs ...chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[id] = msgs
}

func (f *fakeServer) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *fakeServer) hold(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[id] = gate
	return gate
}

func (f *fakeServer) called(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeServer) fetch(_ context.Context, ch chat.Channel) ([]chat.Message, error) {
	f.mu.Lock()
	f.calls[ch.ID]++
	gate := f.gates[ch.ID]
	delete(f.gates, ch.ID)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.data[ch.ID]), f.errs[ch.ID]
}

type authError struct{}

func (authError) Error() string      { return "unauthorized" }
func (authError) Unauthorized() bool { return true }

type harness struct {
	engine   *Engine
	view     *recordingView
	server   *fakeServer
	settings *settings.Settings
	renders  atomic.Int32
	expired  atomic.Int32
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	st := settings.Defaults()
	h := &harness{
		view:     &recordingView{},
		server:   newFakeServer(),
		settings: &st,
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Fetch == nil {
		cfg.Fetch = h.server.fetch
	}
	h.engine = NewEngine(cfg, h.view, newTestRenderer(h.settings),
		func() settings.Settings { return *h.settings },
		WithRenderHook(func(Slot, chat.Channel, []chat.Message) { h.renders.Add(1) }),
		WithAuthExpired(func() { h.expired.Add(1) }),
	)
	t.Cleanup(func() {
		h.engine.Stop()
		h.engine.Wait()
	})
	return h
}

// switchTo switches channels and waits for the immediate fetch to land.
func (h *harness) switchTo(t *testing.T, id string) {
	t.Helper()
	before := h.server.called(id)
	require.NoError(t, h.engine.SwitchTo(context.Background(), chat.Channel{ID: id}))
	require.Eventually(t, func() bool { return h.server.called(id) > before }, time.Second, time.Millisecond)
	h.engine.inflight.Wait()
}

// tick runs one fetch for the current cycle and waits for it to apply.
func (h *harness) tick() {
	e := h.engine
	e.mu.Lock()
	gen, ch := e.generation, e.channel
	e.mu.Unlock()
	e.issue(context.Background(), gen, ch)
	e.inflight.Wait()
}

func TestEngineSkipsRenderOnIdenticalTicks(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields, FollowSetting: true})
	h.server.set("global", msg("1", "a"), msg("2", "b"))

	h.switchTo(t, "global")
	assert.Equal(t, []string{"1", "2"}, h.view.ids())
	resets, appends, _ := h.view.counts()

	h.tick()
	h.tick()
	r2, a2, _ := h.view.counts()
	assert.Equal(t, resets, r2)
	assert.Equal(t, appends, a2)
	assert.EqualValues(t, 1, h.renders.Load())

	h.server.set("global", msg("1", "a"), msg("2", "b"), msg("3", "c"))
	h.tick()
	assert.Equal(t, []string{"1", "2", "3"}, h.view.ids())
	assert.EqualValues(t, 2, h.renders.Load())
}

func TestEngineReactionOnlyChangeDoesNotRebuildFeed(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields, FollowSetting: true})
	h.server.set("global", msg("1", "a"))
	h.switchTo(t, "global")

	m := msg("1", "a")
	m.Reactions = chat.Reactions{"👍": {"x"}}
	h.server.set("global", m)
	h.tick()
	assert.EqualValues(t, 1, h.renders.Load())
}

func TestEngineEmptyListShowsPlaceholder(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.switchTo(t, "global")

	assert.Equal(t, DefaultEmptyText, h.view.placeholder)
	assert.Empty(t, h.view.ids())
	assert.EqualValues(t, 1, h.renders.Load())

	h.tick()
	assert.EqualValues(t, 1, h.renders.Load())
}

func TestEngineInitialScrollRegardlessOfSetting(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields, FollowSetting: true})
	h.settings.AutoScroll = false
	h.server.set("a", msg("1", "a"))
	h.server.set("b", msg("2", "b"))

	h.switchTo(t, "a")
	_, _, scrolls := h.view.counts()
	assert.Equal(t, 1, scrolls)

	h.server.set("a", msg("1", "a"), msg("3", "c"))
	h.tick()
	_, _, scrolls = h.view.counts()
	assert.Equal(t, 1, scrolls)

	h.switchTo(t, "b")
	_, _, scrolls = h.view.counts()
	assert.Equal(t, 2, scrolls)
}

func TestEngineFollowsAutoScroll(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields, FollowSetting: true})
	h.server.set("global", msg("1", "a"))
	h.switchTo(t, "global")

	h.server.set("global", msg("1", "a"), msg("2", "b"))
	h.tick()
	_, _, scrolls := h.view.counts()
	assert.Equal(t, 2, scrolls)
}

func TestEngineSpyIgnoresAutoScroll(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotSpy, Fields: ConversationFields, Strategy: Append})
	h.server.set("c1", msg("1", "a"))
	h.switchTo(t, "c1")

	h.server.set("c1", msg("1", "a"), msg("2", "b"))
	h.tick()
	_, _, scrolls := h.view.counts()
	assert.Equal(t, 1, scrolls)
	assert.Equal(t, []string{"1", "2"}, h.view.ids())
}

func TestEngineDiscardsResponseForPreviousChannel(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotDirect, Fields: ConversationFields, Strategy: Append})
	h.server.set("a", msg("a1", "from a"))
	h.server.set("b", msg("b1", "from b"))
	gate := h.server.hold("a")

	require.NoError(t, h.engine.SwitchTo(context.Background(), chat.Channel{ID: "a"}))
	require.Eventually(t, func() bool { return h.server.called("a") == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.engine.SwitchTo(context.Background(), chat.Channel{ID: "b"}))
	require.Eventually(t, func() bool { return slices.Equal(h.view.ids(), []string{"b1"}) }, time.Second, time.Millisecond)

	close(gate)
	h.engine.inflight.Wait()

	assert.Equal(t, []string{"b1"}, h.view.ids())
	assert.Equal(t, chat.Channel{ID: "b"}, h.engine.Channel())
	msgs := h.engine.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "b1", msgs[0].ID)
}

func TestEngineDiscardsOlderSequence(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.server.set("global", msg("1", "a"))
	h.switchTo(t, "global")

	e := h.engine
	e.mu.Lock()
	gen, ch, applied := e.generation, e.channel, e.applied
	e.mu.Unlock()

	e.apply(gen, applied+2, ch, []chat.Message{msg("1", "a"), msg("2", "new")}, nil)
	e.apply(gen, applied+1, ch, []chat.Message{msg("1", "old")}, nil)

	assert.Equal(t, []string{"1", "2"}, h.view.ids())
}

func TestEngineAppendStrategy(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotDirect, Fields: ConversationFields, Strategy: Append, FollowSetting: true})
	h.server.set("c", msg("1", "a"), msg("2", "b"))
	h.switchTo(t, "c")
	resets, appends, _ := h.view.counts()

	h.server.set("c", msg("1", "a"), msg("2", "b"), msg("3", "c"))
	h.tick()
	r, a, _ := h.view.counts()
	assert.Equal(t, resets, r, "tail append must not clear the view")
	assert.Equal(t, appends+1, a)
	assert.Equal(t, []string{"1", "2", "3"}, h.view.ids())

	reacted := msg("2", "b")
	reacted.Reactions = chat.Reactions{"👍": {"me"}}
	h.server.set("c", msg("1", "a"), reacted, msg("3", "c"))
	h.tick()
	r, a2, _ := h.view.counts()
	assert.Equal(t, resets, r)
	assert.Equal(t, a, a2)
	assert.Equal(t, []ReactionCount{{Emoji: "👍", Count: 1, Mine: true}}, h.view.reactionPush["2"])

	h.server.set("c", msg("1", "a edited"), reacted, msg("3", "c"))
	h.tick()
	r, _, _ = h.view.counts()
	assert.Equal(t, resets+1, r, "edit in known prefix rebuilds")

	h.server.set("c", msg("1", "a edited"))
	h.tick()
	r, _, _ = h.view.counts()
	assert.Equal(t, resets+2, r, "shrinking list rebuilds")
	assert.Equal(t, []string{"1"}, h.view.ids())
}

func TestEngineAppendReplacesPlaceholder(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotDirect, Fields: ConversationFields, Strategy: Append})
	h.switchTo(t, "c")
	assert.Equal(t, DefaultEmptyText, h.view.placeholder)

	h.server.set("c", msg("1", "first"))
	h.tick()
	assert.Empty(t, h.view.placeholder)
	assert.Equal(t, []string{"1"}, h.view.ids())
}

func TestEngineUnauthorizedStopsPolling(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.server.fail("global", authError{})

	h.switchTo(t, "global")
	h.engine.Wait()

	assert.False(t, h.engine.Running())
	assert.EqualValues(t, 1, h.expired.Load())

	h.tick()
	assert.Equal(t, 1, h.server.called("global"))
	assert.EqualValues(t, 1, h.expired.Load())
}

func TestEngineTransientErrorKeepsPolling(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.server.set("global", msg("1", "a"))
	h.switchTo(t, "global")

	h.server.fail("global", errors.New("connection reset"))
	h.tick()
	assert.True(t, h.engine.Running())
	assert.Equal(t, []string{"1"}, h.view.ids())

	h.server.fail("global", nil)
	h.server.set("global", msg("1", "a"), msg("2", "b"))
	h.tick()
	assert.Equal(t, []string{"1", "2"}, h.view.ids())
}

func TestEngineSkipsMalformedMessages(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.server.set("global",
		msg("1", "a"),
		chat.Message{Content: "no id", Author: chat.Author{Name: "x"}},
		chat.Message{ID: "3", Content: "no author"},
		msg("1", "duplicate"),
		msg("4", "d"),
	)
	h.switchTo(t, "global")

	assert.Equal(t, []string{"1", "4"}, h.view.ids())
}

func TestEngineEchoIsReplacedByServerList(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotDirect, Fields: ConversationFields, Strategy: Append})
	h.server.set("c", msg("1", "a"))
	h.switchTo(t, "c")

	echo := msg("local-1", "sent")
	echo.Local = true
	h.engine.Echo(echo)
	assert.Equal(t, []string{"1", "local-1"}, h.view.ids())

	h.server.set("c", msg("1", "a"), msg("2", "sent"))
	h.tick()
	assert.Equal(t, []string{"1", "2"}, h.view.ids())
}

func TestEngineApplyReactions(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.server.set("global", msg("1", "a"))
	h.switchTo(t, "global")

	ok := h.engine.ApplyReactions("1", chat.Reactions{"🔥": {"me"}})
	assert.True(t, ok)
	assert.Equal(t, []ReactionCount{{Emoji: "🔥", Count: 1, Mine: true}}, h.view.reactionPush["1"])
	assert.False(t, h.engine.ApplyReactions("missing", nil))
}

func TestEngineHeader(t *testing.T) {
	h := newHarness(t, Config{
		Slot:   SlotDirect,
		Fields: ConversationFields,
		Header: func(_ context.Context, ch chat.Channel) (chat.Header, error) {
			if ch.ID == "broken" {
				return chat.Header{}, errors.New("boom")
			}
			return chat.Header{Participant: chat.Participant{Name: "bob"}, Status: "Online"}, nil
		},
	})

	h.switchTo(t, "c")
	assert.Equal(t, "bob", h.view.header.Participant.Name)

	h.switchTo(t, "broken")
	assert.True(t, h.engine.Running())
}

func TestEngineHeaderUnauthorized(t *testing.T) {
	h := newHarness(t, Config{
		Slot:   SlotDirect,
		Fields: ConversationFields,
		Header: func(context.Context, chat.Channel) (chat.Header, error) {
			return chat.Header{}, authError{}
		},
	})

	err := h.engine.SwitchTo(context.Background(), chat.Channel{ID: "c"})
	require.Error(t, err)
	assert.False(t, h.engine.Running())
	assert.EqualValues(t, 1, h.expired.Load())
	assert.Zero(t, h.server.called("c"))
}

func TestEngineVisibilitySettlesOnLatestTabChange(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotDirect, Fields: ConversationFields})
	h.server.set("c", msg("1", "a"))
	h.switchTo(t, "c")

	// Hidden at epoch 1, shown again at epoch 2, but the Show lands first.
	h.engine.Show(context.Background(), 2)
	assert.True(t, h.engine.Running())
	h.engine.Hide(1)
	assert.True(t, h.engine.Running(), "stale hide must not stop a visible slot")

	h.engine.Hide(3)
	assert.False(t, h.engine.Running())
	h.engine.Show(context.Background(), 2)
	assert.False(t, h.engine.Running(), "stale show must not restart a hidden slot")

	h.engine.Show(context.Background(), 4)
	assert.True(t, h.engine.Running())
}

func TestEngineShowWithoutChannel(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotSpy})
	h.engine.Show(context.Background(), 1)
	assert.False(t, h.engine.Running())
}

func TestEngineStartRequiresChannel(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal})
	assert.ErrorIs(t, h.engine.Start(context.Background()), ErrNoChannel)
}

func TestEngineCloseClearsState(t *testing.T) {
	h := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	h.server.set("global", msg("1", "a"))
	h.switchTo(t, "global")

	h.engine.Close()
	assert.False(t, h.engine.Running())
	assert.True(t, h.engine.Channel().IsZero())
	assert.Empty(t, h.engine.Messages())
	assert.Empty(t, h.view.ids())
}

func TestOpenDefault(t *testing.T) {
	convs := []chat.Conversation{
		{ID: "old", LastActivity: t0},
		{ID: "new", LastActivity: t0.Add(time.Hour)},
		{ID: "mid", LastActivity: t0.Add(time.Minute)},
	}
	var gotTarget string
	h := newHarness(t, Config{
		Slot:   SlotSpy,
		Fields: ConversationFields,
		Conversations: func(_ context.Context, target string) ([]chat.Conversation, error) {
			gotTarget = target
			return convs, nil
		},
	})
	h.server.set("new", msg("1", "hello"))

	ch, err := h.engine.OpenDefault(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, chat.Channel{ID: "new", Target: "carol"}, ch)
	assert.Equal(t, "carol", gotTarget)

	require.Eventually(t, func() bool { return h.server.called("new") == 1 }, time.Second, time.Millisecond)
	h.engine.inflight.Wait()
	assert.Equal(t, []string{"1"}, h.view.ids())
}

func TestOpenDefaultWithoutConversations(t *testing.T) {
	h := newHarness(t, Config{
		Slot:   SlotDirect,
		Fields: ConversationFields,
		Conversations: func(context.Context, string) ([]chat.Conversation, error) {
			return nil, nil
		},
	})

	ch, err := h.engine.OpenDefault(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ch.IsZero())
	assert.False(t, h.engine.Running())
	assert.Equal(t, "No conversations yet", h.view.placeholder)
}

func TestControllerRoutesBySlot(t *testing.T) {
	g := newHarness(t, Config{Slot: SlotGlobal, Fields: FeedFields})
	d := newHarness(t, Config{Slot: SlotDirect, Fields: ConversationFields, Strategy: Append})
	c := NewController(g.engine, d.engine)

	require.NoError(t, c.SwitchTo(context.Background(), SlotDirect, chat.Channel{ID: "c"}))
	assert.True(t, d.engine.Running())
	assert.False(t, g.engine.Running())

	require.Error(t, c.SwitchTo(context.Background(), SlotSpy, chat.Channel{ID: "x"}))

	c.StopAll()
	assert.False(t, d.engine.Running())
}
