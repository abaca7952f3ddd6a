package mute

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestGate() (*Gate, *clock, *recorder) {
	c := &clock{t: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)}
	r := &recorder{}
	g := NewGate(WithClock(c.now), WithNotify(r.add), WithTickInterval(0))
	return g, c, r
}

func TestGateBlocksUntilExactExpiry(t *testing.T) {
	g, c, r := newTestGate()
	defer g.Close()

	g.Apply(Status{Expiry: c.now().Add(60 * time.Second), Reason: "spam"})
	assert.Equal(t, "1:00", r.last().Text)

	err := g.Check(ScopeChat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMuted))
	var muted *MutedError
	require.ErrorAs(t, err, &muted)
	assert.Equal(t, 60*time.Second, muted.Remaining)
	assert.Equal(t, "spam", muted.Reason)

	c.advance(59*time.Second + 999*time.Millisecond)
	assert.ErrorIs(t, g.Check(ScopeChat), ErrMuted)
	g.Tick()
	assert.True(t, r.last().Active)
	assert.Equal(t, "0:00", r.last().Text)

	c.advance(time.Millisecond)
	g.Tick()
	assert.False(t, r.last().Active)
	assert.NoError(t, g.Check(ScopeChat))
	_, active := g.Status()
	assert.False(t, active)
}

func TestGateCheckClearsExpiredMuteWithoutTick(t *testing.T) {
	g, c, r := newTestGate()
	defer g.Close()

	g.Apply(Status{Expiry: c.now().Add(time.Second)})
	c.advance(time.Second)

	assert.NoError(t, g.Check(ScopeDM))
	assert.False(t, r.last().Active)
}

func TestGateCountdownText(t *testing.T) {
	g, c, r := newTestGate()
	defer g.Close()

	g.Apply(Status{Expiry: c.now().Add(5*time.Minute + 7*time.Second)})
	assert.Equal(t, "5:07", r.last().Text)

	c.advance(time.Second)
	g.Tick()
	assert.Equal(t, "5:06", r.last().Text)

	c.advance(500 * time.Millisecond)
	g.Tick()
	assert.Equal(t, "5:05", r.last().Text)
}

func TestGateScope(t *testing.T) {
	g, c, _ := newTestGate()
	defer g.Close()

	g.Apply(Status{Expiry: c.now().Add(time.Minute), Scope: ScopeChat})
	assert.ErrorIs(t, g.Check(ScopeChat), ErrMuted)
	assert.NoError(t, g.Check(ScopeDM))

	g.Apply(Status{Expiry: c.now().Add(time.Minute), Scope: ScopeDM})
	assert.NoError(t, g.Check(ScopeChat))
	assert.ErrorIs(t, g.Check(ScopeDM), ErrMuted)
}

func TestGateUnmute(t *testing.T) {
	g, c, r := newTestGate()
	defer g.Close()

	g.Unmute()
	assert.Empty(t, r.events, "unmute without a mute publishes nothing")

	g.Apply(Status{Expiry: c.now().Add(time.Hour)})
	g.Unmute()
	assert.False(t, r.last().Active)
	assert.NoError(t, g.Check(ScopeBoth))
}

func TestGateApplyPastExpiry(t *testing.T) {
	g, c, _ := newTestGate()
	defer g.Close()

	g.Apply(Status{Expiry: c.now().Add(-time.Second)})
	assert.NoError(t, g.Check(ScopeChat))
}

func TestGateCountdownGoroutineStopsOnClose(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	g := NewGate(
		WithTickInterval(time.Millisecond),
		WithNotify(func(Event) {
			mu.Lock()
			ticks++
			mu.Unlock()
		}),
	)
	g.Apply(Status{Expiry: time.Now().Add(time.Hour)})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks > 2
	}, time.Second, time.Millisecond)

	g.Close()
	mu.Lock()
	after := ticks
	mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, after, ticks)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0:00", FormatRemaining(-time.Second))
	assert.Equal(t, "0:59", FormatRemaining(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "61:01", FormatRemaining(61*time.Minute+time.Second))
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopeChat, ParseScope("chat"))
	assert.Equal(t, ScopeDM, ParseScope("dm"))
	assert.Equal(t, ScopeBoth, ParseScope(""))
	assert.Equal(t, ScopeBoth, ParseScope("everything"))
}
