// Package mute tracks a time-boxed restriction on the local user's ability
// to send, and gates sends while it is active.
package mute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Scope string

const (
	ScopeChat Scope = "chat"
	ScopeDM   Scope = "dm"
	ScopeBoth Scope = "both"
)

// ParseScope maps a server scope string, defaulting to both.
func ParseScope(s string) Scope {
	switch Scope(s) {
	case ScopeChat, ScopeDM:
		return Scope(s)
	}
	return ScopeBoth
}

var ErrMuted = errors.New("you are muted")

type Status struct {
	Expiry time.Time
	Reason string
	Scope  Scope
}

// Covers reports whether a mute with this status blocks sends to target.
func (s Status) Covers(target Scope) bool {
	return s.Scope == ScopeBoth || s.Scope == "" || target == ScopeBoth || s.Scope == target
}

// MutedError is returned by Check while a mute is active.
type MutedError struct {
	Remaining time.Duration
	Reason    string
}

func (e *MutedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("you are muted for %s", FormatRemaining(e.Remaining))
	}
	return fmt.Sprintf("you are muted for %s: %s", FormatRemaining(e.Remaining), e.Reason)
}

func (e *MutedError) Unwrap() error { return ErrMuted }

// Event is published whenever the countdown changes.
type Event struct {
	Active    bool
	Remaining time.Duration
	// Text is the countdown as m:ss, empty when not muted.
	Text   string
	Status Status
}

type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithNotify(fn func(Event)) Option {
	return func(g *Gate) { g.notify = fn }
}

// WithTickInterval sets the countdown period. Zero disables the countdown
// goroutine; callers then drive it with Tick.
func WithTickInterval(d time.Duration) Option {
	return func(g *Gate) { g.interval = d }
}

type Gate struct {
	now      func() time.Time
	notify   func(Event)
	interval time.Duration

	mu     sync.Mutex
	status *Status
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGate(opts ...Option) *Gate {
	g := &Gate{
		now:      time.Now,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Apply starts or replaces the active mute. An expiry already in the past
// clears any mute instead.
func (g *Gate) Apply(s Status) {
	if s.Scope == "" {
		s.Scope = ScopeBoth
	}
	g.mu.Lock()
	if !g.now().Before(s.Expiry) {
		ev, changed := g.clearLocked()
		g.mu.Unlock()
		if changed {
			g.publish(ev)
		}
		return
	}
	g.status = &s
	g.startLocked()
	ev := g.eventLocked()
	g.mu.Unlock()

	slog.Info("Mute applied", "expiry", s.Expiry, "scope", s.Scope)
	g.publish(ev)
}

// Check returns a *MutedError when a send to target must be blocked. A mute
// whose expiry has been reached is cleared here, so gating never outlives
// the expiry even if the countdown is late.
func (g *Gate) Check(target Scope) error {
	g.mu.Lock()
	if g.status == nil {
		g.mu.Unlock()
		return nil
	}
	remaining := g.status.Expiry.Sub(g.now())
	if remaining <= 0 {
		ev, _ := g.clearLocked()
		g.mu.Unlock()
		g.publish(ev)
		return nil
	}
	if !g.status.Covers(target) {
		g.mu.Unlock()
		return nil
	}
	err := &MutedError{Remaining: remaining, Reason: g.status.Reason}
	g.mu.Unlock()
	return err
}

// Status returns the active mute, if any.
func (g *Gate) Status() (Status, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == nil || !g.now().Before(g.status.Expiry) {
		return Status{}, false
	}
	return *g.status, true
}

// Tick advances the countdown: it publishes the remaining time, or unmutes
// once now >= expiry.
func (g *Gate) Tick() {
	g.mu.Lock()
	if g.status == nil {
		g.mu.Unlock()
		return
	}
	var ev Event
	if g.now().Before(g.status.Expiry) {
		ev = g.eventLocked()
	} else {
		ev, _ = g.clearLocked()
		slog.Info("Mute expired")
	}
	g.mu.Unlock()
	g.publish(ev)
}

// Unmute clears the mute immediately.
func (g *Gate) Unmute() {
	g.mu.Lock()
	ev, changed := g.clearLocked()
	g.mu.Unlock()
	if changed {
		g.publish(ev)
	}
}

// Close stops the countdown without publishing and waits for it to exit.
func (g *Gate) Close() {
	g.mu.Lock()
	g.status = nil
	g.stopLocked()
	g.mu.Unlock()
	g.wg.Wait()
}

func (g *Gate) startLocked() {
	if g.cancel != nil || g.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.wg.Add(1)
	go g.countdown(ctx)
}

func (g *Gate) stopLocked() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

func (g *Gate) countdown(ctx context.Context) {
	defer g.wg.Done()
	t := time.NewTicker(g.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.Tick()
		}
	}
}

func (g *Gate) clearLocked() (Event, bool) {
	changed := g.status != nil
	g.status = nil
	g.stopLocked()
	return Event{}, changed
}

func (g *Gate) eventLocked() Event {
	remaining := g.status.Expiry.Sub(g.now())
	return Event{
		Active:    true,
		Remaining: remaining,
		Text:      FormatRemaining(remaining),
		Status:    *g.status,
	}
}

func (g *Gate) publish(ev Event) {
	if g.notify != nil {
		g.notify(ev)
	}
}

// FormatRemaining renders d as minutes:seconds, truncating partial seconds.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
