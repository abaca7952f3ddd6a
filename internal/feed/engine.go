package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/settings"
)

// Slot names one of the independently polled views.
type Slot string

const (
	SlotGlobal Slot = "global"
	SlotDirect Slot = "dm"
	SlotSpy    Slot = "spy"
)

// Strategy selects how a changed list reaches the view.
type Strategy int

const (
	// Rebuild clears the view and renders the whole list.
	Rebuild Strategy = iota
	// Append renders only messages past the last known count. Reaction
	// changes on known messages go through View.UpdateReactions.
	Append
)

const (
	DefaultEmptyText = "No messages yet"
	DefaultLimit     = 50
)

var (
	ErrNoChannel  = errors.New("feed: no channel selected")
	ErrSuperseded = errors.New("feed: superseded by a newer channel switch")
)

type (
	FetchFunc  func(ctx context.Context, ch chat.Channel) ([]chat.Message, error)
	HeaderFunc func(ctx context.Context, ch chat.Channel) (chat.Header, error)
	// ListFunc lists conversations most recent first. target is only used by
	// the spy slot.
	ListFunc func(ctx context.Context, target string) ([]chat.Conversation, error)
)

// Config parameterizes one slot.
type Config struct {
	Slot     Slot
	Interval time.Duration
	Fetch    FetchFunc
	Fields   FieldSet
	Strategy Strategy
	// FollowSetting makes every render honor the autoScroll setting. When
	// false only the first render after a switch scrolls.
	FollowSetting bool
	Header        HeaderFunc
	Conversations ListFunc
	EmptyText     string
	// NoConversationsText is shown by OpenDefault when there is nothing to open.
	NoConversationsText string
}

// RenderFunc is called after every render with the slot, the channel and the
// list now on screen.
type RenderFunc func(slot Slot, ch chat.Channel, msgs []chat.Message)

// Engine runs the fetch cycle for one slot and reconciles its view.
type Engine struct {
	cfg      Config
	view     View
	renderer *Renderer
	settings func() settings.Settings

	onRender      RenderFunc
	onAuthExpired func()

	mu                sync.Mutex
	channel           chat.Channel
	running           bool
	cancel            context.CancelFunc
	generation        uint64
	issued            uint64
	applied           uint64
	cache             []chat.Message
	fingerprints      map[string]uint64
	rendered          bool
	dirty             bool
	initialScrollDone bool
	// visibility is the epoch of the last Hide or Show applied.
	visibility uint64

	// loops tracks ticker goroutines, inflight tracks fetches.
	loops    sync.WaitGroup
	inflight sync.WaitGroup
}

type Option func(*Engine)

func WithRenderHook(fn RenderFunc) Option {
	return func(e *Engine) { e.onRender = fn }
}

// WithAuthExpired sets the callback run when a fetch fails with an
// authentication error. The cycle is already stopped when it runs.
func WithAuthExpired(fn func()) Option {
	return func(e *Engine) { e.onAuthExpired = fn }
}

func NewEngine(cfg Config, view View, renderer *Renderer, st func() settings.Settings, opts ...Option) *Engine {
	if cfg.EmptyText == "" {
		cfg.EmptyText = DefaultEmptyText
	}
	if cfg.NoConversationsText == "" {
		cfg.NoConversationsText = "No conversations yet"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	e := &Engine{
		cfg:      cfg,
		view:     view,
		renderer: renderer,
		settings: st,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Slot() Slot { return e.cfg.Slot }

// Channel returns the active channel, zero when none is selected.
func (e *Engine) Channel() chat.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Messages returns a copy of the list currently on screen.
func (e *Engine) Messages() []chat.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.cache)
}

// Start fetches the active channel once and then on every interval until
// Stop or ctx is done. Starting a running engine restarts its cycle.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.channel.IsZero() {
		return ErrNoChannel
	}
	e.stopLocked()
	e.startLocked(ctx)
	return nil
}

// Stop cancels the timer. Responses still in flight are discarded when they
// land because the generation has moved on.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
}

// Hide stops polling because the slot's tab went out of view. Hide and Show
// carry the epoch of the tab change that caused them; a call older than one
// already applied is ignored, so racing calls settle on the latest change.
func (e *Engine) Hide(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch < e.visibility {
		return
	}
	e.visibility = epoch
	e.stopLocked()
}

// Show restarts polling for a slot coming back into view. It does nothing
// when no channel is selected or the cycle is already running.
func (e *Engine) Show(ctx context.Context, epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch < e.visibility {
		return
	}
	e.visibility = epoch
	if e.channel.IsZero() || e.running {
		return
	}
	e.startLocked(ctx)
}

// Wait blocks until the ticker goroutine and every in-flight fetch are done.
func (e *Engine) Wait() {
	e.loops.Wait()
	e.inflight.Wait()
}

// Close stops polling, forgets the channel and clears the view.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.resetLocked()
	e.channel = chat.Channel{}
	e.view.Reset()
}

// SwitchTo moves the slot to ch. The old cycle is stopped and its state is
// cleared before the new cycle starts, so nothing fetched for the old channel
// can render into the new one. ctx bounds the new cycle's lifetime.
func (e *Engine) SwitchTo(ctx context.Context, ch chat.Channel) error {
	e.mu.Lock()
	e.stopLocked()
	e.resetLocked()
	e.channel = ch
	gen := e.generation
	e.view.Reset()
	e.mu.Unlock()

	if e.cfg.Header != nil {
		h, err := e.cfg.Header(ctx, ch)
		switch {
		case isUnauthorized(err):
			e.authExpired(gen)
			return err
		case err != nil:
			slog.Warn("Failed to load conversation header", "slot", e.cfg.Slot, "channel", ch.String(), "error", err)
		default:
			e.mu.Lock()
			if e.generation != gen {
				e.mu.Unlock()
				return ErrSuperseded
			}
			e.view.SetHeader(h)
			e.mu.Unlock()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return ErrSuperseded
	}
	e.startLocked(ctx)
	return nil
}

// OpenDefault selects the most recently active conversation, or renders the
// empty state when there is none. It returns the opened channel.
func (e *Engine) OpenDefault(ctx context.Context, target string) (chat.Channel, error) {
	if e.cfg.Conversations == nil {
		ch := chat.Global()
		return ch, e.SwitchTo(ctx, ch)
	}
	convs, err := e.cfg.Conversations(ctx, target)
	if err != nil {
		return chat.Channel{}, err
	}
	if len(convs) == 0 {
		e.Close()
		e.mu.Lock()
		e.view.Placeholder(e.cfg.NoConversationsText)
		e.mu.Unlock()
		return chat.Channel{}, nil
	}
	latest := MostRecent(convs)
	ch := chat.Channel{ID: latest.ID, Target: target}
	return ch, e.SwitchTo(ctx, ch)
}

// MostRecent returns the conversation with the latest activity; ties keep
// the server's order.
func MostRecent(convs []chat.Conversation) chat.Conversation {
	best := convs[0]
	for _, c := range convs[1:] {
		if c.LastActivity.After(best.LastActivity) {
			best = c
		}
	}
	return best
}

// Echo shows a just-sent message before the server confirms it. The next
// successful fetch rebuilds the view from the server's list.
func (e *Engine) Echo(m chat.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.channel.IsZero() {
		return
	}
	if len(e.cache) == 0 && !e.dirty {
		e.view.Reset()
	}
	e.view.Append(e.renderer.Row(m))
	e.view.ScrollToBottom()
	e.dirty = true
}

// ApplyReactions pushes a reaction change for one rendered message straight
// to the view.
func (e *Engine) ApplyReactions(messageID string, reactions chat.Reactions) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := slices.IndexFunc(e.cache, func(m chat.Message) bool { return m.ID == messageID })
	if i < 0 {
		return false
	}
	e.cache[i].Reactions = reactions
	e.fingerprints[messageID] = fingerprint(reactions)
	e.view.UpdateReactions(messageID, e.renderer.Reactions(reactions))
	return true
}

func (e *Engine) startLocked(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	gen, ch := e.generation, e.channel

	e.loops.Add(1)
	go e.loop(ctx, gen, ch)
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.running = false
	e.generation++
}

func (e *Engine) resetLocked() {
	e.cache = nil
	e.fingerprints = nil
	e.rendered = false
	e.dirty = false
	e.initialScrollDone = false
	e.applied = e.issued
}

func (e *Engine) loop(ctx context.Context, gen uint64, ch chat.Channel) {
	defer e.loops.Done()

	e.issue(ctx, gen, ch)
	t := time.NewTicker(e.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.issue(ctx, gen, ch)
		}
	}
}

// issue starts one fetch tagged with the generation and sequence current at
// issuance.
func (e *Engine) issue(ctx context.Context, gen uint64, ch chat.Channel) {
	e.mu.Lock()
	if e.generation != gen || !e.running {
		e.mu.Unlock()
		return
	}
	e.issued++
	seq := e.issued
	e.mu.Unlock()

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		msgs, err := e.cfg.Fetch(ctx, ch)
		e.apply(gen, seq, ch, msgs, err)
	}()
}

func (e *Engine) apply(gen, seq uint64, ch chat.Channel, msgs []chat.Message, err error) {
	if err != nil {
		e.fetchFailed(gen, ch, err)
		return
	}

	e.mu.Lock()
	if e.generation != gen || e.channel != ch {
		e.mu.Unlock()
		slog.Debug("Discarding response for inactive channel", "slot", e.cfg.Slot, "channel", ch.String())
		return
	}
	if seq <= e.applied {
		e.mu.Unlock()
		slog.Debug("Discarding out of order response", "slot", e.cfg.Slot, "seq", seq, "applied", e.applied)
		return
	}
	e.applied = seq

	valid := e.wellFormed(msgs)
	var changed bool
	switch e.cfg.Strategy {
	case Append:
		changed = e.extendLocked(valid)
	default:
		changed = e.rebuildLocked(valid, false)
	}
	var snapshot []chat.Message
	if changed {
		snapshot = slices.Clone(e.cache)
	}
	e.mu.Unlock()

	if changed && e.onRender != nil {
		e.onRender(e.cfg.Slot, ch, snapshot)
	}
}

func (e *Engine) fetchFailed(gen uint64, ch chat.Channel, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if isUnauthorized(err) {
		e.authExpired(gen)
		return
	}
	slog.Warn("Failed to fetch messages", "slot", e.cfg.Slot, "channel", ch.String(), "error", err)
}

// authExpired stops the cycle that observed the failure and hands over to the
// session. Failures from older generations are ignored.
func (e *Engine) authExpired(gen uint64) {
	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	e.mu.Unlock()

	slog.Info("Credential rejected, polling stopped", "slot", e.cfg.Slot)
	if e.onAuthExpired != nil {
		e.onAuthExpired()
	}
}

// wellFormed drops messages that cannot be rendered or that repeat an id.
func (e *Engine) wellFormed(msgs []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			slog.Warn("Skipping malformed message", "slot", e.cfg.Slot, "id", m.ID, "error", err)
			continue
		}
		if _, dup := seen[m.ID]; dup {
			slog.Warn("Skipping duplicate message", "slot", e.cfg.Slot, "id", m.ID)
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (e *Engine) rebuildLocked(next []chat.Message, force bool) bool {
	if !force && e.rendered && !e.dirty && !HasChanged(e.cache, next, e.cfg.Fields) {
		return false
	}

	e.view.Reset()
	if len(next) == 0 {
		e.view.Placeholder(e.cfg.EmptyText)
	} else {
		e.view.Append(e.renderer.Rows(next)...)
	}
	e.remember(next)
	e.scrollLocked()
	return true
}

func (e *Engine) extendLocked(next []chat.Message) bool {
	known := len(e.cache)
	if !e.rendered || e.dirty || len(next) < known || HasChanged(e.cache, next[:known], e.cfg.Fields) {
		return e.rebuildLocked(next, true)
	}

	changed := false
	for _, m := range next[:known] {
		if fp := fingerprint(m.Reactions); fp != e.fingerprints[m.ID] {
			e.view.UpdateReactions(m.ID, e.renderer.Reactions(m.Reactions))
			changed = true
		}
	}
	if len(next) > known {
		if known == 0 {
			// drop the empty-state placeholder
			e.view.Reset()
		}
		e.view.Append(e.renderer.Rows(next[known:])...)
		changed = true
		defer e.scrollLocked()
	}
	if changed {
		e.remember(next)
	}
	return changed
}

func (e *Engine) remember(msgs []chat.Message) {
	e.cache = slices.Clone(msgs)
	e.fingerprints = make(map[string]uint64, len(msgs))
	for _, m := range msgs {
		e.fingerprints[m.ID] = fingerprint(m.Reactions)
	}
	e.rendered = true
	e.dirty = false
}

func (e *Engine) scrollLocked() {
	follow := e.cfg.FollowSetting && e.settings != nil && e.settings().AutoScroll
	if follow || !e.initialScrollDone {
		e.view.ScrollToBottom()
	}
	e.initialScrollDone = true
}

func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var u interface{ Unauthorized() bool }
	return errors.As(err, &u) && u.Unauthorized()
}
