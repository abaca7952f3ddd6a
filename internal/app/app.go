package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/chasedut/chatfun/internal/api"
	"github.com/chasedut/chatfun/internal/avatar"
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/config"
	"github.com/chasedut/chatfun/internal/feed"
	"github.com/chasedut/chatfun/internal/log"
	"github.com/chasedut/chatfun/internal/markup"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/mute"
	"github.com/chasedut/chatfun/internal/session"
	"github.com/chasedut/chatfun/internal/settings"
	"github.com/chasedut/chatfun/internal/store"
	"github.com/google/uuid"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNotModerator = errors.New("moderator role required")
	ErrNoChannel    = errors.New("no conversation selected")
)

// Store is the local key-value storage shared by the session and settings.
type Store = session.Store

type App struct {
	Session *session.State
	API     *api.Client
	Mute    *mute.Gate
	Feeds   *feed.Controller
	Markup  *markup.Renderer

	config config.Config
	store  Store

	settingsMu  sync.RWMutex
	settings    settings.Settings
	settingsRaw string

	globalCtx    context.Context
	cancel       context.CancelFunc
	events       chan tea.Msg
	tuiWG        sync.WaitGroup
	cleanupFuncs []func()
}

// New wires the collaborators and restores a saved session. Polling does not
// start until Start.
func New(ctx context.Context, cfg config.Config, st Store) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	app := &App{
		Session:   session.New(st),
		Markup:    markup.New(),
		config:    cfg,
		store:     st,
		settings:  settings.Defaults(),
		globalCtx: ctx,
		cancel:    cancel,
		events:    make(chan tea.Msg, 100),
	}

	if _, err := app.Session.Restore(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if err := app.loadSettings(ctx); err != nil {
		slog.Warn("Failed to load settings, using defaults", "error", err)
	}

	app.API = api.NewClient(cfg.APIURL, app.Session.Token,
		api.WithSelf(app.Session.UserID),
		api.WithRateLimit(cfg.RequestsPerSecond, 3),
	)
	app.Mute = mute.NewGate(mute.WithNotify(func(ev mute.Event) {
		app.publish(MuteMsg{Event: ev})
	}))

	styles := markup.DefaultTerminalStyles()
	renderer := feed.NewRenderer(
		avatar.NewResolver(cfg.APIURL),
		feed.MarkupFunc(func(raw string) string { return app.Markup.RenderTerminal(raw, styles) }),
		app.Settings,
		app.Session.UserID,
	)
	opts := []feed.Option{
		feed.WithRenderHook(func(slot feed.Slot, ch chat.Channel, msgs []chat.Message) {
			app.publish(RenderedMsg{Slot: slot, Channel: ch, Messages: msgs})
		}),
		feed.WithAuthExpired(app.Session.OnAuthExpired),
	}
	limit := cfg.MessageLimit
	fetch := func(ctx context.Context, ch chat.Channel) ([]chat.Message, error) {
		// A token past its exp claim is never sent; the engine treats this
		// like a 401 from the server.
		if app.Session.ExpiresWithin(0) {
			return nil, &api.Error{Kind: api.Unauthorized, Message: "token expired"}
		}
		return app.API.ListMessages(ctx, ch, limit)
	}
	app.Feeds = feed.NewController(
		feed.NewEngine(feed.Config{
			Slot:          feed.SlotGlobal,
			Interval:      cfg.ChatInterval,
			Fetch:         fetch,
			Fields:        feed.FeedFields,
			Strategy:      feed.Rebuild,
			FollowSetting: true,
		}, app.view(feed.SlotGlobal), renderer, app.Settings, opts...),
		feed.NewEngine(feed.Config{
			Slot:          feed.SlotDirect,
			Interval:      cfg.DMInterval,
			Fetch:         fetch,
			Fields:        feed.ConversationFields,
			Strategy:      feed.Append,
			FollowSetting: true,
			Header:        app.API.ConversationHeader,
			Conversations: app.API.ListConversations,
		}, app.view(feed.SlotDirect), renderer, app.Settings, opts...),
		feed.NewEngine(feed.Config{
			Slot:                feed.SlotSpy,
			Interval:            cfg.SpyInterval,
			Fetch:               fetch,
			Fields:              feed.ConversationFields,
			Strategy:            feed.Append,
			FollowSetting:       false,
			Header:              app.API.ConversationHeader,
			Conversations:       app.API.ListConversations,
			NoConversationsText: "This user has no conversations to monitor",
		}, app.view(feed.SlotSpy), renderer, app.Settings, opts...),
	)

	// Runs on a fetch goroutine, so it must not wait for the engines.
	app.Session.OnAuthExpiredFunc(func() {
		app.Feeds.Halt()
		app.Mute.Close()
		app.publish(SessionExpiredMsg{})
	})
	return app, nil
}

func (app *App) Config() config.Config { return app.config }

func (app *App) view(slot feed.Slot) feed.View {
	return &feedView{slot: slot, publish: app.publish}
}

// publish queues msg for the UI. It blocks while the queue is full and gives
// up only when the app is shutting down.
func (app *App) publish(msg any) {
	select {
	case app.events <- msg:
	case <-app.globalCtx.Done():
	}
}

// Events exposes the UI queue. Subscribe is the usual consumer.
func (app *App) Events() <-chan tea.Msg { return app.events }

// Start opens the global room. The caller must be signed in.
func (app *App) Start(ctx context.Context) error {
	if !app.Session.Authenticated() {
		return api.ErrNoToken
	}
	if err := app.RefreshStatus(ctx); err != nil {
		if api.IsKind(err, api.Unauthorized) {
			app.Session.OnAuthExpired()
			return err
		}
		slog.Warn("Failed to refresh session status", "error", err)
	}
	if err := app.SyncSettings(ctx); err != nil {
		slog.Warn("Failed to sync settings", "error", err)
	}
	return app.Feeds.SwitchTo(app.globalCtx, feed.SlotGlobal, chat.Global())
}

// Handle runs one UI request.
func (app *App) Handle(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case SendRequested:
		replyTo := ""
		if m.ReplyTo != nil {
			replyTo = m.ReplyTo.ID
		}
		return app.Send(ctx, m.Slot, m.Content, replyTo)
	case ChannelSwitchRequested:
		return app.SwitchTo(m.Slot, m.Channel)
	case ReactionToggled:
		return app.React(ctx, m.Slot, m.MessageID, m.Emoji)
	}
	return fmt.Errorf("unhandled request %T", msg)
}

func (app *App) engine(slot feed.Slot) (*feed.Engine, error) {
	return app.Feeds.Engine(slot)
}

func (app *App) activeChannel(slot feed.Slot) (*feed.Engine, chat.Channel, error) {
	e, err := app.engine(slot)
	if err != nil {
		return nil, chat.Channel{}, err
	}
	ch := e.Channel()
	if ch.IsZero() {
		return nil, chat.Channel{}, ErrNoChannel
	}
	return e, ch, nil
}

func scopeFor(slot feed.Slot) mute.Scope {
	if slot == feed.SlotDirect {
		return mute.ScopeDM
	}
	return mute.ScopeChat
}

// Send posts content to the slot's active channel and echoes it locally.
// While muted nothing is sent.
func (app *App) Send(ctx context.Context, slot feed.Slot, content, replyTo string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if slot == feed.SlotSpy {
		return api.ErrReadOnly
	}
	if err := app.Mute.Check(scopeFor(slot)); err != nil {
		return err
	}
	e, ch, err := app.activeChannel(slot)
	if err != nil {
		return err
	}

	sent, err := app.API.SendMessage(ctx, ch, content, replyTo)
	if err != nil {
		if api.IsKind(err, api.Muted) {
			if serr := app.RefreshStatus(ctx); serr != nil {
				slog.Debug("Failed to refresh mute status", "error", serr)
			}
		}
		return err
	}

	user := app.Session.User()
	echo := chat.Message{
		ID:        "local-" + uuid.NewString(),
		Author:    chat.Author{ID: user.ID, Name: user.Username},
		Content:   content,
		Timestamp: time.Now(),
		Own:       true,
		Local:     true,
	}
	if !sent.Timestamp.IsZero() {
		echo.Timestamp = sent.Timestamp
	}
	if replyTo != "" {
		for _, m := range e.Messages() {
			if m.ID == replyTo {
				echo.ReplyTo = &chat.Reply{MessageID: m.ID, AuthorName: m.Author.Name, Content: m.Content}
				break
			}
		}
	}
	e.Echo(echo)
	return nil
}

func (app *App) Delete(ctx context.Context, slot feed.Slot, messageID string) error {
	_, ch, err := app.activeChannel(slot)
	if err != nil {
		return err
	}
	return app.API.DeleteMessage(ctx, ch, messageID)
}

// React toggles emoji and pushes the returned reactions straight to the view.
func (app *App) React(ctx context.Context, slot feed.Slot, messageID, emoji string) error {
	e, ch, err := app.activeChannel(slot)
	if err != nil {
		return err
	}
	reactions, err := app.API.React(ctx, ch, messageID, emoji)
	if err != nil {
		return err
	}
	e.ApplyReactions(messageID, reactions)
	return nil
}

// SwitchTo moves slot to ch. The new cycle lives until logout or shutdown.
func (app *App) SwitchTo(slot feed.Slot, ch chat.Channel) error {
	if slot == feed.SlotSpy && !app.Session.Role().IsModerator() {
		return ErrNotModerator
	}
	return app.Feeds.SwitchTo(app.globalCtx, slot, ch)
}

// OpenDefault opens the most recent conversation of the slot. target is the
// spied username for the spy slot.
func (app *App) OpenDefault(slot feed.Slot, target string) (chat.Channel, error) {
	if slot == feed.SlotSpy && !app.Session.Role().IsModerator() {
		return chat.Channel{}, ErrNotModerator
	}
	return app.Feeds.OpenDefault(app.globalCtx, slot, target)
}

// Leave stops polling a slot when its tab is hidden. epoch orders tab
// changes; see feed.Engine.Hide.
func (app *App) Leave(slot feed.Slot, epoch uint64) {
	app.Feeds.Hide(slot, epoch)
}

// Resume restarts a slot that was left, if it still has a channel.
func (app *App) Resume(slot feed.Slot, epoch uint64) error {
	return app.Feeds.Show(app.globalCtx, slot, epoch)
}

func (app *App) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	return app.API.ListConversations(ctx, "")
}

func (app *App) StartConversation(ctx context.Context, username string) (chat.Channel, error) {
	conv, err := app.API.StartConversation(ctx, username)
	if err != nil {
		return chat.Channel{}, err
	}
	ch := chat.Channel{ID: conv.ID}
	return ch, app.SwitchTo(feed.SlotDirect, ch)
}

func (app *App) SpyConversations(ctx context.Context, username string) ([]chat.Conversation, error) {
	if !app.Session.Role().IsModerator() {
		return nil, ErrNotModerator
	}
	return app.API.ListConversations(ctx, username)
}

// Login signs in and persists the credential.
func (app *App) Login(ctx context.Context, username, password string) error {
	res, err := app.API.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return app.signIn(ctx, res)
}

func (app *App) Register(ctx context.Context, username, password string) error {
	res, err := app.API.Register(ctx, username, password)
	if err != nil {
		return err
	}
	return app.signIn(ctx, res)
}

func (app *App) signIn(ctx context.Context, res api.AuthResult) error {
	return app.Session.SignIn(ctx, res.Token, session.User{
		ID:       res.User.ID,
		Username: res.User.Username,
		Role:     res.User.Role,
	})
}

// RefreshStatus updates identity and feeds any server-side mute to the gate.
func (app *App) RefreshStatus(ctx context.Context) error {
	st, err := app.API.Status(ctx)
	if err != nil {
		return err
	}
	if st.User.ID != "" {
		if err := app.Session.UpdateUser(ctx, session.User{ID: st.User.ID, Username: st.User.Username, Role: st.User.Role}); err != nil {
			slog.Warn("Failed to save user", "error", err)
		}
	}
	if st.Mute != nil {
		app.Mute.Apply(mute.Status{Expiry: st.Mute.Expiry, Reason: st.Mute.Reason, Scope: mute.ParseScope(st.Mute.Scope)})
	} else {
		app.Mute.Unmute()
	}
	return nil
}

// Logout stops every timer, then drops the credential.
func (app *App) Logout(ctx context.Context) error {
	app.Feeds.StopAll()
	for _, slot := range []feed.Slot{feed.SlotGlobal, feed.SlotDirect, feed.SlotSpy} {
		app.Feeds.Close(slot)
	}
	app.Mute.Close()

	if app.Session.Authenticated() {
		if err := app.API.Logout(ctx); err != nil {
			slog.Debug("Server logout failed", "error", err)
		}
	}
	if err := app.Session.SignOut(ctx); err != nil {
		return err
	}
	app.publish(LoggedOutMsg{})
	return nil
}

// Reports lists reports for moderators.
func (app *App) Reports(ctx context.Context) ([]moderation.Report, error) {
	if !app.Session.Role().IsModerator() {
		return nil, ErrNotModerator
	}
	return app.API.ListReports(ctx)
}

func (app *App) SubmitReport(ctx context.Context, s moderation.Submission) error {
	if s.ReportedUser != "" && s.ReportedUser == app.Session.User().Username {
		return moderation.ErrCannotReportOwn
	}
	return app.API.SubmitReport(ctx, s)
}

// ApplyActions applies a moderator's user actions form and returns the
// summary lines. Muting yourself starts the local countdown at once.
func (app *App) ApplyActions(ctx context.Context, username, reportID string, a moderation.Actions) ([]string, error) {
	if !app.Session.Role().IsModerator() {
		return nil, ErrNotModerator
	}
	if err := app.API.ApplyActions(ctx, username, reportID, a); err != nil {
		return nil, err
	}
	if exp, ok := a.SelfMuteExpiry(username, app.Session.User().Username, time.Now()); ok {
		app.Mute.Apply(mute.Status{Expiry: exp, Reason: a.Mute.Reason, Scope: mute.ScopeBoth})
	}
	summary := a.Summary()
	slog.Info("User actions applied", "target", username, "actions", summary)
	return summary, nil
}

func (app *App) UndoReport(ctx context.Context, reportID string) error {
	if !app.Session.Role().IsModerator() {
		return ErrNotModerator
	}
	return app.API.UndoReport(ctx, reportID)
}

// Subscribe sends events to the TUI as tea.Msgs.
func (app *App) Subscribe(program *tea.Program) {
	defer log.RecoverPanic("app.Subscribe", func() {
		slog.Info("TUI subscription panic: attempting graceful shutdown")
		program.Quit()
	})

	app.tuiWG.Add(1)
	defer app.tuiWG.Done()

	for {
		select {
		case <-app.globalCtx.Done():
			slog.Debug("TUI message handler shutting down")
			return
		case msg := <-app.events:
			program.Send(msg)
		}
	}
}

// OnCleanup registers fn to run at Shutdown.
func (app *App) OnCleanup(fn func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, fn)
}

// Shutdown performs a graceful shutdown of the application.
func (app *App) Shutdown() {
	app.Feeds.StopAll()
	app.Mute.Close()
	app.cancel()
	app.tuiWG.Wait()

	for _, cleanup := range app.cleanupFuncs {
		if cleanup != nil {
			cleanup()
		}
	}
}

func (app *App) Settings() settings.Settings {
	app.settingsMu.RLock()
	defer app.settingsMu.RUnlock()
	return app.settings
}

func (app *App) loadSettings(ctx context.Context) error {
	raw, err := app.store.Get(ctx, store.KeySettings)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s, err := settings.Decode(raw)
	if err != nil {
		return err
	}
	app.settingsMu.Lock()
	app.settings, app.settingsRaw = s, raw
	app.settingsMu.Unlock()
	return nil
}

// UpdateSettings saves s locally, keeping keys this version does not know,
// and mirrors the shared subset to the server.
func (app *App) UpdateSettings(ctx context.Context, s settings.Settings) error {
	app.settingsMu.Lock()
	raw, err := settings.Encode(app.settingsRaw, s)
	if err != nil {
		app.settingsMu.Unlock()
		return err
	}
	app.settings, app.settingsRaw = s, raw
	app.settingsMu.Unlock()

	if err := app.store.Set(ctx, store.KeySettings, raw); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	if app.Session.Authenticated() {
		if err := app.API.UpdateSettings(ctx, settings.ServerPayload(s)); err != nil {
			slog.Warn("Failed to push settings to server", "error", err)
		}
	}
	return nil
}

// SyncSettings merges the server's copy into the local record.
func (app *App) SyncSettings(ctx context.Context) error {
	server, err := app.API.Settings(ctx)
	if err != nil {
		return err
	}
	app.settingsMu.Lock()
	merged, err := settings.Merge(app.settingsRaw, server)
	if err != nil {
		app.settingsMu.Unlock()
		return err
	}
	s, err := settings.Decode(merged)
	if err != nil {
		app.settingsMu.Unlock()
		return err
	}
	app.settings, app.settingsRaw = s, merged
	app.settingsMu.Unlock()
	return app.store.Set(ctx, store.KeySettings, merged)
}
