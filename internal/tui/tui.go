package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/chasedut/chatfun/internal/api"
	"github.com/chasedut/chatfun/internal/app"
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/feed"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/tui/components/conversations"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/actions"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/login"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/quit"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/report"
	"github.com/chasedut/chatfun/internal/tui/components/pane"
	"github.com/chasedut/chatfun/internal/tui/components/reports"
	"github.com/chasedut/chatfun/internal/tui/components/status"
	"github.com/chasedut/chatfun/internal/tui/loading"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

// requestTimeout bounds one user-initiated API call.
const requestTimeout = 15 * time.Second

var lastMouseEvent time.Time

func MouseEventFilter(m tea.Model, msg tea.Msg) tea.Msg {
	switch msg.(type) {
	case tea.MouseWheelMsg, tea.MouseMotionMsg:
		now := time.Now()
		// trackpad is sending too many requests
		if now.Sub(lastMouseEvent) < 15*time.Millisecond {
			return nil
		}
		lastMouseEvent = now
	}
	return msg
}

type tab int

const (
	tabChat tab = iota
	tabMessages
	tabSpy
	tabReports
)

var tabNames = map[tab]string{
	tabChat:     "Chat",
	tabMessages: "Messages",
	tabSpy:      "Spy",
	tabReports:  "Reports",
}

// Results of commands run off the update loop.
type (
	startedMsg  struct{ err error }
	authDoneMsg struct{ err error }
	loadedMsg   struct {
		slot   feed.Slot
		target string
		convs  []chat.Conversation
		err    error
	}
	openedMsg struct {
		slot feed.Slot
		ch   chat.Channel
		err  error
	}
	sendFailedMsg struct {
		slot    feed.Slot
		content string
		err     error
	}
	appliedMsg struct {
		reportID string
		summary  []string
		err      error
	}
	undoneMsg struct {
		reportID string
		err      error
	}
)

type appModel struct {
	wWidth, wHeight int
	width, height   int
	keyMap          KeyMap

	app *app.App

	current tab
	panes   map[feed.Slot]*pane.Model
	dmList  *conversations.Model
	spyList *conversations.Model
	reports *reports.Model

	spyInput  textinput.Model
	spyTarget string
	// listFocus is true when the Messages or Spy list has the keyboard.
	listFocus bool
	// opened remembers which slots have a channel, so tab switches never
	// have to ask the engines.
	opened map[feed.Slot]chat.Channel
	// tabEpoch counts tab changes so Leave and Resume commands that land
	// out of order can be told apart.
	tabEpoch uint64

	status          status.StatusCmp
	showingFullHelp bool
	dialog          dialogs.DialogCmp

	isLoading     bool
	loadingScreen tea.Model
	signedIn      bool
}

// New creates and initializes a new TUI application model.
func New(app *app.App) tea.Model {
	return NewWithSize(app, 80, 24)
}

func NewWithSize(a *app.App, width, height int) tea.Model {
	spy := textinput.New()
	spy.Placeholder = "username to monitor"
	spy.Prompt = "Spy on: "

	m := &appModel{
		wWidth:  width,
		wHeight: height,
		keyMap:  DefaultKeyMap(),
		app:     a,
		panes: map[feed.Slot]*pane.Model{
			feed.SlotGlobal: pane.New(feed.SlotGlobal, "Global chat"),
			feed.SlotDirect: pane.New(feed.SlotDirect, "Direct messages"),
			feed.SlotSpy:    pane.New(feed.SlotSpy, "Social spy"),
		},
		dmList:        conversations.New(feed.SlotDirect, "No conversations yet"),
		spyList:       conversations.New(feed.SlotSpy, "Enter a username to list their conversations"),
		reports:       reports.New(),
		spyInput:      spy,
		opened:        map[feed.Slot]chat.Channel{},
		status:        status.NewStatusCmp(),
		dialog:        dialogs.NewDialogCmp(),
		loadingScreen: loading.NewSimple(),
		signedIn:      a.Session.Authenticated(),
	}
	m.isLoading = m.signedIn
	return m
}

func (a *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		func() tea.Msg { return tea.RequestWindowSize() },
		a.status.Init(),
		a.panes[feed.SlotGlobal].Init(),
	}
	if a.isLoading {
		cmds = append(cmds, a.loadingScreen.Init(), a.start())
	} else {
		cmds = append(cmds, util.CmdHandler(dialogs.OpenDialogMsg{Model: login.New()}))
	}
	return tea.Batch(cmds...)
}

// run executes fn off the update loop with a request deadline.
func run(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

func (a *appModel) start() tea.Cmd {
	return run(func(ctx context.Context) tea.Msg {
		return startedMsg{err: a.app.Start(ctx)}
	})
}

func (a *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// While loading, keys are ignored but everything else is routed as
	// usual so nothing rendered during startup is lost.
	if a.isLoading {
		switch msg := msg.(type) {
		case tea.WindowSizeMsg:
			a.loadingScreen, _ = a.loadingScreen.Update(msg)
		case startedMsg:
			a.isLoading = false
			return a, a.started(msg.err)
		case tea.KeyPressMsg:
			if key.Matches(msg, a.keyMap.Quit) {
				return a, tea.Quit
			}
			return a, nil
		default:
			var cmd tea.Cmd
			a.loadingScreen, cmd = a.loadingScreen.Update(msg)
			if cmd != nil {
				return a, cmd
			}
		}
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.wWidth, a.wHeight = msg.Width, msg.Height
		return a, a.handleWindowResize(msg.Width, msg.Height)

	case dialogs.OpenDialogMsg, dialogs.CloseDialogMsg:
		u, dialogCmd := a.dialog.Update(msg)
		a.dialog = u.(dialogs.DialogCmp)
		return a, dialogCmd

	case util.InfoMsg, util.ClearStatusMsg:
		s, statusCmd := a.status.Update(msg)
		a.status = s.(status.StatusCmp)
		return a, statusCmd

	// Engine output
	case app.FeedMsg:
		a.updatePane(msg.Slot, msg)
		return a, nil
	case app.RenderedMsg:
		a.updatePane(msg.Slot, msg)
		return a, nil
	case app.MuteMsg:
		for slot := range a.panes {
			a.updatePane(slot, msg)
		}
		return a, nil
	case app.SessionExpiredMsg:
		a.signOut()
		return a, tea.Batch(
			util.CmdHandler(dialogs.OpenDialogMsg{Model: login.New()}),
			util.ReportWarn("Your session has expired, please sign in again"),
		)
	case app.LoggedOutMsg:
		a.signOut()
		return a, util.CmdHandler(dialogs.OpenDialogMsg{Model: login.New()})

	// Session
	case startedMsg:
		return a, a.started(msg.err)
	case login.SubmitMsg:
		return a, run(func(ctx context.Context) tea.Msg {
			if msg.Register {
				return authDoneMsg{err: a.app.Register(ctx, msg.Username, msg.Password)}
			}
			return authDoneMsg{err: a.app.Login(ctx, msg.Username, msg.Password)}
		})
	case authDoneMsg:
		if msg.err != nil {
			u, _ := a.dialog.Update(login.SetBusyMsg{Busy: false})
			a.dialog = u.(dialogs.DialogCmp)
			return a, util.ReportError(msg.err)
		}
		a.signedIn = true
		a.isLoading = true
		a.loadingScreen = loading.NewSimple()
		a.loadingScreen, _ = a.loadingScreen.Update(tea.WindowSizeMsg{Width: a.wWidth, Height: a.wHeight})
		return a, tea.Batch(
			util.CmdHandler(dialogs.CloseDialogMsg{}),
			a.loadingScreen.Init(),
			a.start(),
		)
	case quit.LogoutMsg:
		return a, run(func(ctx context.Context) tea.Msg {
			if err := a.app.Logout(ctx); err != nil {
				return util.InfoMsg{Type: util.InfoTypeError, Msg: err.Error(), TTL: util.ErrorTTL}
			}
			return nil
		})

	// Requests from the panes
	case app.SendRequested:
		return a, run(func(ctx context.Context) tea.Msg {
			if err := a.app.Handle(ctx, msg); err != nil {
				return sendFailedMsg{slot: msg.Slot, content: msg.Content, err: err}
			}
			return nil
		})
	case sendFailedMsg:
		if p, ok := a.panes[msg.slot]; ok {
			p.Restore(msg.content)
		}
		return a, util.ReportError(msg.err)
	case app.ReactionToggled:
		return a, a.report(func(ctx context.Context) error { return a.app.Handle(ctx, msg) }, "")
	case pane.DeleteMsg:
		return a, a.report(func(ctx context.Context) error {
			return a.app.Delete(ctx, msg.Slot, msg.MessageID)
		}, "Message deleted")
	case report.SubmitMsg:
		return a, a.report(func(ctx context.Context) error {
			return a.app.SubmitReport(ctx, msg.Submission)
		}, "Report submitted")

	// Conversations
	case loadedMsg:
		if msg.err != nil {
			return a, util.ReportError(msg.err)
		}
		switch msg.slot {
		case feed.SlotDirect:
			a.dmList.SetConversations("", msg.convs)
		case feed.SlotSpy:
			a.spyList.SetConversations(msg.target, msg.convs)
			a.listFocus = true
			return a, a.openDefault(feed.SlotSpy, msg.target)
		}
		return a, nil
	case conversations.SelectedMsg:
		ch := chat.Channel{ID: msg.Conversation.ID, Target: msg.Target}
		a.listFocus = false
		return a, run(func(context.Context) tea.Msg {
			return openedMsg{slot: msg.Slot, ch: ch, err: a.app.SwitchTo(msg.Slot, ch)}
		})
	case openedMsg:
		if msg.err != nil {
			return a, util.ReportError(msg.err)
		}
		a.opened[msg.slot] = msg.ch
		switch msg.slot {
		case feed.SlotDirect:
			a.dmList.SetActive(msg.ch.ID)
		case feed.SlotSpy:
			a.spyList.SetActive(msg.ch.ID)
		}
		return a, nil

	// Moderation
	case reports.RefreshMsg:
		return a, a.loadReports()
	case reports.UndoMsg:
		return a, run(func(ctx context.Context) tea.Msg {
			return undoneMsg{reportID: msg.ReportID, err: a.app.UndoReport(ctx, msg.ReportID)}
		})
	case undoneMsg:
		if msg.err != nil {
			return a, util.ReportError(msg.err)
		}
		a.reports.MarkReopened(msg.reportID)
		return a, util.ReportSuccess("Report reopened")
	case actions.SubmitMsg:
		return a, run(func(ctx context.Context) tea.Msg {
			summary, err := a.app.ApplyActions(ctx, msg.Username, msg.ReportID, msg.Actions)
			return appliedMsg{reportID: msg.ReportID, summary: summary, err: err}
		})
	case appliedMsg:
		if msg.err != nil {
			return a, util.ReportError(msg.err)
		}
		if msg.reportID != "" {
			a.reports.MarkCompleted(msg.reportID, msg.summary, a.app.Session.User().Username)
		}
		return a, util.ReportSuccess(strings.Join(msg.summary, " · "))
	case reports.LoadedMsg:
		_, cmd := a.reports.Update(msg)
		return a, cmd

	case tea.KeyPressMsg:
		return a, a.handleKeyPressMsg(msg)

	case tea.MouseWheelMsg, tea.PasteMsg:
		if a.dialog.HasDialogs() {
			u, dialogCmd := a.dialog.Update(msg)
			a.dialog = u.(dialogs.DialogCmp)
			return a, dialogCmd
		}
		return a, a.updateActive(msg)
	}

	if a.dialog.HasDialogs() {
		u, dialogCmd := a.dialog.Update(msg)
		a.dialog = u.(dialogs.DialogCmp)
		cmds = append(cmds, dialogCmd)
	}
	cmds = append(cmds, a.updateActive(msg))
	return a, tea.Batch(cmds...)
}

// report runs fn and turns its outcome into a notice. An empty success text
// reports failures only.
func (a *appModel) report(fn func(ctx context.Context) error, success string) tea.Cmd {
	return run(func(ctx context.Context) tea.Msg {
		if err := fn(ctx); err != nil {
			return util.InfoMsg{Type: util.InfoTypeError, Msg: err.Error(), TTL: util.ErrorTTL}
		}
		if success == "" {
			return nil
		}
		return util.InfoMsg{Type: util.InfoTypeSuccess, Msg: success, TTL: util.SuccessTTL}
	})
}

func (a *appModel) started(err error) tea.Cmd {
	if err != nil {
		if errors.Is(err, api.ErrNoToken) || api.IsKind(err, api.Unauthorized) {
			a.signOut()
			return util.CmdHandler(dialogs.OpenDialogMsg{Model: login.New()})
		}
		return util.ReportError(err)
	}
	a.signedIn = true
	a.opened[feed.SlotGlobal] = chat.Global()

	st := a.app.Settings()
	styles.SetTheme(st.Theme)
	role := a.app.Session.Role()
	for _, p := range a.panes {
		p.SetRole(role)
		p.SetCtrlEnterToSend(st.CtrlEnterToSend)
	}
	a.reports.SetRole(role)
	return tea.Batch(
		a.handleWindowResize(a.wWidth, a.wHeight),
		util.ReportSuccess("Signed in as "+a.app.Session.User().Username),
	)
}

func (a *appModel) signOut() {
	a.signedIn = false
	a.isLoading = false
	a.current = tabChat
	a.spyTarget = ""
	a.listFocus = false
	clear(a.opened)
}

func (a *appModel) loadConversations() tea.Cmd {
	return run(func(ctx context.Context) tea.Msg {
		convs, err := a.app.Conversations(ctx)
		return loadedMsg{slot: feed.SlotDirect, convs: convs, err: err}
	})
}

func (a *appModel) loadSpy(target string) tea.Cmd {
	return run(func(ctx context.Context) tea.Msg {
		convs, err := a.app.SpyConversations(ctx, target)
		return loadedMsg{slot: feed.SlotSpy, target: target, convs: convs, err: err}
	})
}

func (a *appModel) loadReports() tea.Cmd {
	return run(func(ctx context.Context) tea.Msg {
		list, err := a.app.Reports(ctx)
		return reports.LoadedMsg{Reports: list, Err: err}
	})
}

func (a *appModel) openDefault(slot feed.Slot, target string) tea.Cmd {
	return run(func(context.Context) tea.Msg {
		ch, err := a.app.OpenDefault(slot, target)
		if err != nil {
			return openedMsg{slot: slot, err: err}
		}
		if ch.IsZero() {
			return nil
		}
		return openedMsg{slot: slot, ch: ch}
	})
}

func (a *appModel) isModerator() bool {
	return a.app.Session.Role().IsModerator()
}

func (a *appModel) tabs() []tab {
	if a.isModerator() {
		return []tab{tabChat, tabMessages, tabSpy, tabReports}
	}
	return []tab{tabChat, tabMessages}
}

func slotOf(t tab) (feed.Slot, bool) {
	switch t {
	case tabMessages:
		return feed.SlotDirect, true
	case tabSpy:
		return feed.SlotSpy, true
	}
	return "", false
}

// moveToTab pauses the slot being hidden and wakes or opens the one being
// shown.
func (a *appModel) moveToTab(next tab) tea.Cmd {
	if next == a.current || !a.signedIn {
		return nil
	}
	a.tabEpoch++
	epoch := a.tabEpoch
	var cmds []tea.Cmd
	if slot, ok := slotOf(a.current); ok {
		cmds = append(cmds, run(func(context.Context) tea.Msg {
			a.app.Leave(slot, epoch)
			return nil
		}))
	}
	a.current = next
	a.listFocus = false

	switch next {
	case tabMessages:
		cmds = append(cmds, a.loadConversations())
		if _, ok := a.opened[feed.SlotDirect]; ok {
			cmds = append(cmds, a.resume(feed.SlotDirect, epoch))
		} else {
			cmds = append(cmds, a.openDefault(feed.SlotDirect, ""))
		}
	case tabSpy:
		if _, ok := a.opened[feed.SlotSpy]; ok {
			cmds = append(cmds, a.resume(feed.SlotSpy, epoch))
		} else {
			a.listFocus = true
			cmds = append(cmds, a.spyInput.Focus())
		}
	case tabReports:
		cmds = append(cmds, a.loadReports())
	}
	return tea.Batch(cmds...)
}

func (a *appModel) resume(slot feed.Slot, epoch uint64) tea.Cmd {
	return a.report(func(context.Context) error { return a.app.Resume(slot, epoch) }, "")
}

func (a *appModel) updatePane(slot feed.Slot, msg tea.Msg) {
	if p, ok := a.panes[slot]; ok {
		p.Update(msg)
	}
}

// updateActive forwards msg to whatever has focus on the current tab.
func (a *appModel) updateActive(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.current {
	case tabMessages:
		if a.listFocus {
			_, cmd = a.dmList.Update(msg)
		} else {
			_, cmd = a.panes[feed.SlotDirect].Update(msg)
		}
	case tabSpy:
		if a.listFocus {
			if a.spyInput.Focused() {
				a.spyInput, cmd = a.spyInput.Update(msg)
			} else {
				_, cmd = a.spyList.Update(msg)
			}
		} else {
			_, cmd = a.panes[feed.SlotSpy].Update(msg)
		}
	case tabReports:
		_, cmd = a.reports.Update(msg)
	default:
		_, cmd = a.panes[feed.SlotGlobal].Update(msg)
	}
	return cmd
}

// typing reports whether printable keys belong to a text field on the
// current tab.
func (a *appModel) typing() bool {
	switch a.current {
	case tabMessages:
		if a.listFocus {
			return a.dmList.Filtering()
		}
		return a.panes[feed.SlotDirect].Composing()
	case tabSpy:
		if a.listFocus {
			return a.spyInput.Focused() || a.spyList.Filtering()
		}
		return false
	case tabReports:
		return a.reports.Searching()
	}
	return a.panes[feed.SlotGlobal].Composing()
}

func (a *appModel) handleKeyPressMsg(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keyMap.Quit):
		if a.dialog.ActiveDialogID() == quit.QuitDialogID {
			return tea.Quit
		}
		return util.CmdHandler(dialogs.OpenDialogMsg{Model: quit.NewQuitDialog()})
	case key.Matches(msg, a.keyMap.Help):
		a.status.ToggleFullHelp()
		a.showingFullHelp = !a.showingFullHelp
		return a.handleWindowResize(a.wWidth, a.wHeight)
	case key.Matches(msg, a.keyMap.Suspend):
		return tea.Suspend
	}

	if a.dialog.HasDialogs() {
		u, dialogCmd := a.dialog.Update(msg)
		a.dialog = u.(dialogs.DialogCmp)
		return dialogCmd
	}
	if !a.signedIn {
		return nil
	}

	tabs := a.tabs()
	switch {
	case key.Matches(msg, a.keyMap.NextTab):
		for i, t := range tabs {
			if t == a.current {
				return a.moveToTab(tabs[(i+1)%len(tabs)])
			}
		}
		return a.moveToTab(tabChat)
	case key.Matches(msg, a.keyMap.Chat):
		return a.moveToTab(tabChat)
	case key.Matches(msg, a.keyMap.DMs):
		return a.moveToTab(tabMessages)
	case key.Matches(msg, a.keyMap.Spy):
		if a.isModerator() {
			return a.moveToTab(tabSpy)
		}
		return nil
	case key.Matches(msg, a.keyMap.Reports):
		if a.isModerator() {
			return a.moveToTab(tabReports)
		}
		return nil
	case key.Matches(msg, a.keyMap.Focus) && (a.current == tabMessages || a.current == tabSpy):
		a.listFocus = !a.listFocus
		if a.current == tabSpy && a.listFocus && a.spyTarget == "" {
			return a.spyInput.Focus()
		}
		a.spyInput.Blur()
		return nil
	}

	if a.current == tabSpy && a.listFocus && a.spyInput.Focused() {
		switch msg.String() {
		case "enter":
			target := strings.TrimSpace(a.spyInput.Value())
			if target == "" {
				return nil
			}
			a.spyTarget = target
			a.spyInput.Blur()
			return a.loadSpy(target)
		case "esc":
			a.spyInput.Blur()
			return nil
		}
	}
	if a.current == tabSpy && a.listFocus && !a.spyInput.Focused() && !a.spyList.Filtering() && msg.String() == "s" {
		a.spyInput.SetValue("")
		return a.spyInput.Focus()
	}
	return a.updateActive(msg)
}

func (a *appModel) handleWindowResize(width, height int) tea.Cmd {
	var cmds []tea.Cmd
	if a.showingFullHelp {
		height -= 5
	} else {
		height -= 2
	}
	// one line for the tab bar
	height--
	a.width, a.height = width, height

	s, cmd := a.status.Update(tea.WindowSizeMsg{Width: width, Height: height})
	a.status = s.(status.StatusCmp)
	cmds = append(cmds, cmd)

	listWidth := min(34, width/3)
	paneWidth := width - listWidth - 1
	cmds = append(cmds,
		a.panes[feed.SlotGlobal].SetSize(width, height),
		a.panes[feed.SlotDirect].SetSize(paneWidth, height),
		a.panes[feed.SlotSpy].SetSize(paneWidth, height),
		a.dmList.SetSize(listWidth, height),
		a.spyList.SetSize(listWidth, height-1),
		a.reports.SetSize(width, height),
	)
	a.spyInput.SetWidth(max(5, listWidth-10))

	dialog, cmd := a.dialog.Update(tea.WindowSizeMsg{Width: width, Height: height})
	a.dialog = dialog.(dialogs.DialogCmp)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

func (a *appModel) renderTabs() string {
	t := styles.CurrentTheme()
	parts := []string{t.S().Title.Render("ChatFun ")}
	for _, tb := range a.tabs() {
		if tb == a.current {
			parts = append(parts, t.S().TabOn.Render(tabNames[tb]))
		} else {
			parts = append(parts, t.S().TabOff.Render(tabNames[tb]))
		}
	}
	if a.signedIn {
		user := a.app.Session.User()
		who := user.Username
		if r := a.app.Session.Role(); r != moderation.RoleUser {
			who += " [" + string(r) + "]"
		}
		parts = append(parts, t.S().Muted.PaddingLeft(2).Render(who))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *appModel) withList(list string, focused bool, body string) string {
	t := styles.CurrentTheme()
	border := t.Border
	if focused {
		border = t.BorderFocus
	}
	left := lipgloss.NewStyle().
		Width(min(34, a.width/3)).
		Height(a.height).
		BorderRight(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(border).
		Render(list)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, body)
}

func (a *appModel) pageView() (string, []key.Binding) {
	switch a.current {
	case tabMessages:
		p := a.panes[feed.SlotDirect]
		if a.listFocus {
			return a.withList(a.dmList.View(), true, p.View()), a.dmList.Bindings()
		}
		return a.withList(a.dmList.View(), false, p.View()), p.Bindings()
	case tabSpy:
		p := a.panes[feed.SlotSpy]
		list := lipgloss.JoinVertical(lipgloss.Left, a.spyInput.View(), a.spyList.View())
		if a.listFocus {
			return a.withList(list, true, p.View()), a.spyList.Bindings()
		}
		return a.withList(list, false, p.View()), p.Bindings()
	case tabReports:
		return a.reports.View(), a.reports.Bindings()
	}
	p := a.panes[feed.SlotGlobal]
	return p.View(), p.Bindings()
}

func (a *appModel) View() tea.View {
	var view tea.View
	t := styles.CurrentTheme()
	view.BackgroundColor = t.BgBase

	if a.wWidth == 0 || a.wHeight == 0 {
		view.Layer = lipgloss.NewCanvas()
		return view
	}

	if a.isLoading {
		layers := []*lipgloss.Layer{lipgloss.NewLayer(a.loadingScreen.(*loading.SimpleLoadingScreen).View())}
		if a.dialog.HasDialogs() {
			layers = append(layers, a.dialog.GetLayers()...)
		}
		view.Layer = lipgloss.NewCanvas(layers...)
		return view
	}

	if a.wWidth < 40 || a.wHeight < 15 {
		view.Layer = lipgloss.NewCanvas(
			lipgloss.NewLayer(
				t.S().Base.Width(a.wWidth).Height(a.wHeight).
					Align(lipgloss.Center, lipgloss.Center).
					Render(
						t.S().Base.
							Padding(1, 4).
							Foreground(t.White).
							BorderStyle(lipgloss.RoundedBorder()).
							BorderForeground(t.Primary).
							Render("Window too small!"),
					),
			),
		)
		return view
	}

	body := ""
	bindings := []key.Binding{a.keyMap.Quit, a.keyMap.Help}
	if a.signedIn {
		var pageBindings []key.Binding
		body, pageBindings = a.pageView()
		bindings = append(pageBindings, a.keyMap.NextTab, a.keyMap.Quit)
	}
	a.status.SetKeyMap(status.KeyMap(bindings))

	appView := lipgloss.JoinVertical(lipgloss.Top,
		a.renderTabs(),
		lipgloss.NewStyle().Height(a.height).MaxHeight(a.height).Render(body),
		a.status.View(),
	)
	layers := []*lipgloss.Layer{lipgloss.NewLayer(appView)}
	if a.dialog.HasDialogs() {
		layers = append(layers, a.dialog.GetLayers()...)
	}
	view.Layer = lipgloss.NewCanvas(layers...)
	return view
}
