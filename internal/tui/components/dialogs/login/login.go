// Package login is the sign-in form shown when there is no saved session.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

const (
	LoginDialogID dialogs.DialogID = "login"
	width                          = 44
)

// SubmitMsg carries the form values. The dialog stays open until the caller
// closes it, so a failed attempt can be retried.
type SubmitMsg struct {
	Username string
	Password string
	Register bool
}

type KeyMap struct {
	Next, Submit, Toggle key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down"), key.WithHelp("tab", "next field")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Toggle: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
	}
}

type loginDialogCmp struct {
	wWidth, wHeight int
	username        textinput.Model
	password        textinput.Model
	focus           int
	register        bool
	busy            bool
	keyMap          KeyMap
}

func New() dialogs.DialogModel {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 32
	user.SetWidth(width - 6)

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.SetWidth(width - 6)

	return &loginDialogCmp{username: user, password: pass, keyMap: DefaultKeyMap()}
}

func (l *loginDialogCmp) Init() tea.Cmd {
	return l.username.Focus()
}

// SetBusyMsg disables submission while a request is in flight.
type SetBusyMsg struct{ Busy bool }

func (l *loginDialogCmp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.wWidth, l.wHeight = msg.Width, msg.Height
		return l, nil
	case SetBusyMsg:
		l.busy = msg.Busy
		return l, nil
	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, l.keyMap.Toggle):
			l.register = !l.register
			return l, nil
		case key.Matches(msg, l.keyMap.Next):
			return l, l.cycle()
		case key.Matches(msg, l.keyMap.Submit):
			if l.focus == 0 {
				return l, l.cycle()
			}
			return l, l.submit()
		}
	}
	var cmd tea.Cmd
	if l.focus == 0 {
		l.username, cmd = l.username.Update(msg)
	} else {
		l.password, cmd = l.password.Update(msg)
	}
	return l, cmd
}

func (l *loginDialogCmp) cycle() tea.Cmd {
	l.focus = 1 - l.focus
	if l.focus == 0 {
		l.password.Blur()
		return l.username.Focus()
	}
	l.username.Blur()
	return l.password.Focus()
}

func (l *loginDialogCmp) submit() tea.Cmd {
	if l.busy {
		return nil
	}
	username := strings.TrimSpace(l.username.Value())
	if username == "" || l.password.Value() == "" {
		return util.ReportWarn("Username and password are required")
	}
	l.busy = true
	return util.CmdHandler(SubmitMsg{Username: username, Password: l.password.Value(), Register: l.register})
}

func (l *loginDialogCmp) View() string {
	t := styles.CurrentTheme()
	title := "Sign in to ChatFun"
	hint := "ctrl+r to create an account"
	if l.register {
		title = "Create a ChatFun account"
		hint = "ctrl+r to sign in instead"
	}
	if l.busy {
		hint = "Working…"
	}
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		t.S().Title.Render(title),
		"",
		l.username.View(),
		l.password.View(),
		"",
		t.S().Muted.Render(hint),
	)
	return t.S().Base.
		Width(width).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Render(content)
}

func (l *loginDialogCmp) Position() (int, int) {
	return l.wHeight/2 - 5, l.wWidth/2 - width/2
}

func (l *loginDialogCmp) ID() dialogs.DialogID {
	return LoginDialogID
}
