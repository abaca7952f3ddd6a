package quit

import (
	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

const (
	question                      = "What would you like to do?"
	QuitDialogID dialogs.DialogID = "quit"
)

const (
	optionQuit = iota
	optionLogout
	optionCancel
	optionCount
)

// LogoutMsg asks the app to sign out and return to the login form.
type LogoutMsg struct{}

// QuitDialog represents a confirmation dialog for quitting the application.
type QuitDialog interface {
	dialogs.DialogModel
}

type quitDialogCmp struct {
	wWidth  int
	wHeight int

	selectedOption int
	keymap         KeyMap
}

func NewQuitDialog() QuitDialog {
	return &quitDialogCmp{
		selectedOption: optionQuit,
		keymap:         DefaultKeymap(),
	}
}

func (q *quitDialogCmp) Init() tea.Cmd {
	return nil
}

func (q *quitDialogCmp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		q.wWidth = msg.Width
		q.wHeight = msg.Height
	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, q.keymap.LeftRight, q.keymap.Tab):
			q.selectedOption = (q.selectedOption + 1) % optionCount
			return q, nil
		case key.Matches(msg, q.keymap.EnterSpace):
			switch q.selectedOption {
			case optionQuit:
				return q, tea.Quit
			case optionLogout:
				return q, tea.Sequence(
					util.CmdHandler(dialogs.CloseDialogMsg{}),
					util.CmdHandler(LogoutMsg{}),
				)
			default:
				return q, util.CmdHandler(dialogs.CloseDialogMsg{})
			}
		case key.Matches(msg, q.keymap.Yes):
			return q, tea.Quit
		case key.Matches(msg, q.keymap.No, q.keymap.Close):
			return q, util.CmdHandler(dialogs.CloseDialogMsg{})
		}
	}
	return q, nil
}

func (q *quitDialogCmp) View() string {
	t := styles.CurrentTheme()
	baseStyle := t.S().Base
	buttonStyle := t.S().Text.Background(t.BgSubtle)

	labels := [optionCount]string{"Quit", "Log out", "Cancel"}
	buttons := make([]string, 0, optionCount*2)
	for i, label := range labels {
		style := buttonStyle
		if i == q.selectedOption {
			style = style.Foreground(t.White).Background(t.Secondary)
		}
		if i > 0 {
			buttons = append(buttons, " ")
		}
		buttons = append(buttons, style.Padding(0, 2).Render(label))
	}

	content := baseStyle.Render(
		lipgloss.JoinVertical(
			lipgloss.Center,
			question,
			"",
			baseStyle.Align(lipgloss.Center).Render(lipgloss.JoinHorizontal(lipgloss.Center, buttons...)),
		),
	)

	return baseStyle.
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Render(content)
}

func (q *quitDialogCmp) Position() (int, int) {
	row := q.wHeight/2 - 7/2
	col := q.wWidth/2 - 34/2
	return row, col
}

func (q *quitDialogCmp) ID() dialogs.DialogID {
	return QuitDialogID
}
