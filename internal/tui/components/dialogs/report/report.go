package report

import (
	"fmt"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

const (
	ReportDialogID dialogs.DialogID = "report"
	width                           = 56
)

type SubmitMsg struct {
	Submission moderation.Submission
}

type KeyMap struct {
	Up, Down, Submit, Close key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous reason")),
		Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next reason")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

type reportDialogCmp struct {
	wWidth, wHeight int
	message         chat.Message
	reason          int
	details         textinput.Model
	keyMap          KeyMap
}

// New opens the report form for m.
func New(m chat.Message) dialogs.DialogModel {
	details := textinput.New()
	details.Placeholder = "Additional details (optional)"
	details.CharLimit = moderation.MaxDetailsLength
	details.SetWidth(width - 6)
	return &reportDialogCmp{message: m, details: details, keyMap: DefaultKeyMap()}
}

func (r *reportDialogCmp) Init() tea.Cmd {
	return r.details.Focus()
}

func (r *reportDialogCmp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.wWidth, r.wHeight = msg.Width, msg.Height
		return r, nil
	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, r.keyMap.Close):
			return r, util.CmdHandler(dialogs.CloseDialogMsg{})
		case key.Matches(msg, r.keyMap.Up):
			r.reason = (r.reason - 1 + len(moderation.Reasons)) % len(moderation.Reasons)
			return r, nil
		case key.Matches(msg, r.keyMap.Down):
			r.reason = (r.reason + 1) % len(moderation.Reasons)
			return r, nil
		case key.Matches(msg, r.keyMap.Submit):
			s := moderation.Submission{
				MessageID:      r.message.ID,
				ReportedUser:   r.message.Author.Name,
				Reason:         moderation.Reasons[r.reason],
				Details:        r.details.Value(),
				MessageContent: r.message.Content,
			}
			if err := s.Validate(); err != nil {
				return r, util.ReportError(err)
			}
			return r, tea.Sequence(
				util.CmdHandler(dialogs.CloseDialogMsg{}),
				util.CmdHandler(SubmitMsg{Submission: s}),
			)
		}
	}
	var cmd tea.Cmd
	r.details, cmd = r.details.Update(msg)
	return r, cmd
}

func (r *reportDialogCmp) View() string {
	t := styles.CurrentTheme()
	rows := []string{
		t.S().Title.Render("Report message"),
		t.S().Muted.Render(ansi.Truncate(fmt.Sprintf("%s: %s", r.message.Author.Name, r.message.Content), width-6, "…")),
		"",
	}
	for i, reason := range moderation.Reasons {
		line := "  " + string(reason)
		if i == r.reason {
			line = t.S().Selected.Render("› " + string(reason))
		}
		rows = append(rows, line)
	}
	rows = append(rows, "", r.details.View(),
		t.S().Subtle.Render(fmt.Sprintf("%d/%d", len([]rune(r.details.Value())), moderation.MaxDetailsLength)))

	return t.S().Base.
		Width(width).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (r *reportDialogCmp) Position() (int, int) {
	return r.wHeight/2 - 8, r.wWidth/2 - width/2
}

func (r *reportDialogCmp) ID() dialogs.DialogID {
	return ReportDialogID
}
