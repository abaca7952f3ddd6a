// Package actions is the moderator's user actions form: mute, warn and ban.
package actions

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

const (
	ActionsDialogID dialogs.DialogID = "user-actions"
	width                            = 60
)

type SubmitMsg struct {
	Username string
	ReportID string
	Actions  moderation.Actions
}

type KeyMap struct {
	Next, Prev, Toggle, Submit, Close key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous")),
		Toggle: key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "toggle")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// action is one row of the form. minutes is nil for warnings.
type action struct {
	label   string
	on      bool
	minutes *textinput.Model
	reason  textinput.Model
}

// field addresses one focusable control: the checkbox, the minutes or the
// reason of a row.
type field struct {
	row  int
	part int
}

const (
	partToggle = iota
	partMinutes
	partReason
)

type actionsDialogCmp struct {
	wWidth, wHeight int
	username        string
	reportID        string
	rows            []*action
	fields          []field
	focus           int
	keyMap          KeyMap
}

func newInput(placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.SetValue(value)
	in.SetWidth(width - 24)
	return in
}

// New opens the form against username. reportID is empty when the form is
// opened from a message rather than a report.
func New(username, reportID string) dialogs.DialogModel {
	muteMin := newInput("minutes", strconv.Itoa(moderation.DefaultMuteMinutes), 6)
	banMin := newInput("minutes, 0 = permanent", strconv.Itoa(moderation.DefaultBanMinutes), 6)
	d := &actionsDialogCmp{
		username: username,
		reportID: reportID,
		rows: []*action{
			{label: "Mute", minutes: &muteMin, reason: newInput("reason", "", 200)},
			{label: "Warn", reason: newInput("reason", "", 200)},
			{label: "Ban", minutes: &banMin, reason: newInput("reason", "", 200)},
		},
		keyMap: DefaultKeyMap(),
	}
	for i, r := range d.rows {
		d.fields = append(d.fields, field{row: i, part: partToggle})
		if r.minutes != nil {
			d.fields = append(d.fields, field{row: i, part: partMinutes})
		}
		d.fields = append(d.fields, field{row: i, part: partReason})
	}
	return d
}

func (d *actionsDialogCmp) Init() tea.Cmd {
	return nil
}

func (d *actionsDialogCmp) input(f field) *textinput.Model {
	r := d.rows[f.row]
	switch f.part {
	case partMinutes:
		return r.minutes
	case partReason:
		return &r.reason
	}
	return nil
}

func (d *actionsDialogCmp) move(delta int) tea.Cmd {
	if in := d.input(d.fields[d.focus]); in != nil {
		in.Blur()
	}
	d.focus = (d.focus + delta + len(d.fields)) % len(d.fields)
	if in := d.input(d.fields[d.focus]); in != nil {
		return in.Focus()
	}
	return nil
}

func (d *actionsDialogCmp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.wWidth, d.wHeight = msg.Width, msg.Height
		return d, nil
	case tea.KeyPressMsg:
		f := d.fields[d.focus]
		switch {
		case key.Matches(msg, d.keyMap.Close):
			return d, util.CmdHandler(dialogs.CloseDialogMsg{})
		case key.Matches(msg, d.keyMap.Next):
			return d, d.move(1)
		case key.Matches(msg, d.keyMap.Prev):
			return d, d.move(-1)
		case key.Matches(msg, d.keyMap.Submit):
			return d, d.submit()
		case f.part == partToggle && key.Matches(msg, d.keyMap.Toggle):
			d.rows[f.row].on = !d.rows[f.row].on
			return d, nil
		}
		if in := d.input(f); in != nil {
			var cmd tea.Cmd
			*in, cmd = in.Update(msg)
			return d, cmd
		}
	}
	return d, nil
}

func minutesOf(in *textinput.Model) (int, error) {
	return strconv.Atoi(strings.TrimSpace(in.Value()))
}

func (d *actionsDialogCmp) submit() tea.Cmd {
	var a moderation.Actions
	mute, warn, ban := d.rows[0], d.rows[1], d.rows[2]
	if mute.on {
		n, err := minutesOf(mute.minutes)
		if err != nil || n <= 0 {
			return util.ReportWarn("Mute duration must be a positive number of minutes")
		}
		a.Mute = &moderation.Mute{Minutes: n, Reason: strings.TrimSpace(mute.reason.Value())}
	}
	if warn.on {
		a.Warn = &moderation.Warn{Reason: strings.TrimSpace(warn.reason.Value())}
	}
	if ban.on {
		n, err := minutesOf(ban.minutes)
		if err != nil || n < 0 {
			return util.ReportWarn("Ban duration must be a number of minutes")
		}
		a.Ban = &moderation.Ban{Minutes: n, Reason: strings.TrimSpace(ban.reason.Value())}
	}
	if err := a.Validate(); err != nil {
		return util.ReportError(err)
	}
	return tea.Sequence(
		util.CmdHandler(dialogs.CloseDialogMsg{}),
		util.CmdHandler(SubmitMsg{Username: d.username, ReportID: d.reportID, Actions: a}),
	)
}

func (d *actionsDialogCmp) View() string {
	t := styles.CurrentTheme()
	focused := d.fields[d.focus]
	lines := []string{t.S().Title.Render("Actions for " + d.username), ""}
	for i, r := range d.rows {
		box := "[ ]"
		if r.on {
			box = "[x]"
		}
		toggle := box + " " + r.label
		if focused.row == i && focused.part == partToggle {
			toggle = t.S().Selected.Render(toggle)
		}
		lines = append(lines, toggle)
		if r.minutes != nil {
			lines = append(lines, "    "+t.S().Muted.Render("Duration ")+r.minutes.View())
		}
		lines = append(lines, "    "+t.S().Muted.Render("Reason   ")+r.reason.View(), "")
	}
	lines = append(lines, t.S().Subtle.Render("space toggles · enter applies · esc cancels"))

	return t.S().Base.
		Width(width).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (d *actionsDialogCmp) Position() (int, int) {
	return d.wHeight/2 - 10, d.wWidth/2 - width/2
}

func (d *actionsDialogCmp) ID() dialogs.DialogID {
	return ActionsDialogID
}
