// Package pane is the message pane for one slot: the rendered rows, the
// conversation header and the composer.
package pane

import (
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/chasedut/chatfun/internal/app"
	"github.com/chasedut/chatfun/internal/avatar"
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/feed"
	"github.com/chasedut/chatfun/internal/markup"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/mute"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/actions"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/report"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

const (
	// chrome is the header line plus the composer and its border.
	chrome       = 4
	defaultEmoji = "👍"
)

// DeleteMsg asks for a message to be deleted from the slot's channel.
type DeleteMsg struct {
	Slot      feed.Slot
	MessageID string
}

type KeyMap struct {
	Send       key.Binding
	CtrlSend   key.Binding
	Select     key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Copy       key.Binding
	Reply      key.Binding
	React      key.Binding
	Delete     key.Binding
	Report     key.Binding
	UserAction key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		CtrlSend:   key.NewBinding(key.WithKeys("ctrl+enter", "ctrl+s"), key.WithHelp("ctrl+enter", "send")),
		Select:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "select messages")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "previous")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "next")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),
		Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Reply:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reply")),
		React:      key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "react")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Report:     key.NewBinding(key.WithKeys("!"), key.WithHelp("!", "report")),
		UserAction: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "user actions")),
	}
}

type Model struct {
	slot     feed.Slot
	scope    mute.Scope
	readOnly bool

	width, height int
	viewport      viewport.Model
	input         textinput.Model
	keyMap        KeyMap

	rows        []feed.Row
	messages    []chat.Message
	placeholder string
	header      *chat.Header
	title       string

	// selected is a row index while selecting, -1 while composing.
	selected int
	replyTo  *chat.Message
	mute     mute.Event

	role      moderation.Role
	ctrlEnter bool
}

// New creates the pane for slot. Spy panes are read-only and have no
// composer.
func New(slot feed.Slot, title string) *Model {
	in := textinput.New()
	in.Placeholder = "Type a message…"
	in.CharLimit = 2000

	m := &Model{
		slot:     slot,
		scope:    mute.ScopeChat,
		readOnly: slot == feed.SlotSpy,
		viewport: viewport.New(),
		input:    in,
		keyMap:   DefaultKeyMap(),
		selected: -1,
		title:    title,
		role:     moderation.RoleUser,
	}
	if slot == feed.SlotDirect {
		m.scope = mute.ScopeDM
	}
	if m.readOnly {
		m.selected = 0
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	if m.readOnly {
		return nil
	}
	return m.input.Focus()
}

func (m *Model) Slot() feed.Slot { return m.slot }

func (m *Model) SetRole(r moderation.Role) { m.role = r }

// SetCtrlEnterToSend makes plain enter insert nothing and only ctrl+enter
// send.
func (m *Model) SetCtrlEnterToSend(on bool) { m.ctrlEnter = on }

func (m *Model) SetSize(width, height int) tea.Cmd {
	m.width, m.height = width, height
	m.viewport.SetWidth(width)
	m.viewport.SetHeight(max(1, height-chrome))
	m.input.SetWidth(max(10, width-4))
	m.refresh()
	return nil
}

// Composing reports whether key presses go to the composer.
func (m *Model) Composing() bool {
	return !m.readOnly && m.selected < 0
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case app.FeedMsg:
		if msg.Slot == m.slot {
			m.apply(msg)
		}
		return m, nil
	case app.RenderedMsg:
		if msg.Slot == m.slot {
			m.messages = msg.Messages
		}
		return m, nil
	case app.MuteMsg:
		m.mute = msg.Event
		return m, nil
	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.PasteMsg:
		if m.Composing() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) apply(msg app.FeedMsg) {
	switch msg.Op {
	case app.OpReset:
		m.rows = nil
		m.header = nil
		m.placeholder = ""
		m.replyTo = nil
		if m.selected >= 0 {
			m.selected = 0
		}
	case app.OpPlaceholder:
		m.rows = nil
		m.placeholder = msg.Text
	case app.OpAppend:
		m.placeholder = ""
		m.rows = append(m.rows, msg.Rows...)
	case app.OpReactions:
		i := slices.IndexFunc(m.rows, func(r feed.Row) bool { return r.ID == msg.MessageID })
		if i >= 0 {
			m.rows[i].Reactions = msg.Reactions
		}
	case app.OpHeader:
		h := msg.Header
		m.header = &h
	case app.OpScroll:
		m.refresh()
		m.viewport.GotoBottom()
		return
	}
	m.refresh()
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.PageUp()
		return nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.PageDown()
		return nil
	}

	if m.Composing() {
		switch {
		case key.Matches(msg, m.keyMap.Select):
			if m.replyTo != nil {
				m.replyTo = nil
				return nil
			}
			if len(m.rows) == 0 {
				return nil
			}
			m.selected = len(m.rows) - 1
			m.input.Blur()
			m.refresh()
			return nil
		case key.Matches(msg, m.keyMap.CtrlSend):
			return m.send()
		case key.Matches(msg, m.keyMap.Send):
			if m.ctrlEnter {
				return nil
			}
			return m.send()
		}
		if m.muted() {
			return nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}

	row, ok := m.selectedRow()
	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.selected > 0 {
			m.selected--
			m.refresh()
		}
	case key.Matches(msg, m.keyMap.Down):
		if m.selected < len(m.rows)-1 {
			m.selected++
			m.refresh()
		}
	case key.Matches(msg, m.keyMap.Select), key.Matches(msg, m.keyMap.Send):
		if m.readOnly {
			return nil
		}
		m.selected = -1
		m.refresh()
		return m.input.Focus()
	case !ok:
		return nil
	case key.Matches(msg, m.keyMap.Copy):
		return copyRow(row)
	case m.readOnly:
		return nil
	case key.Matches(msg, m.keyMap.Reply):
		target := m.messageFor(row)
		m.replyTo = &target
		m.selected = -1
		m.refresh()
		return m.input.Focus()
	case key.Matches(msg, m.keyMap.React):
		if row.Local {
			return nil
		}
		return util.CmdHandler(app.ReactionToggled{Slot: m.slot, MessageID: row.ID, Emoji: defaultEmoji})
	case key.Matches(msg, m.keyMap.Delete):
		if row.Local || !moderation.ForMessage(m.role, row.Own).Delete {
			return nil
		}
		return util.CmdHandler(DeleteMsg{Slot: m.slot, MessageID: row.ID})
	case key.Matches(msg, m.keyMap.Report):
		if row.Local || !moderation.ForMessage(m.role, row.Own).Report {
			return nil
		}
		return util.CmdHandler(dialogs.OpenDialogMsg{Model: report.New(m.messageFor(row))})
	case key.Matches(msg, m.keyMap.UserAction):
		if !moderation.ForMessage(m.role, row.Own).UserActions {
			return nil
		}
		return util.CmdHandler(dialogs.OpenDialogMsg{Model: actions.New(row.Author, "")})
	}
	return nil
}

func (m *Model) send() tea.Cmd {
	if m.muted() {
		return util.ReportWarn("You are muted for " + m.mute.Text)
	}
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return nil
	}
	req := app.SendRequested{Slot: m.slot, Content: content, ReplyTo: m.replyTo}
	m.input.Reset()
	m.replyTo = nil
	return util.CmdHandler(req)
}

// Restore puts back a draft whose send failed.
func (m *Model) Restore(content string) {
	if m.input.Value() == "" {
		m.input.SetValue(content)
	}
}

func (m *Model) muted() bool {
	return m.mute.Active && m.mute.Status.Covers(m.scope)
}

func (m *Model) selectedRow() (feed.Row, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return feed.Row{}, false
	}
	return m.rows[m.selected], true
}

// messageFor finds the message behind a row. Echo rows are not in the last
// fetched list, so they are rebuilt from the row.
func (m *Model) messageFor(row feed.Row) chat.Message {
	for _, msg := range m.messages {
		if msg.ID == row.ID {
			return msg
		}
	}
	return chat.Message{
		ID:      row.ID,
		Author:  chat.Author{ID: row.AuthorID, Name: row.Author},
		Content: ansi.Strip(row.Body),
		Own:     row.Own,
	}
}

func copyRow(row feed.Row) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(ansi.Strip(row.Body)); err != nil {
			return util.InfoMsg{Type: util.InfoTypeError, Msg: "Copy failed: " + err.Error(), TTL: util.ErrorTTL}
		}
		return util.InfoMsg{Type: util.InfoTypeSuccess, Msg: "Message copied", TTL: util.SuccessTTL}
	}
}

func (m *Model) refresh() {
	if m.width == 0 {
		return
	}
	t := styles.CurrentTheme()
	if m.placeholder != "" || len(m.rows) == 0 {
		text := m.placeholder
		if text == "" {
			text = feed.DefaultEmptyText
		}
		m.viewport.SetContent(lipgloss.Place(m.width, m.viewport.Height(), lipgloss.Center, lipgloss.Center, t.S().Muted.Render(text)))
		return
	}
	blocks := make([]string, 0, len(m.rows))
	for i, row := range m.rows {
		blocks = append(blocks, m.renderRow(row, i == m.selected))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n"))
	if m.selected >= 0 {
		m.ensureVisible()
	}
}

// ensureVisible scrolls so the selected row's first line is on screen.
func (m *Model) ensureVisible() {
	line := 0
	for i := range m.selected {
		line += lipgloss.Height(m.renderRow(m.rows[i], false))
	}
	switch {
	case line < m.viewport.YOffset():
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset()+m.viewport.Height():
		m.viewport.SetYOffset(line - m.viewport.Height() + 1)
	}
}

func (m *Model) renderRow(row feed.Row, selected bool) string {
	t := styles.CurrentTheme()
	s := t.S()

	nameStyle := s.Author
	if row.Own {
		nameStyle = s.Own
	}
	head := []string{s.Subtle.Render(avatar.Glyph(row.Author, row.Avatar)), nameStyle.Render(markup.StripControl(row.Author))}
	if badge, ok := s.Badges[row.Badge]; ok {
		head = append(head, badge.Render("["+string(row.Badge)+"]"))
	}
	if row.Time != "" {
		head = append(head, s.Muted.Render(row.Time))
	}
	if row.Local {
		head = append(head, s.Muted.Render("sending…"))
	}

	lines := []string{strings.Join(head, " ")}
	if row.Reply != nil {
		preview := fmt.Sprintf("↳ %s: %s", row.Reply.Author, ansi.Strip(row.Reply.Content))
		lines = append(lines, s.Muted.Render(ansi.Truncate(preview, max(10, m.width-4), "…")))
	}
	body := row.Body
	if row.Deleted {
		body = s.Muted.Italic(true).Render(row.Body)
	}
	lines = append(lines, lipgloss.NewStyle().Width(max(10, m.width-2)).Render(body))
	if len(row.Reactions) > 0 {
		parts := make([]string, 0, len(row.Reactions))
		for _, r := range row.Reactions {
			chip := fmt.Sprintf("%s %d", r.Emoji, r.Count)
			if r.Mine {
				chip = s.Own.Render(chip)
			} else {
				chip = s.Muted.Render(chip)
			}
			parts = append(parts, chip)
		}
		lines = append(lines, strings.Join(parts, "  "))
	}

	block := lipgloss.JoinVertical(lipgloss.Left, lines...)
	border := lipgloss.NewStyle().PaddingLeft(1).BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).BorderForeground(t.BgBase)
	if selected {
		border = border.BorderForeground(t.Primary)
	}
	return border.Render(block)
}

func (m *Model) renderHeader() string {
	t := styles.CurrentTheme()
	title := m.title
	status := ""
	if m.header != nil {
		title = m.header.Participant.Name
		status = m.header.Status
		if badge, ok := t.S().Badges[m.header.Participant.Badge]; ok {
			title += " " + badge.Render("["+string(m.header.Participant.Badge)+"]")
		}
	}
	line := t.S().Title.Render(title)
	if status != "" {
		line += "  " + t.S().Muted.Render(status)
	}
	return ansi.Truncate(line, m.width, "…")
}

func (m *Model) renderComposer() string {
	t := styles.CurrentTheme()
	box := t.S().Base.Width(m.width).BorderTop(true).BorderStyle(lipgloss.NormalBorder()).BorderForeground(t.Border)
	switch {
	case m.readOnly:
		return box.Render(t.S().Muted.Render("Read-only · c to copy the selected message"))
	case m.muted():
		text := "You are muted · " + m.mute.Text + " remaining"
		if m.mute.Status.Reason != "" {
			text += " · " + m.mute.Status.Reason
		}
		return box.Render(lipgloss.NewStyle().Foreground(t.Error).Render(text))
	}
	view := m.input.View()
	if m.replyTo != nil {
		reply := ansi.Truncate(fmt.Sprintf("Replying to %s: %s", m.replyTo.Author.Name, m.replyTo.Content), max(10, m.width-2), "…")
		view = t.S().Muted.Render(reply) + "\n" + view
	}
	return box.Render(view)
}

func (m *Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderComposer(),
	)
}

func (m *Model) Bindings() []key.Binding {
	if m.Composing() {
		send := m.keyMap.Send
		if m.ctrlEnter {
			send = m.keyMap.CtrlSend
		}
		return []key.Binding{send, m.keyMap.Select, m.keyMap.PageUp}
	}
	if m.readOnly {
		return []key.Binding{m.keyMap.Up, m.keyMap.Down, m.keyMap.Copy}
	}
	return []key.Binding{m.keyMap.Up, m.keyMap.Down, m.keyMap.Copy, m.keyMap.Reply, m.keyMap.React, m.keyMap.Delete, m.keyMap.Report, m.keyMap.UserAction}
}
