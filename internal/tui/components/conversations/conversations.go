// Package conversations lists DM or spied conversations with a fuzzy filter.
package conversations

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/feed"
	"github.com/chasedut/chatfun/internal/markup"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
	"github.com/sahilm/fuzzy"
)

// SelectedMsg is sent when the user opens a conversation.
type SelectedMsg struct {
	Slot         feed.Slot
	Target       string
	Conversation chat.Conversation
}

type KeyMap struct {
	Up, Down, Open, Filter, Clear key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous")),
		Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	}
}

// source adapts the list to fuzzy.Source over participant names.
type source []chat.Conversation

func (s source) String(i int) string { return s[i].Participant.Name }
func (s source) Len() int            { return len(s) }

type Model struct {
	slot   feed.Slot
	target string

	width, height int
	all           []chat.Conversation
	visible       []chat.Conversation
	matches       map[string][]int
	cursor        int
	active        string
	empty         string

	filter    textinput.Model
	filtering bool
	keyMap    KeyMap
}

func New(slot feed.Slot, empty string) *Model {
	f := textinput.New()
	f.Placeholder = "filter by name"
	f.Prompt = "/ "
	return &Model{slot: slot, empty: empty, filter: f, keyMap: DefaultKeyMap()}
}

func (m *Model) Init() tea.Cmd { return nil }

// SetConversations replaces the list. target is the spied username, empty
// for the user's own DMs.
func (m *Model) SetConversations(target string, convs []chat.Conversation) {
	m.target = target
	m.all = convs
	m.applyFilter()
}

// SetActive marks the conversation currently shown in the pane.
func (m *Model) SetActive(id string) {
	m.active = id
	for i, c := range m.visible {
		if c.ID == id {
			m.cursor = i
		}
	}
}

func (m *Model) Filtering() bool { return m.filtering }

func (m *Model) SetSize(width, height int) tea.Cmd {
	m.width, m.height = width, height
	m.filter.SetWidth(max(5, width-4))
	return nil
}

func (m *Model) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	m.matches = nil
	if query == "" {
		m.visible = m.all
	} else {
		found := fuzzy.FindFrom(query, source(m.all))
		m.visible = make([]chat.Conversation, 0, len(found))
		m.matches = make(map[string][]int, len(found))
		for _, f := range found {
			c := m.all[f.Index]
			m.visible = append(m.visible, c)
			m.matches[c.ID] = f.MatchedIndexes
		}
	}
	m.cursor = min(m.cursor, max(0, len(m.visible)-1))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		if m.filtering {
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(keyMsg, m.keyMap.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(keyMsg, m.keyMap.Open):
		m.filtering = false
		m.filter.Blur()
		if m.cursor >= len(m.visible) {
			return m, nil
		}
		c := m.visible[m.cursor]
		m.active = c.ID
		return m, util.CmdHandler(SelectedMsg{Slot: m.slot, Target: m.target, Conversation: c})
	case m.filtering && key.Matches(keyMsg, m.keyMap.Clear):
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	case !m.filtering && key.Matches(keyMsg, m.keyMap.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	}
	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	t := styles.CurrentTheme()
	s := t.S()
	lines := []string{}
	if m.filtering || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
	}
	if len(m.visible) == 0 {
		text := m.empty
		if len(m.all) > 0 {
			text = "No matches"
		}
		lines = append(lines, s.Muted.Render(text))
	}
	now := time.Now()
	for i, c := range m.visible {
		if len(lines) >= m.height-1 && m.height > 0 {
			break
		}
		name := highlight(markup.StripControl(c.Participant.Name), m.matches[c.ID], s.Title)
		if badge, ok := s.Badges[c.Participant.Badge]; ok {
			name += " " + badge.Render("["+string(c.Participant.Badge)+"]")
		}
		if c.Unread > 0 {
			name += " " + lipgloss.NewStyle().Foreground(t.Accent).Render(fmt.Sprintf("(%d)", c.Unread))
		}
		meta := ""
		if !c.LastActivity.IsZero() {
			meta = moderation.TimeAgo(c.LastActivity, now)
		}
		preview := ansi.Truncate(markup.StripControl(c.LastMessage), max(5, m.width-4), "…")

		style := s.Base.Width(m.width).PaddingLeft(1)
		marker := " "
		if c.ID == m.active {
			marker = "•"
		}
		if i == m.cursor {
			style = style.Background(t.BgSubtle)
		}
		lines = append(lines, style.Render(marker+" "+name+"  "+s.Muted.Render(meta)+"\n   "+s.Subtle.Render(preview)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// highlight underlines the characters fuzzy matched. Indexes are byte
// offsets, as fuzzy reports them.
func highlight(name string, idx []int, style lipgloss.Style) string {
	if len(idx) == 0 {
		return name
	}
	hit := make(map[int]bool, len(idx))
	for _, i := range idx {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range name {
		if hit[i] {
			b.WriteString(style.Underline(true).Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (m *Model) Bindings() []key.Binding {
	if m.filtering {
		return []key.Binding{m.keyMap.Open, m.keyMap.Clear}
	}
	return []key.Binding{m.keyMap.Up, m.keyMap.Down, m.keyMap.Open, m.keyMap.Filter}
}
