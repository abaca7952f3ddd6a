// Package reports is the moderator's report queue.
package reports

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/chasedut/chatfun/internal/markup"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs"
	"github.com/chasedut/chatfun/internal/tui/components/dialogs/actions"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

var categories = []moderation.Category{
	moderation.CategoryAll,
	moderation.CategoryPending,
	moderation.CategoryCompleted,
}

type (
	// RefreshMsg asks for the report list to be fetched again.
	RefreshMsg struct{}
	// UndoMsg asks for a completed report to be reopened.
	UndoMsg struct{ ReportID string }
	// LoadedMsg delivers a fetched report list.
	LoadedMsg struct {
		Reports []moderation.Report
		Err     error
	}
)

type KeyMap struct {
	Up, Down, Prev, Next, Category, Reason, Search, Clear, Actions, Undo, Refresh key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous")),
		Down:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),
		Prev:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous page")),
		Next:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next page")),
		Category: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category")),
		Reason:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "reason filter")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
		Actions:  key.NewBinding(key.WithKeys("a", "enter"), key.WithHelp("a", "user actions")),
		Undo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Refresh:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
	}
}

type Model struct {
	width, height int
	all           []moderation.Report
	query         moderation.Query
	page          moderation.Page
	cursor        int
	search        textinput.Model
	searching     bool
	role          moderation.Role
	loaded        bool
	now           func() time.Time
	keyMap        KeyMap
}

func New() *Model {
	s := textinput.New()
	s.Placeholder = "search user, reason or content"
	s.Prompt = "/ "
	m := &Model{
		query:  moderation.Query{Category: moderation.CategoryPending, Page: 1},
		search: s,
		role:   moderation.RoleUser,
		now:    time.Now,
		keyMap: DefaultKeyMap(),
	}
	m.repage()
	return m
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) SetRole(r moderation.Role) { m.role = r }

func (m *Model) Searching() bool { return m.searching }

func (m *Model) SetSize(width, height int) tea.Cmd {
	m.width, m.height = width, height
	m.search.SetWidth(max(10, width-4))
	return nil
}

func (m *Model) repage() {
	m.page = moderation.Paginate(m.all, m.query)
	m.query.Page = m.page.Page
	m.cursor = min(m.cursor, max(0, len(m.page.Reports)-1))
}

func (m *Model) selected() (moderation.Report, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Reports) {
		return moderation.Report{}, false
	}
	return m.page.Reports[m.cursor], true
}

// MarkCompleted updates a report locally after actions were applied to it.
func (m *Model) MarkCompleted(reportID string, summary []string, by string) {
	i := slices.IndexFunc(m.all, func(r moderation.Report) bool { return r.ID == reportID })
	if i >= 0 {
		m.all[i] = moderation.Complete(m.all[i], summary, by, m.now())
		m.repage()
	}
}

func (m *Model) MarkReopened(reportID string) {
	i := slices.IndexFunc(m.all, func(r moderation.Report) bool { return r.ID == reportID })
	if i >= 0 {
		m.all[i] = moderation.Reopen(m.all[i])
		m.repage()
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			return m, util.ReportError(msg.Err)
		}
		m.all = msg.Reports
		m.loaded = true
		m.repage()
		return m, nil
	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.searching {
		if key.Matches(msg, m.keyMap.Clear) || msg.String() == "enter" {
			m.searching = false
			m.search.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.query.Search = m.search.Value()
		m.query.Page = 1
		m.repage()
		return cmd
	}

	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keyMap.Down):
		if m.cursor < len(m.page.Reports)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keyMap.Prev):
		if m.page.HasPrev() {
			m.query.Page--
			m.cursor = 0
			m.repage()
		}
	case key.Matches(msg, m.keyMap.Next):
		if m.page.HasNext() {
			m.query.Page++
			m.cursor = 0
			m.repage()
		}
	case key.Matches(msg, m.keyMap.Category):
		i := slices.Index(categories, m.query.Category)
		m.query.Category = categories[(i+1)%len(categories)]
		m.query.Page = 1
		m.cursor = 0
		m.repage()
	case key.Matches(msg, m.keyMap.Reason):
		i := slices.Index(moderation.Reasons, m.query.Reason)
		if i+1 >= len(moderation.Reasons) {
			m.query.Reason = ""
		} else {
			m.query.Reason = moderation.Reasons[i+1]
		}
		m.query.Page = 1
		m.repage()
	case key.Matches(msg, m.keyMap.Search):
		m.searching = true
		return m.search.Focus()
	case key.Matches(msg, m.keyMap.Refresh):
		return util.CmdHandler(RefreshMsg{})
	case key.Matches(msg, m.keyMap.Actions):
		r, ok := m.selected()
		if !ok || !moderation.ForReport(m.role, r.Status).UserActions {
			return nil
		}
		return util.CmdHandler(dialogs.OpenDialogMsg{Model: actions.New(r.ReportedUser, r.ID)})
	case key.Matches(msg, m.keyMap.Undo):
		r, ok := m.selected()
		if !ok || !moderation.ForReport(m.role, r.Status).Undo {
			return nil
		}
		return util.CmdHandler(UndoMsg{ReportID: r.ID})
	}
	return nil
}

func (m *Model) View() string {
	t := styles.CurrentTheme()
	s := t.S()

	tabs := make([]string, 0, len(categories))
	for _, c := range categories {
		label := strings.ToUpper(string(c[:1])) + string(c[1:])
		if c == m.query.Category {
			tabs = append(tabs, s.TabOn.Render(label))
		} else {
			tabs = append(tabs, s.TabOff.Render(label))
		}
	}
	filters := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...)}
	if m.query.Reason != "" {
		filters = append(filters, s.Muted.Render("reason: "+string(m.query.Reason)))
	}
	lines := []string{strings.Join(filters, "  ")}
	if m.searching || m.search.Value() != "" {
		lines = append(lines, m.search.View())
	}
	lines = append(lines, "")

	switch {
	case !m.loaded:
		lines = append(lines, s.Muted.Render("Loading reports…"))
	case len(m.page.Reports) == 0:
		lines = append(lines, s.Muted.Render(moderation.EmptyText(m.query.Category)))
	}

	now := m.now()
	for i, r := range m.page.Reports {
		lines = append(lines, m.renderReport(r, i == m.cursor, now))
	}
	if m.page.Total > 0 {
		lines = append(lines, s.Subtle.Render(fmt.Sprintf("Page %d of %d · %d reports", m.page.Page, m.page.TotalPages, m.page.Total)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderReport(r moderation.Report, selected bool, now time.Time) string {
	t := styles.CurrentTheme()
	s := t.S()
	status := s.Muted.Render(string(r.Status))
	if r.Status == moderation.StatusPending {
		status = lipgloss.NewStyle().Foreground(t.Warning).Render(string(r.Status))
	}
	head := fmt.Sprintf("%s  %s  %s  %s",
		s.Title.Render(markup.StripControl(r.ReportedUser)),
		s.Text.Render(string(r.Reason)),
		status,
		s.Muted.Render(moderation.TimeAgo(r.Timestamp, now)),
	)
	width := max(10, m.width-4)
	lines := []string{
		head,
		s.Subtle.Render(ansi.Truncate("“"+markup.StripControl(r.MessageContent)+"”", width, "…")),
		s.Muted.Render("Reported by " + markup.StripControl(r.Submitter)),
	}
	if r.Details != "" {
		lines = append(lines, s.Muted.Render(ansi.Truncate(markup.StripControl(r.Details), width, "…")))
	}
	if handled := r.Handled(now); handled != "" {
		lines = append(lines, s.Muted.Render(handled))
	}
	for _, a := range r.Actions {
		lines = append(lines, s.Muted.Render("· "+a))
	}

	box := lipgloss.NewStyle().Width(max(10, m.width-2)).PaddingLeft(1).MarginBottom(1).
		BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).BorderForeground(t.BgBase)
	if selected {
		box = box.BorderForeground(t.Primary)
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) Bindings() []key.Binding {
	if m.searching {
		return []key.Binding{m.keyMap.Clear}
	}
	return []key.Binding{m.keyMap.Up, m.keyMap.Down, m.keyMap.Prev, m.keyMap.Next, m.keyMap.Category,
		m.keyMap.Reason, m.keyMap.Search, m.keyMap.Actions, m.keyMap.Undo, m.keyMap.Refresh}
}
