package status

import (
	"time"

	"github.com/charmbracelet/bubbles/v2/help"
	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/tui/util"
)

type StatusCmp interface {
	util.Model
	ToggleFullHelp()
	SetKeyMap(keys help.KeyMap)
}

type statusCmp struct {
	info       util.InfoMsg
	width      int
	messageTTL time.Duration
	// seq invalidates clear ticks scheduled for an older notice.
	seq    int
	help   help.Model
	keyMap help.KeyMap
}

type clearMsg struct{ seq int }

func NewStatusCmp() StatusCmp {
	h := help.New()
	t := styles.CurrentTheme()
	h.Styles.ShortKey = t.S().Muted
	h.Styles.ShortDesc = t.S().Subtle
	h.Styles.FullKey = t.S().Muted
	h.Styles.FullDesc = t.S().Subtle
	return &statusCmp{
		messageTTL: util.SuccessTTL,
		help:       h,
	}
}

func (m *statusCmp) Init() tea.Cmd {
	return nil
}

func (m *statusCmp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case util.InfoMsg:
		m.info = msg
		m.seq++
		ttl := msg.TTL
		if ttl == 0 {
			ttl = m.messageTTL
		}
		seq := m.seq
		return m, tea.Tick(ttl, func(time.Time) tea.Msg { return clearMsg{seq: seq} })
	case clearMsg:
		if msg.seq == m.seq {
			m.info = util.InfoMsg{}
		}
	case util.ClearStatusMsg:
		m.info = util.InfoMsg{}
	}
	return m, nil
}

func (m *statusCmp) View() string {
	t := styles.CurrentTheme()
	if m.info.Msg == "" {
		if m.keyMap == nil {
			return ""
		}
		return t.S().Base.Padding(0, 1).Render(m.help.View(m.keyMap))
	}

	style := t.S().Base.Padding(0, 1).Foreground(t.White)
	switch m.info.Type {
	case util.InfoTypeError:
		style = style.Background(t.Error)
	case util.InfoTypeWarn:
		style = style.Background(t.Warning)
	case util.InfoTypeSuccess:
		style = style.Background(t.Success)
	default:
		style = style.Background(t.Primary)
	}
	text := m.info.Msg
	if m.width > 2 {
		text = ansi.Truncate(text, m.width-2, "…")
	}
	return style.Width(m.width).Render(text)
}

func (m *statusCmp) ToggleFullHelp() {
	m.help.ShowAll = !m.help.ShowAll
}

func (m *statusCmp) SetKeyMap(keys help.KeyMap) {
	m.keyMap = keys
}

// KeyMap adapts a flat binding list to help.KeyMap.
type KeyMap []key.Binding

func (k KeyMap) ShortHelp() []key.Binding  { return k }
func (k KeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k} }
