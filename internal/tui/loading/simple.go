package loading

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/chasedut/chatfun/internal/tui/styles"
	"github.com/chasedut/chatfun/internal/version"
	"github.com/common-nighthawk/go-figure"
)

// SimpleLoadingScreen is shown while the saved session is checked and the
// global room is joined.
type SimpleLoadingScreen struct {
	width  int
	height int
	frame  int
	theme  *styles.Theme
}

func NewSimple() *SimpleLoadingScreen {
	return &SimpleLoadingScreen{theme: styles.CurrentTheme()}
}

func (l *SimpleLoadingScreen) Init() tea.Cmd {
	return animateSimple()
}

func (l *SimpleLoadingScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.width = msg.Width
		l.height = msg.Height
		return l, nil
	case simpleAnimateMsg:
		l.frame++
		return l, animateSimple()
	}
	return l, nil
}

// wordmark renders the product name in the largest font that fits width.
func wordmark(width int) []string {
	for _, font := range []string{"larry3d", "small"} {
		lines := figure.NewFigure("ChatFun", font, true).Slicify()
		if widest(lines) <= width {
			return lines
		}
	}
	return []string{"ChatFun"}
}

func widest(lines []string) int {
	w := 0
	for _, l := range lines {
		w = max(w, ansi.StringWidth(l))
	}
	return w
}

var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	steps         = []string{
		"Checking your session",
		"Syncing settings",
		"Joining the global room",
	}
)

func (l *SimpleLoadingScreen) View() string {
	if l.width == 0 || l.height == 0 {
		return ""
	}

	spinner := spinnerFrames[l.frame%len(spinnerFrames)]
	step := steps[(l.frame/10)%len(steps)]

	artStyle := lipgloss.NewStyle().Foreground(l.theme.Primary).Bold(true)
	loadingStyle := lipgloss.NewStyle().Foreground(l.theme.FgMuted).MarginTop(2)
	versionStyle := lipgloss.NewStyle().Foreground(l.theme.FgHalfMuted).MarginTop(1)

	var content strings.Builder
	for _, line := range wordmark(l.width - 4) {
		content.WriteString(artStyle.Render(line))
		content.WriteString("\n")
	}
	content.WriteString(loadingStyle.Render(spinner + "  " + step + "…"))
	content.WriteString("\n")
	content.WriteString(versionStyle.Render(version.Version))

	return lipgloss.Place(l.width, l.height, lipgloss.Center, lipgloss.Center, content.String())
}

type simpleAnimateMsg struct{}

func animateSimple() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return simpleAnimateMsg{}
	})
}
