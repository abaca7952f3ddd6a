package styles

import (
	"image/color"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
	"github.com/chasedut/chatfun/internal/chat"
)

type Theme struct {
	Name   string
	IsDark bool

	Primary   color.Color
	Secondary color.Color
	Accent    color.Color

	BgBase   color.Color
	BgSubtle color.Color

	FgBase      color.Color
	FgMuted     color.Color
	FgHalfMuted color.Color
	FgSelected  color.Color

	Border      color.Color
	BorderFocus color.Color

	Success color.Color
	Warning color.Color
	Error   color.Color
	White   color.Color

	styles *Styles
}

type Styles struct {
	Base     lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Subtle   lipgloss.Style
	Title    lipgloss.Style
	Selected lipgloss.Style
	Own      lipgloss.Style
	Author   lipgloss.Style
	Badges   map[chat.Badge]lipgloss.Style
	TabOn    lipgloss.Style
	TabOff   lipgloss.Style
}

// S returns the derived styles, built on first use.
func (t *Theme) S() *Styles {
	if t.styles == nil {
		t.styles = t.buildStyles()
	}
	return t.styles
}

func (t *Theme) buildStyles() *Styles {
	base := lipgloss.NewStyle().Foreground(t.FgBase)
	return &Styles{
		Base:     base,
		Text:     base,
		Muted:    base.Foreground(t.FgMuted),
		Subtle:   base.Foreground(t.FgHalfMuted),
		Title:    base.Foreground(t.Primary).Bold(true),
		Selected: base.Background(t.BgSubtle).Foreground(t.FgSelected),
		Own:      base.Foreground(t.Secondary).Bold(true),
		Author:   base.Foreground(t.Primary).Bold(true),
		Badges: map[chat.Badge]lipgloss.Style{
			chat.BadgeMod:          base.Foreground(t.Success).Bold(true),
			chat.BadgeAdmin:        base.Foreground(t.Warning).Bold(true),
			chat.BadgeOwner:        base.Foreground(t.Accent).Bold(true),
			chat.BadgeShadowbanned: base.Foreground(t.FgMuted).Italic(true),
		},
		TabOn:  base.Foreground(t.White).Background(t.Primary).Padding(0, 2).Bold(true),
		TabOff: base.Foreground(t.FgMuted).Padding(0, 2),
	}
}

var (
	mu      sync.RWMutex
	current = Dark()
)

// Dark is the default theme, built on the Charm palette.
func Dark() *Theme {
	return &Theme{
		Name:        "dark",
		IsDark:      true,
		Primary:     charmtone.Charple,
		Secondary:   charmtone.Malibu,
		Accent:      charmtone.Dolly,
		BgBase:      charmtone.Pepper,
		BgSubtle:    charmtone.Charcoal,
		FgBase:      charmtone.Ash,
		FgMuted:     charmtone.Squid,
		FgHalfMuted: charmtone.Smoke,
		FgSelected:  charmtone.Butter,
		Border:      charmtone.Iron,
		BorderFocus: charmtone.Charple,
		Success:     charmtone.Guac,
		Warning:     charmtone.Zest,
		Error:       charmtone.Sriracha,
		White:       charmtone.Butter,
	}
}

func Light() *Theme {
	return &Theme{
		Name:        "light",
		Primary:     lipgloss.Color("#5B3FE0"),
		Secondary:   lipgloss.Color("#0F8F80"),
		Accent:      lipgloss.Color("#C2247F"),
		BgBase:      lipgloss.Color("#FAFAFC"),
		BgSubtle:    lipgloss.Color("#E8E6F0"),
		FgBase:      lipgloss.Color("#24212E"),
		FgMuted:     lipgloss.Color("#6F6A80"),
		FgHalfMuted: lipgloss.Color("#4E4A5C"),
		FgSelected:  lipgloss.Color("#000000"),
		Border:      lipgloss.Color("#C9C6D6"),
		BorderFocus: lipgloss.Color("#5B3FE0"),
		Success:     lipgloss.Color("#1E9E57"),
		Warning:     lipgloss.Color("#B07A00"),
		Error:       lipgloss.Color("#D0284A"),
		White:       lipgloss.Color("#FFFFFF"),
	}
}

func CurrentTheme() *Theme {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetTheme switches by settings name. Unknown names fall back to dark.
func SetTheme(name string) {
	t := Dark()
	if name == "light" {
		t = Light()
	}
	mu.Lock()
	current = t
	mu.Unlock()
}
