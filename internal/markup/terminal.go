package markup

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

var (
	fenceLangRe = regexp.MustCompile("(?s)```(?:([A-Za-z0-9_+#-]+)\\n)?(.*?)```")
	slotRe      = regexp.MustCompile("\\x00(\\d+)\\x00")
)

// TerminalStyles are the styles applied to inline markup in the terminal.
type TerminalStyles struct {
	Bold   lipgloss.Style
	Italic lipgloss.Style
	Code   lipgloss.Style
	Link   lipgloss.Style
	// CodeTheme is the chroma style for fenced blocks that name a language.
	CodeTheme string
}

func DefaultTerminalStyles() TerminalStyles {
	return TerminalStyles{
		Bold:      lipgloss.NewStyle().Bold(true),
		Italic:    lipgloss.NewStyle().Italic(true),
		Code:      lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Link:      lipgloss.NewStyle().Underline(true),
		CodeTheme: "monokai",
	}
}

// StripControl removes ANSI escape sequences and other control characters
// from untrusted text, keeping newlines and tabs.
func StripControl(text string) string {
	s := ansi.Strip(text)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// RenderTerminal renders the inline subset of the markup for a terminal.
// Untrusted escape sequences are removed before any styling is applied.
// Code is set aside first so emphasis never applies inside it.
func (r *Renderer) RenderTerminal(raw string, st TerminalStyles) string {
	s := StripControl(raw)
	if s == "" {
		return ""
	}

	// StripControl removed every NUL, so \x00 can delimit placeholders.
	var code []string
	park := func(rendered string) string {
		code = append(code, rendered)
		return "\x00" + strconv.Itoa(len(code)-1) + "\x00"
	}
	s = fenceLangRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := fenceLangRe.FindStringSubmatch(m)
		body := strings.Trim(parts[2], "\n")
		if hl, ok := highlight(parts[1], body, st.CodeTheme); ok {
			return park(hl)
		}
		return park(st.Code.Render(body))
	})
	s = codeRe.ReplaceAllStringFunc(s, func(m string) string {
		return park(st.Code.Render(strings.Trim(m, "`")))
	})

	s = boldRe.ReplaceAllStringFunc(s, func(m string) string {
		return st.Bold.Render(boldRe.FindStringSubmatch(m)[1])
	})
	s = italicRe.ReplaceAllStringFunc(s, func(m string) string {
		return st.Italic.Render(italicRe.FindStringSubmatch(m)[1])
	})
	s = linkRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := linkRe.FindStringSubmatch(m)
		if !safeSchemeRe.MatchString(strings.TrimSpace(parts[2])) {
			return parts[1]
		}
		return st.Link.Render(parts[1]) + " (" + parts[2] + ")"
	})

	return slotRe.ReplaceAllStringFunc(s, func(m string) string {
		i, _ := strconv.Atoi(slotRe.FindStringSubmatch(m)[1])
		return code[i]
	})
}

// highlight colors code with chroma when lang names a known lexer.
func highlight(lang, code, theme string) (string, bool) {
	if lang == "" || lexers.Get(lang) == nil {
		return "", false
	}
	if theme == "" {
		theme = "monokai"
	}
	var b strings.Builder
	if err := quick.Highlight(&b, code, lang, "terminal256", theme); err != nil {
		return "", false
	}
	return strings.TrimRight(b.String(), "\n"), true
}
