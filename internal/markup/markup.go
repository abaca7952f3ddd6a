// Package markup renders the lightweight chat markup. Raw text is always
// escaped before any markup is interpreted.
package markup

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	h3Re       = regexp.MustCompile(`(?m)^### (.*)$`)
	h2Re       = regexp.MustCompile(`(?m)^## (.*)$`)
	h1Re       = regexp.MustCompile(`(?m)^# (.*)$`)
	boldRe     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe   = regexp.MustCompile(`\*(.*?)\*`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	fenceRe    = regexp.MustCompile("(?s)```(.*?)```")
	codeRe     = regexp.MustCompile("`([^`]+)`")
	taskDoneRe = regexp.MustCompile(`(?mi)^- \[x\] (.*)$`)
	taskOpenRe = regexp.MustCompile(`(?m)^- \[ \] (.*)$`)
	itemRe     = regexp.MustCompile(`(?m)^- (.*)$`)
	listRe     = regexp.MustCompile(`(?s)(<li>.*</li>)`)
	listJoinRe = regexp.MustCompile(`</ul>\s*<ul>`)
	paraRe     = regexp.MustCompile(`\n\s*\n`)
	blockRe    = regexp.MustCompile(`^<(h[1-6]|ul|ol|pre|div)`)

	scriptSchemeRe = regexp.MustCompile(`(?i)javascript\s*:`)
	handlerAttrRe  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	safeSchemeRe   = regexp.MustCompile(`(?i)^(https?:|mailto:)`)
)

// Renderer turns chat markup into sanitized HTML or styled terminal text.
type Renderer struct {
	policy *bluemonday.Policy
}

func New() *Renderer {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "strong", "em", "code", "pre", "ul", "li", "p", "br")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return &Renderer{policy: p}
}

// Escape escapes HTML and removes script schemes and inline event handlers.
func Escape(text string) string {
	if text == "" {
		return ""
	}
	s := html.EscapeString(text)
	s = scriptSchemeRe.ReplaceAllString(s, "")
	s = handlerAttrRe.ReplaceAllString(s, "")
	return s
}

// RenderSafeHTML escapes raw and then applies the markup grammar. The result
// is passed through an allow-list policy, so no raw HTML survives.
func (r *Renderer) RenderSafeHTML(raw string) string {
	s := Escape(raw)
	if s == "" {
		return ""
	}

	s = h3Re.ReplaceAllString(s, "<h3>$1</h3>")
	s = h2Re.ReplaceAllString(s, "<h2>$1</h2>")
	s = h1Re.ReplaceAllString(s, "<h1>$1</h1>")
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	s = linkRe.ReplaceAllStringFunc(s, renderLink)
	s = fenceRe.ReplaceAllString(s, "<pre><code>$1</code></pre>")
	s = codeRe.ReplaceAllString(s, "<code>$1</code>")
	s = taskDoneRe.ReplaceAllString(s, `<li><input type="checkbox" checked disabled> $1</li>`)
	s = taskOpenRe.ReplaceAllString(s, `<li><input type="checkbox" disabled> $1</li>`)
	s = itemRe.ReplaceAllString(s, "<li>$1</li>")
	s = listRe.ReplaceAllString(s, "<ul>$1</ul>")
	s = listJoinRe.ReplaceAllString(s, "")

	paras := paraRe.Split(s, -1)
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if blockRe.MatchString(p) {
			out = append(out, p)
			continue
		}
		out = append(out, "<p>"+strings.ReplaceAll(p, "\n", "<br>")+"</p>")
	}
	return r.policy.Sanitize(strings.Join(out, "\n"))
}

func renderLink(m string) string {
	parts := linkRe.FindStringSubmatch(m)
	text, href := parts[1], strings.TrimSpace(parts[2])
	if !safeSchemeRe.MatchString(href) {
		return text
	}
	return `<a href="` + href + `" target="_blank">` + text + `</a>`
}
