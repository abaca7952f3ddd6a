package moderation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type Category string

const (
	CategoryAll       Category = "all"
	CategoryPending   Category = "pending"
	CategoryCompleted Category = "completed"
)

// Reason is one of the closed set of report reasons.
type Reason string

const (
	ReasonSpam           Reason = "spam"
	ReasonHarassment     Reason = "harassment"
	ReasonInappropriate  Reason = "inappropriate"
	ReasonMisinformation Reason = "misinformation"
	ReasonCheating       Reason = "cheating"
	ReasonOther          Reason = "other"
)

var Reasons = []Reason{
	ReasonSpam,
	ReasonHarassment,
	ReasonInappropriate,
	ReasonMisinformation,
	ReasonCheating,
	ReasonOther,
}

const (
	PageSize          = 5
	MaxDetailsLength  = 500
	defaultReportPage = 1
)

var (
	ErrUnknownReason   = errors.New("unknown report reason")
	ErrDetailsTooLong  = fmt.Errorf("details must be at most %d characters", MaxDetailsLength)
	ErrMissingMessage  = errors.New("report has no message")
	ErrCannotReportOwn = errors.New("you cannot report your own message")
)

type Report struct {
	ID             string
	ReportedUser   string
	ReportedUserID string
	Submitter      string
	Reason         Reason
	Details        string
	MessageID      string
	MessageContent string
	Timestamp      time.Time
	Status         Status
	Actions        []string
	HandledBy      string
	HandledAt      time.Time
}

// Handled describes who closed a completed report and when, empty for
// pending ones.
func (r Report) Handled(now time.Time) string {
	if r.Status != StatusCompleted || r.HandledBy == "" {
		return ""
	}
	if r.HandledAt.IsZero() {
		return "Handled by " + r.HandledBy
	}
	return fmt.Sprintf("Handled by %s %s", r.HandledBy, humanize.RelTime(r.HandledAt, now, "ago", "from now"))
}

// Query selects a page of reports.
type Query struct {
	Category Category
	Search   string
	Reason   Reason
	Page     int
}

type Page struct {
	Reports    []Report
	Total      int
	Page       int
	TotalPages int
}

func (p Page) HasPrev() bool { return p.Page > 1 }
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// Filter applies category, search and reason filters and sorts newest first.
// The input is not modified.
func Filter(reports []Report, q Query) []Report {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		switch q.Category {
		case CategoryPending:
			if r.Status != StatusPending {
				continue
			}
		case CategoryCompleted:
			if r.Status != StatusCompleted {
				continue
			}
		}
		if needle != "" && !matches(r, needle) {
			continue
		}
		if q.Reason != "" && r.Reason != q.Reason {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Report) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

func matches(r Report, needle string) bool {
	for _, field := range []string{r.ReportedUser, r.Submitter, string(r.Reason), r.MessageContent} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Paginate filters reports and returns the requested page. Out of range
// pages are clamped.
func Paginate(reports []Report, q Query) Page {
	filtered := Filter(reports, q)
	total := len(filtered)
	pages := (total + PageSize - 1) / PageSize
	if pages < 1 {
		pages = 1
	}
	page := q.Page
	if page < defaultReportPage {
		page = defaultReportPage
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * PageSize
	end := min(start+PageSize, total)
	return Page{
		Reports:    filtered[start:end],
		Total:      total,
		Page:       page,
		TotalPages: pages,
	}
}

// EmptyText is shown when a category has nothing to list.
func EmptyText(c Category) string {
	switch c {
	case CategoryPending:
		return "No pending reports"
	case CategoryCompleted:
		return "No completed reports"
	}
	return "No reports found"
}

// TimeAgo renders the coarse age used in the reports list.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	mins := int(d / time.Minute)
	hours := int(d / time.Hour)
	days := int(d / (24 * time.Hour))
	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", days)
}

// Submission is a report about to be sent.
type Submission struct {
	MessageID      string
	ReportedUser   string
	Reason         Reason
	Details        string
	MessageContent string
}

// Validate checks a submission and trims its details in place.
func (s *Submission) Validate() error {
	if s.MessageID == "" {
		return ErrMissingMessage
	}
	if !slices.Contains(Reasons, s.Reason) {
		return fmt.Errorf("%w: %q", ErrUnknownReason, s.Reason)
	}
	s.Details = strings.TrimSpace(s.Details)
	if utf8.RuneCountInString(s.Details) > MaxDetailsLength {
		return ErrDetailsTooLong
	}
	return nil
}

// Complete marks a report handled with the given action summaries.
func Complete(r Report, actions []string, by string, at time.Time) Report {
	r.Status = StatusCompleted
	r.Actions = slices.Clone(actions)
	r.HandledBy = by
	r.HandledAt = at
	return r
}

// Reopen undoes Complete.
func Reopen(r Report) Report {
	r.Status = StatusPending
	r.Actions = nil
	r.HandledBy = ""
	r.HandledAt = time.Time{}
	return r
}
