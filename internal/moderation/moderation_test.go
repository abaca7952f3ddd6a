package moderation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 8, 22, 12, 0, 0, 0, time.UTC)

func sampleReports() []Report {
	return []Report{
		{ID: "1", ReportedUser: "user456", Submitter: "user123", Reason: ReasonSpam, MessageContent: "Buy my crypto now!!!", Timestamp: now.Add(-48 * time.Hour), Status: StatusPending},
		{ID: "2", ReportedUser: "toxicuser", Submitter: "user789", Reason: ReasonHarassment, MessageContent: "You are the worst", Timestamp: now.Add(-2 * time.Hour), Status: StatusPending},
		{ID: "3", ReportedUser: "spammer123", Submitter: "user456", Reason: ReasonInappropriate, Timestamp: now.Add(-72 * time.Hour), Status: StatusCompleted, Actions: []string{"Warning: x"}, HandledBy: "mod1"},
		{ID: "4", ReportedUser: "newbie42", Submitter: "user111", Reason: ReasonMisinformation, MessageContent: "flat earth", Timestamp: now.Add(-time.Hour), Status: StatusPending},
	}
}

func ids(rs []Report) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleMod, ParseRole("moderator"))
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleOwner, ParseRole("owner"))
	assert.Equal(t, RoleUser, ParseRole(""))
	assert.Equal(t, RoleUser, ParseRole("superuser"))

	assert.False(t, RoleUser.IsModerator())
	assert.True(t, RoleMod.IsModerator())
	assert.True(t, RoleOwner.IsModerator())
}

func TestForMessage(t *testing.T) {
	tests := []struct {
		role Role
		own  bool
		want MenuPermissions
	}{
		{RoleUser, false, MenuPermissions{Report: true}},
		{RoleUser, true, MenuPermissions{Delete: true}},
		{RoleMod, false, MenuPermissions{Report: true, Delete: true, UserActions: true}},
		{RoleAdmin, true, MenuPermissions{Delete: true}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s own=%v", tt.role, tt.own), func(t *testing.T) {
			assert.Equal(t, tt.want, ForMessage(tt.role, tt.own))
		})
	}
}

func TestForReport(t *testing.T) {
	assert.False(t, ForReport(RoleUser, StatusPending).Any())
	assert.Equal(t, MenuPermissions{UserActions: true}, ForReport(RoleMod, StatusPending))
	assert.Equal(t, MenuPermissions{Undo: true}, ForReport(RoleAdmin, StatusCompleted))
}

func TestFilter(t *testing.T) {
	reports := sampleReports()

	assert.Equal(t, []string{"4", "2", "1", "3"}, ids(Filter(reports, Query{Category: CategoryAll})))
	assert.Equal(t, []string{"4", "2", "1"}, ids(Filter(reports, Query{Category: CategoryPending})))
	assert.Equal(t, []string{"3"}, ids(Filter(reports, Query{Category: CategoryCompleted})))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(reports, Query{Search: "USER456"})))
	assert.Equal(t, []string{"1"}, ids(Filter(reports, Query{Search: "crypto"})))
	assert.Equal(t, []string{"2"}, ids(Filter(reports, Query{Reason: ReasonHarassment})))
	assert.Empty(t, Filter(reports, Query{Category: CategoryCompleted, Reason: ReasonSpam}))

	assert.Equal(t, "1", reports[0].ID, "input order is preserved")
}

func TestPaginate(t *testing.T) {
	var reports []Report
	for i := range 12 {
		reports = append(reports, Report{ID: fmt.Sprint(i), Timestamp: now.Add(-time.Duration(i) * time.Minute), Status: StatusPending})
	}

	p := Paginate(reports, Query{Page: 1})
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, ids(p.Reports))
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 12, p.Total)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = Paginate(reports, Query{Page: 3})
	assert.Equal(t, []string{"10", "11"}, ids(p.Reports))
	assert.False(t, p.HasNext())

	p = Paginate(reports, Query{Page: 99})
	assert.Equal(t, 3, p.Page)

	p = Paginate(nil, Query{Page: 0})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Reports)
}

func TestEmptyText(t *testing.T) {
	assert.Equal(t, "No pending reports", EmptyText(CategoryPending))
	assert.Equal(t, "No completed reports", EmptyText(CategoryCompleted))
	assert.Equal(t, "No reports found", EmptyText(CategoryAll))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "just now", TimeAgo(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", TimeAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "59m ago", TimeAgo(now.Add(-59*time.Minute), now))
	assert.Equal(t, "3h ago", TimeAgo(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", TimeAgo(now.Add(-50*time.Hour), now))
}

func TestSubmissionValidate(t *testing.T) {
	s := Submission{MessageID: "m1", Reason: ReasonSpam, Details: "  spam link  "}
	require.NoError(t, s.Validate())
	assert.Equal(t, "spam link", s.Details)

	s = Submission{MessageID: "m1", Reason: "rude"}
	assert.ErrorIs(t, s.Validate(), ErrUnknownReason)

	s = Submission{MessageID: "m1", Reason: ReasonOther, Details: strings.Repeat("é", MaxDetailsLength)}
	assert.NoError(t, s.Validate())
	s.Details += "x"
	assert.ErrorIs(t, s.Validate(), ErrDetailsTooLong)

	s = Submission{Reason: ReasonSpam}
	assert.ErrorIs(t, s.Validate(), ErrMissingMessage)
}

func TestActionsValidate(t *testing.T) {
	assert.ErrorIs(t, Actions{}.Validate(), ErrNoAction)

	err := Actions{Mute: &Mute{Minutes: 5}, Ban: &Ban{Reason: " "}}.Validate()
	assert.ErrorIs(t, err, ErrMuteReason)
	assert.ErrorIs(t, err, ErrBanReason)

	assert.ErrorIs(t, Actions{Mute: &Mute{Reason: "x"}}.Validate(), ErrInvalidMinutes)
	assert.NoError(t, Actions{Warn: &Warn{Reason: "be nice"}}.Validate())
}

func TestActionsSummary(t *testing.T) {
	a := Actions{
		Mute: &Mute{Minutes: 10, Reason: "spam"},
		Warn: &Warn{Reason: "language"},
		Ban:  &Ban{Reason: "repeat"},
	}
	assert.Equal(t, []string{
		"Muted for 10 minutes: spam",
		"Warning: language",
		"Banned permanently: repeat",
	}, a.Summary())

	a = Actions{Ban: &Ban{Minutes: 1440, Reason: "cool off"}}
	assert.Equal(t, []string{"Banned for 1440 minutes: cool off"}, a.Summary())
}

func TestSelfMuteExpiry(t *testing.T) {
	a := Actions{Mute: &Mute{Minutes: 5, Reason: "test"}}

	at, ok := a.SelfMuteExpiry("me", "me", now)
	require.True(t, ok)
	assert.Equal(t, now.Add(5*time.Minute), at)

	_, ok = a.SelfMuteExpiry("other", "me", now)
	assert.False(t, ok)
	_, ok = Actions{Warn: &Warn{Reason: "x"}}.SelfMuteExpiry("me", "me", now)
	assert.False(t, ok)
}

func TestCompleteAndReopen(t *testing.T) {
	r := sampleReports()[0]
	done := Complete(r, []string{"Warning: x"}, "mod1", now)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "Handled by mod1 2 hours ago", Report{Status: StatusCompleted, HandledBy: "mod1", HandledAt: now.Add(-2 * time.Hour)}.Handled(now))

	back := Reopen(done)
	assert.Equal(t, StatusPending, back.Status)
	assert.Nil(t, back.Actions)
	assert.Empty(t, back.HandledBy)
	assert.Empty(t, back.Handled(now))
}
