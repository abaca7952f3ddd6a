package reports

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(m *Model, code rune, text string) tea.Msg {
	_, cmd := m.Update(tea.KeyPressMsg{Code: code, Text: text})
	if cmd == nil {
		return nil
	}
	return cmd()
}

func fixture(now time.Time) []moderation.Report {
	var out []moderation.Report
	for i := range 7 {
		out = append(out, moderation.Report{
			ID:           fmt.Sprintf("p%d", i),
			ReportedUser: "bob",
			Submitter:    "alice",
			Reason:       moderation.ReasonSpam,
			Timestamp:    now.Add(-time.Duration(i) * time.Minute),
			Status:       moderation.StatusPending,
		})
	}
	return append(out, moderation.Report{
		ID:           "c0",
		ReportedUser: "eve",
		Reason:       moderation.ReasonHarassment,
		Timestamp:    now.Add(-time.Hour),
		Status:       moderation.StatusCompleted,
		HandledBy:    "mod1",
		HandledAt:    now.Add(-30 * time.Minute),
	})
}

func newLoaded(t *testing.T, role moderation.Role) *Model {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := New()
	m.now = func() time.Time { return now }
	m.SetRole(role)
	m.SetSize(80, 40)
	m.Update(LoadedMsg{Reports: fixture(now)})
	return m
}

func TestPendingFirstPage(t *testing.T) {
	m := newLoaded(t, moderation.RoleMod)
	require.Equal(t, 7, m.page.Total)
	assert.Equal(t, 2, m.page.TotalPages)
	require.Len(t, m.page.Reports, moderation.PageSize)
	assert.Equal(t, "p0", m.page.Reports[0].ID)
	assert.Contains(t, m.View(), "Page 1 of 2")

	press(m, tea.KeyRight, "")
	assert.Equal(t, 2, m.page.Page)
	assert.Len(t, m.page.Reports, 2)
}

func TestCategoryCycleAndUndo(t *testing.T) {
	m := newLoaded(t, moderation.RoleMod)

	press(m, 'c', "c")
	assert.Equal(t, moderation.CategoryCompleted, m.query.Category)
	require.Len(t, m.page.Reports, 1)

	msg := press(m, 'u', "u")
	assert.Equal(t, UndoMsg{ReportID: "c0"}, msg)

	// Completed reports offer no user actions.
	assert.Nil(t, press(m, 'a', "a"))
}

func TestUserRoleGetsNoMenu(t *testing.T) {
	m := newLoaded(t, moderation.RoleUser)
	assert.Nil(t, press(m, 'a', "a"))
	press(m, 'c', "c")
	assert.Nil(t, press(m, 'u', "u"))
}

func TestMarkCompletedMovesReport(t *testing.T) {
	m := newLoaded(t, moderation.RoleMod)
	m.MarkCompleted("p0", []string{"Warning: spam"}, "me")
	assert.Equal(t, 6, m.page.Total)

	m.MarkReopened("c0")
	assert.Equal(t, 7, m.page.Total)
}

func TestLoadErrorReports(t *testing.T) {
	m := New()
	_, cmd := m.Update(LoadedMsg{Err: assert.AnError})
	require.NotNil(t, cmd)
	assert.False(t, m.loaded)
}
