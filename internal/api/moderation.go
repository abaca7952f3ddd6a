package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chasedut/chatfun/internal/moderation"
)

type wireReport struct {
	ID             flexID    `json:"id"`
	ReportedUser   string    `json:"reported_user"`
	ReportedUserID flexID    `json:"reported_user_id"`
	Submitter      string    `json:"submitter"`
	Reason         string    `json:"reason"`
	Description    string    `json:"description"`
	MessageID      flexID    `json:"message_id"`
	MessageContent string    `json:"message_content"`
	Timestamp      Timestamp `json:"timestamp"`
	Status         string    `json:"status"`
	Actions        []string  `json:"actions"`
	HandledBy      string    `json:"handled_by"`
	HandledAt      Timestamp `json:"handled_at"`
}

func (w wireReport) report() moderation.Report {
	status := moderation.StatusPending
	if w.Status == string(moderation.StatusCompleted) {
		status = moderation.StatusCompleted
	}
	return moderation.Report{
		ID:             string(w.ID),
		ReportedUser:   w.ReportedUser,
		ReportedUserID: string(w.ReportedUserID),
		Submitter:      w.Submitter,
		Reason:         moderation.Reason(w.Reason),
		Details:        w.Description,
		MessageID:      string(w.MessageID),
		MessageContent: w.MessageContent,
		Timestamp:      w.Timestamp.Time(),
		Status:         status,
		Actions:        w.Actions,
		HandledBy:      w.HandledBy,
		HandledAt:      w.HandledAt.Time(),
	}
}

// ListReports returns every report visible to the moderator. Filtering and
// paging happen client-side.
func (c *Client) ListReports(ctx context.Context) ([]moderation.Report, error) {
	var out struct {
		Reports []wireReport `json:"reports"`
	}
	if err := c.get(ctx, "/reports", nil, &out); err != nil {
		return nil, err
	}
	reports := make([]moderation.Report, 0, len(out.Reports))
	for _, w := range out.Reports {
		reports = append(reports, w.report())
	}
	return reports, nil
}

func (c *Client) SubmitReport(ctx context.Context, s moderation.Submission) error {
	if err := s.Validate(); err != nil {
		return err
	}
	payload := map[string]string{
		"message_id":      s.MessageID,
		"reported_user":   s.ReportedUser,
		"reason":          string(s.Reason),
		"description":     s.Details,
		"message_content": s.MessageContent,
	}
	return c.send(ctx, http.MethodPost, "/reports", payload, nil)
}

type actionsPayload struct {
	ReportID string         `json:"report_id,omitempty"`
	Mute     map[string]any `json:"mute,omitempty"`
	Warn     map[string]any `json:"warn,omitempty"`
	Ban      map[string]any `json:"ban,omitempty"`
}

// ApplyActions applies the user actions form to username. reportID links the
// actions to a report, empty when acting from a chat message.
func (c *Client) ApplyActions(ctx context.Context, username, reportID string, a moderation.Actions) error {
	if err := a.Validate(); err != nil {
		return err
	}
	p := actionsPayload{ReportID: reportID}
	if a.Mute != nil {
		p.Mute = map[string]any{"duration": a.Mute.Minutes, "reason": a.Mute.Reason}
	}
	if a.Warn != nil {
		p.Warn = map[string]any{"reason": a.Warn.Reason}
	}
	if a.Ban != nil {
		p.Ban = map[string]any{"duration": a.Ban.Minutes, "reason": a.Ban.Reason}
	}
	return c.send(ctx, http.MethodPost, "/moderation/users/"+url.PathEscape(username)+"/actions", p, nil)
}

// UndoReport reverts the actions recorded on a completed report.
func (c *Client) UndoReport(ctx context.Context, reportID string) error {
	return c.send(ctx, http.MethodPost, "/reports/"+url.PathEscape(reportID)+"/undo", nil, nil)
}
