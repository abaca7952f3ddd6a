package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chasedut/chatfun/internal/chat"
)

// flexID accepts ids sent as either JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Timestamp accepts ISO strings and unix numbers. Numbers below 1e12 are
// seconds, anything larger is milliseconds. Strings without a zone are UTC.
type Timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*t = Timestamp{}
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				*t = Timestamp(parsed)
				return nil
			}
		}
		return fmt.Errorf("timestamp: unrecognised format %q", s)
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = Timestamp(fromUnix(n))
	return nil
}

func (t Timestamp) Time() time.Time { return time.Time(t) }

func fromUnix(n float64) time.Time {
	if n < 1e12 {
		return time.UnixMilli(int64(n * 1000)).UTC()
	}
	return time.UnixMilli(int64(n)).UTC()
}

type wireUser struct {
	ID         flexID `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	Badge      string `json:"badge"`
	HasAvatar  bool   `json:"has_avatar"`
	Status     string `json:"status"`
	StatusText string `json:"status_text"`
}

func (u wireUser) participant() chat.Participant {
	badge := u.Badge
	if badge == "" {
		badge = u.Role
	}
	return chat.Participant{
		ID:        string(u.ID),
		Name:      u.Username,
		HasAvatar: u.HasAvatar,
		Badge:     chat.ParseBadge(badge),
	}
}

type wireReply struct {
	ID             flexID `json:"id"`
	MessageID      flexID `json:"message_id"`
	SenderUsername string `json:"sender_username"`
	Username       string `json:"username"`
	Content        string `json:"content"`
}

type wireMessage struct {
	ID        flexID              `json:"id"`
	Content   string              `json:"content"`
	Timestamp Timestamp           `json:"timestamp"`
	Sender    *wireUser           `json:"sender"`
	UserID    flexID              `json:"user_id"`
	Username  string              `json:"username"`
	Badge     string              `json:"badge"`
	HasAvatar bool                `json:"has_avatar"`
	ReplyTo   *wireReply          `json:"reply_to"`
	Reactions map[string][]flexID `json:"reactions"`
	IsOwn     bool                `json:"is_own"`
	// IsTargetUser marks, in spy listings, messages sent by the spied user.
	IsTargetUser bool `json:"is_target_user"`
}

// toChat converts one server record. self is the signed-in user id and is
// used when the server omits is_own.
func (w wireMessage) toChat(self string) chat.Message {
	m := chat.Message{
		ID:        string(w.ID),
		Content:   w.Content,
		Timestamp: w.Timestamp.Time(),
		Own:       w.IsOwn || w.IsTargetUser,
	}
	badge := w.Badge
	if w.Sender != nil {
		m.Author = chat.Author{ID: string(w.Sender.ID), Name: w.Sender.Username}
		m.HasAvatar = w.Sender.HasAvatar
		if badge == "" {
			badge = w.Sender.Badge
		}
	} else {
		m.Author = chat.Author{ID: string(w.UserID), Name: w.Username}
		m.HasAvatar = w.HasAvatar
	}
	m.Badge = chat.ParseBadge(badge)
	if !m.Own && self != "" && m.Author.ID == self {
		m.Own = true
	}
	if w.ReplyTo != nil {
		id := w.ReplyTo.MessageID
		if id == "" {
			id = w.ReplyTo.ID
		}
		name := w.ReplyTo.SenderUsername
		if name == "" {
			name = w.ReplyTo.Username
		}
		m.ReplyTo = &chat.Reply{MessageID: string(id), AuthorName: name, Content: w.ReplyTo.Content}
	}
	m.Reactions = toReactions(w.Reactions)
	return m
}

func toReactions(in map[string][]flexID) chat.Reactions {
	if len(in) == 0 {
		return nil
	}
	out := make(chat.Reactions, len(in))
	for emoji, users := range in {
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, string(u))
		}
		out[emoji] = ids
	}
	return out
}

// toMessages decodes each record on its own. Records that fail to decode
// are logged and skipped.
func toMessages(in []json.RawMessage, self string) []chat.Message {
	out := make([]chat.Message, 0, len(in))
	for i, raw := range in {
		var w wireMessage
		if err := json.Unmarshal(raw, &w); err != nil {
			slog.Warn("Skipping malformed message", "index", i, "error", err)
			continue
		}
		out = append(out, w.toChat(self))
	}
	return out
}

type wireConversation struct {
	ConversationID flexID    `json:"conversation_id"`
	ID             flexID    `json:"id"`
	OtherUser      wireUser  `json:"other_user"`
	LastMessage    string    `json:"last_message"`
	LastActivity   Timestamp `json:"last_activity"`
	UpdatedAt      Timestamp `json:"updated_at"`
	UnreadCount    int       `json:"unread_count"`
}

func (w wireConversation) toChat() chat.Conversation {
	id := w.ConversationID
	if id == "" {
		id = w.ID
	}
	last := w.LastActivity.Time()
	if last.IsZero() {
		last = w.UpdatedAt.Time()
	}
	return chat.Conversation{
		ID:           string(id),
		Participant:  w.OtherUser.participant(),
		LastMessage:  w.LastMessage,
		LastActivity: last,
		Unread:       w.UnreadCount,
	}
}
