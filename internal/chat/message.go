// Package chat holds the client-side domain types shared by the feed engine,
// the API client and the terminal UI.
package chat

import (
	"errors"
	"slices"
	"sort"
	"time"
)

// Badge is the role marker rendered next to an author's name.
type Badge string

const (
	BadgeNone         Badge = ""
	BadgeMod          Badge = "mod"
	BadgeAdmin        Badge = "admin"
	BadgeOwner        Badge = "owner"
	BadgeShadowbanned Badge = "shadowbanned"
)

// ParseBadge maps a server badge string onto the closed badge set. Anything
// unrecognised, including the plain "user" role, renders without a badge.
func ParseBadge(s string) Badge {
	switch Badge(s) {
	case BadgeMod, BadgeAdmin, BadgeOwner, BadgeShadowbanned:
		return Badge(s)
	case "moderator":
		return BadgeMod
	}
	return BadgeNone
}

// Tombstones are the exact content values the server substitutes for a
// deleted message.
var Tombstones = []string{
	"Deleted by sender",
	"Removed by a moderator",
	"Message removed due to message limit",
}

var (
	ErrMissingID     = errors.New("message has no id")
	ErrMissingAuthor = errors.New("message has no author")
)

type Author struct {
	ID   string
	Name string
}

// Reply is a snapshot of the message being replied to, taken at reply time.
type Reply struct {
	MessageID  string
	AuthorName string
	Content    string
}

// Reactions maps an emoji to the ids of the users who reacted with it.
type Reactions map[string][]string

// Emojis returns the reaction keys in a stable order.
func (r Reactions) Emojis() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether userID reacted with emoji.
func (r Reactions) Has(emoji, userID string) bool {
	return slices.Contains(r[emoji], userID)
}

type Message struct {
	ID        string
	Author    Author
	Content   string
	Timestamp time.Time
	Badge     Badge
	HasAvatar bool
	ReplyTo   *Reply
	Reactions Reactions
	// Own is set for messages sent by the local user, or in spy mode by the
	// spied user.
	Own bool
	// Local marks an optimistic echo that the server has not confirmed yet.
	Local bool
}

// Validate reports why a fetched message cannot be rendered.
func (m Message) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.Author.ID == "" && m.Author.Name == "" {
		return ErrMissingAuthor
	}
	return nil
}

// IsDeleted reports whether the content is exactly one of the tombstones.
// Content equality is the only deletion signal the server gives us.
func (m Message) IsDeleted() bool {
	return slices.Contains(Tombstones, m.Content)
}
