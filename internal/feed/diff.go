// Package feed keeps a rendered message list in step with the server by
// polling. One Engine runs per slot (global chat, direct messages, social
// spy); the three differ only in configuration.
package feed

import "github.com/chasedut/chatfun/internal/chat"

// FieldSet selects which message fields the diff compares.
type FieldSet int

const (
	// FeedFields is used by the global room: identity, author, content,
	// timestamp, badge and avatar flag. Reactions and replies are ignored.
	FeedFields FieldSet = iota
	// ConversationFields is used by DM and spy channels: identity and
	// content only. Reactions are pushed separately.
	ConversationFields
)

// HasChanged reports whether next differs from prev on the fields in set.
// It never mutates either slice.
func HasChanged(prev, next []chat.Message, set FieldSet) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		if !sameFields(prev[i], next[i], set) {
			return true
		}
	}
	return false
}

func sameFields(a, b chat.Message, set FieldSet) bool {
	if a.ID != b.ID || a.Content != b.Content {
		return false
	}
	if set == ConversationFields {
		return true
	}
	return a.Author.Name == b.Author.Name &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.Badge == b.Badge &&
		a.Author.ID == b.Author.ID &&
		a.HasAvatar == b.HasAvatar
}
