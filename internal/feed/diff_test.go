package feed

import (
	"testing"
	"time"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id, content string) chat.Message {
	return chat.Message{
		ID:        id,
		Author:    chat.Author{ID: "u-" + id, Name: "alice"},
		Content:   content,
		Timestamp: t0,
	}
}

func TestHasChangedIdempotent(t *testing.T) {
	list := []chat.Message{msg("1", "hi"), msg("2", "there")}

	assert.False(t, HasChanged(list, list, FeedFields))
	assert.False(t, HasChanged(list, list, ConversationFields))
	assert.False(t, HasChanged(nil, nil, FeedFields))
	assert.False(t, HasChanged(nil, []chat.Message{}, FeedFields))
}

func TestHasChangedFeedFields(t *testing.T) {
	base := []chat.Message{msg("1", "hi"), msg("2", "there")}

	tests := []struct {
		name   string
		mutate func(m *chat.Message)
		want   bool
	}{
		{"content", func(m *chat.Message) { m.Content = "edited" }, true},
		{"author name", func(m *chat.Message) { m.Author.Name = "bob" }, true},
		{"author id", func(m *chat.Message) { m.Author.ID = "other" }, true},
		{"timestamp", func(m *chat.Message) { m.Timestamp = t0.Add(time.Second) }, true},
		{"badge", func(m *chat.Message) { m.Badge = chat.BadgeMod }, true},
		{"avatar", func(m *chat.Message) { m.HasAvatar = true }, true},
		{"reactions ignored", func(m *chat.Message) { m.Reactions = chat.Reactions{"👍": {"u1"}} }, false},
		{"reply ignored", func(m *chat.Message) { m.ReplyTo = &chat.Reply{MessageID: "1"} }, false},
		{"same instant other zone", func(m *chat.Message) { m.Timestamp = t0.In(time.FixedZone("x", 3600)) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := append([]chat.Message(nil), base...)
			tt.mutate(&next[1])
			assert.Equal(t, tt.want, HasChanged(base, next, FeedFields))
		})
	}
}

func TestHasChangedConversationFields(t *testing.T) {
	base := []chat.Message{msg("1", "hi")}

	next := []chat.Message{msg("1", "hi")}
	next[0].Author.Name = "renamed"
	next[0].Timestamp = t0.Add(time.Hour)
	assert.False(t, HasChanged(base, next, ConversationFields))

	next[0].Content = "hi!"
	assert.True(t, HasChanged(base, next, ConversationFields))

	assert.True(t, HasChanged(base, []chat.Message{msg("9", "hi")}, ConversationFields))
}

func TestHasChangedLength(t *testing.T) {
	one := []chat.Message{msg("1", "a")}
	two := []chat.Message{msg("1", "a"), msg("2", "b")}

	assert.True(t, HasChanged(one, two, FeedFields))
	assert.True(t, HasChanged(two, one, ConversationFields))
	assert.True(t, HasChanged(nil, one, FeedFields))
}

func TestHasChangedDoesNotMutate(t *testing.T) {
	prev := []chat.Message{msg("1", "a")}
	next := []chat.Message{msg("1", "b")}

	HasChanged(prev, next, FeedFields)
	assert.Equal(t, "a", prev[0].Content)
	assert.Equal(t, "b", next[0].Content)
}
