package app

import (
	"slices"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/feed"
)

// feedView forwards an engine's view calls to the UI as FeedMsg values.
type feedView struct {
	slot    feed.Slot
	publish func(any)
}

var _ feed.View = (*feedView)(nil)

func (v *feedView) Reset() {
	v.publish(FeedMsg{Slot: v.slot, Op: OpReset})
}

func (v *feedView) Placeholder(text string) {
	v.publish(FeedMsg{Slot: v.slot, Op: OpPlaceholder, Text: text})
}

func (v *feedView) Append(rows ...feed.Row) {
	v.publish(FeedMsg{Slot: v.slot, Op: OpAppend, Rows: slices.Clone(rows)})
}

func (v *feedView) UpdateReactions(messageID string, reactions []feed.ReactionCount) {
	v.publish(FeedMsg{Slot: v.slot, Op: OpReactions, MessageID: messageID, Reactions: reactions})
}

func (v *feedView) SetHeader(h chat.Header) {
	v.publish(FeedMsg{Slot: v.slot, Op: OpHeader, Header: h})
}

func (v *feedView) ScrollToBottom() {
	v.publish(FeedMsg{Slot: v.slot, Op: OpScroll})
}
