package app

import (
	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/feed"
	"github.com/chasedut/chatfun/internal/mute"
)

// Requests from the UI. Handle dispatches them.
type (
	SendRequested struct {
		Slot    feed.Slot
		Content string
		ReplyTo *chat.Message
	}

	ChannelSwitchRequested struct {
		Slot    feed.Slot
		Channel chat.Channel
	}

	ReactionToggled struct {
		Slot      feed.Slot
		MessageID string
		Emoji     string
	}
)

// FeedOp is one View call forwarded to the UI.
type FeedOp int

const (
	OpReset FeedOp = iota
	OpPlaceholder
	OpAppend
	OpReactions
	OpHeader
	OpScroll
)

// FeedMsg carries one view mutation for a slot. Messages for a slot arrive
// in the order the engine made the calls.
type FeedMsg struct {
	Slot      feed.Slot
	Op        FeedOp
	Rows      []feed.Row
	Text      string
	MessageID string
	Reactions []feed.ReactionCount
	Header    chat.Header
}

// RenderedMsg follows every render with the messages now on screen.
type RenderedMsg struct {
	Slot     feed.Slot
	Channel  chat.Channel
	Messages []chat.Message
}

type MuteMsg struct {
	mute.Event
}

// SessionExpiredMsg is sent once when the server rejects the credential.
type SessionExpiredMsg struct{}

type LoggedOutMsg struct{}
