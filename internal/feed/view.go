package feed

import "github.com/chasedut/chatfun/internal/chat"

// View is the render target for one slot. Calls for a slot are serialized by
// its Engine.
type View interface {
	// Reset removes every rendered row and any placeholder.
	Reset()
	Placeholder(text string)
	Append(rows ...Row)
	// UpdateReactions replaces the reaction strip of one rendered row.
	UpdateReactions(messageID string, reactions []ReactionCount)
	SetHeader(h chat.Header)
	ScrollToBottom()
}

type Row struct {
	ID       string
	AuthorID string
	Author   string
	Badge    chat.Badge
	// Avatar is the picture url, empty for the placeholder.
	Avatar    string
	Body      string
	Time      string
	Deleted   bool
	Own       bool
	Local     bool
	Reply     *ReplyPreview
	Reactions []ReactionCount
}

type ReplyPreview struct {
	Author  string
	Content string
}

type ReactionCount struct {
	Emoji string
	Count int
	Mine  bool
}
