package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chasedut/chatfun/internal/chat"
)

// ErrReadOnly is returned for writes to a spied conversation.
var ErrReadOnly = errors.New("spied conversations are read-only")

// messageList keeps records raw so one malformed message cannot fail the
// whole list.
type messageList struct {
	Messages []json.RawMessage `json:"messages"`
}

type sendRequest struct {
	Content string `json:"content"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

type reactResponse struct {
	Reactions map[string][]flexID `json:"reactions"`
}

func messagesPath(ch chat.Channel) string {
	switch {
	case ch.Target != "":
		return "/socialspy/user/" + url.PathEscape(ch.Target) + "/conversations/" + url.PathEscape(ch.ID) + "/messages"
	case ch.ID == chat.GlobalRoom:
		return "/chat/messages"
	}
	return "/dm/conversations/" + url.PathEscape(ch.ID) + "/messages"
}

func messagePath(ch chat.Channel, id string) string {
	if ch.ID == chat.GlobalRoom || ch.IsZero() {
		return "/chat/messages/" + url.PathEscape(id)
	}
	return "/dm/messages/" + url.PathEscape(id)
}

// ListMessages returns up to limit messages of ch, oldest first.
func (c *Client) ListMessages(ctx context.Context, ch chat.Channel, limit int) ([]chat.Message, error) {
	var params url.Values
	if limit > 0 {
		params = url.Values{}
		params.Set("limit", strconv.Itoa(limit))
	}
	var out messageList
	if err := c.get(ctx, messagesPath(ch), params, &out); err != nil {
		return nil, err
	}
	return toMessages(out.Messages, c.selfID()), nil
}

// SendMessage posts content to ch. replyTo is the id of the message being
// answered, empty for none.
func (c *Client) SendMessage(ctx context.Context, ch chat.Channel, content, replyTo string) (chat.Message, error) {
	if ch.Target != "" {
		return chat.Message{}, ErrReadOnly
	}
	var out struct {
		Message *wireMessage `json:"message"`
		wireMessage
	}
	err := c.send(ctx, http.MethodPost, messagesPath(ch), sendRequest{Content: content, ReplyTo: replyTo}, &out)
	if err != nil {
		return chat.Message{}, err
	}
	w := out.wireMessage
	if out.Message != nil {
		w = *out.Message
	}
	return w.toChat(c.selfID()), nil
}

func (c *Client) DeleteMessage(ctx context.Context, ch chat.Channel, id string) error {
	if ch.Target != "" {
		return ErrReadOnly
	}
	return c.send(ctx, http.MethodDelete, messagePath(ch, id), nil, nil)
}

// React toggles emoji on a message and returns the message's reactions
// after the change.
func (c *Client) React(ctx context.Context, ch chat.Channel, id, emoji string) (chat.Reactions, error) {
	if ch.Target != "" {
		return nil, ErrReadOnly
	}
	var out reactResponse
	if err := c.send(ctx, http.MethodPost, messagePath(ch, id)+"/reactions", reactRequest{Emoji: emoji}, &out); err != nil {
		return nil, err
	}
	return toReactions(out.Reactions), nil
}
