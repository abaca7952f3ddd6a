package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chasedut/chatfun/internal/chat"
)

type conversationList struct {
	Conversations []wireConversation `json:"conversations"`
}

func conversationsPath(target string) string {
	if target != "" {
		return "/socialspy/user/" + url.PathEscape(target) + "/conversations"
	}
	return "/dm/conversations"
}

// ListConversations lists the signed-in user's conversations, or with a
// target the spied user's.
func (c *Client) ListConversations(ctx context.Context, target string) ([]chat.Conversation, error) {
	var out conversationList
	if err := c.get(ctx, conversationsPath(target), nil, &out); err != nil {
		return nil, err
	}
	convs := make([]chat.Conversation, 0, len(out.Conversations))
	for _, w := range out.Conversations {
		convs = append(convs, w.toChat())
	}
	return convs, nil
}

// ConversationHeader returns the participant shown above a conversation.
// Spied conversations have no header endpoint, so the listing is searched.
func (c *Client) ConversationHeader(ctx context.Context, ch chat.Channel) (chat.Header, error) {
	if ch.ID == chat.GlobalRoom {
		return chat.Header{Participant: chat.Participant{Name: "Global chat"}}, nil
	}
	if ch.Target != "" {
		var out conversationList
		if err := c.get(ctx, conversationsPath(ch.Target), nil, &out); err != nil {
			return chat.Header{}, err
		}
		for _, w := range out.Conversations {
			if conv := w.toChat(); conv.ID == ch.ID {
				return chat.Header{Participant: conv.Participant, Status: statusText(w.OtherUser)}, nil
			}
		}
		return chat.Header{}, &Error{Kind: NotFound, Message: "conversation not found"}
	}

	var out wireConversation
	if err := c.get(ctx, "/dm/conversations/"+url.PathEscape(ch.ID), nil, &out); err != nil {
		return chat.Header{}, err
	}
	return chat.Header{Participant: out.OtherUser.participant(), Status: statusText(out.OtherUser)}, nil
}

// StartConversation opens, or returns the existing, conversation with username.
func (c *Client) StartConversation(ctx context.Context, username string) (chat.Conversation, error) {
	var out struct {
		Conversation *wireConversation `json:"conversation"`
		wireConversation
	}
	if err := c.send(ctx, http.MethodPost, "/dm/conversations", map[string]string{"username": username}, &out); err != nil {
		return chat.Conversation{}, err
	}
	if out.Conversation != nil {
		return out.Conversation.toChat(), nil
	}
	return out.wireConversation.toChat(), nil
}

func statusText(u wireUser) string {
	if u.StatusText != "" {
		return u.StatusText
	}
	switch u.Status {
	case "online":
		return "Online"
	case "idle":
		return "Idle"
	}
	return "Offline"
}
