package chat

import "time"

// GlobalRoom is the id of the single global chat room.
const GlobalRoom = "global"

// Channel identifies one polled source of messages. For social spy the
// Target is the spied username and ID is one of their conversations.
type Channel struct {
	ID     string
	Target string
}

// Global returns the global room channel.
func Global() Channel {
	return Channel{ID: GlobalRoom}
}

func (c Channel) IsZero() bool {
	return c.ID == "" && c.Target == ""
}

func (c Channel) String() string {
	if c.Target != "" {
		return c.Target + "/" + c.ID
	}
	return c.ID
}

type Participant struct {
	ID        string
	Name      string
	HasAvatar bool
	Badge     Badge
}

// Conversation is one entry in a DM or spy conversation list.
type Conversation struct {
	ID           string
	Participant  Participant
	LastMessage  string
	LastActivity time.Time
	Unread       int
}

// Header is the metadata shown above a conversation.
type Header struct {
	Participant Participant
	Status      string
}
