package core

import (
	"time"

	"github.com/google/uuid"
)

// Client is one connected session as seen by the core layer. A session
// belongs to exactly one user and is in at most one channel at a time.
type Client struct {
	// ID identifies the session, not the user; the same user may hold
	// several concurrent sessions.
	ID        string
	UserID    int64
	Username  string
	AvatarURL string

	// Commands carries inbound actions from the transport. Closing it is
	// the disconnect signal: the hub drains remaining commands, then
	// removes the session from every channel.
	Commands chan *Command

	// Events carries outbound notifications to the transport. Delivery is
	// best-effort: a full buffer drops the event for that session only.
	Events chan *Event
}

// NewClient constructs a client session with initialized channels.
func NewClient(userID int64, username, avatarURL string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		AvatarURL: avatarURL,
		Commands:  make(chan *Command, 8),
		Events:    make(chan *Event, 16),
	}
}

// Message is the domain model for a chat message, enriched with the
// author's profile for delivery.
type Message struct {
	ID        int64
	ChannelID int64
	UserID    int64
	Username  string
	AvatarURL string
	Content   string
	CreatedAt time.Time
}
