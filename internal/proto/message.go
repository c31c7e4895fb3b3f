package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event names follow the socket contract of the original web client.
const (
	InboundTypeJoin  = "join_channel"
	InboundTypeLeave = "leave_channel"
	InboundTypeSend  = "send_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventReceiveMessage = "receive_message"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventHistory        = "history"
	EventJoined         = "joined"
)

// JoinData requests to join a specific channel, optionally with its secret.
type JoinData struct {
	ChannelID int64  `json:"channel_id"`
	Secret    string `json:"secret,omitempty"`
}

// LeaveData requests to leave a channel.
type LeaveData struct {
	ChannelID int64 `json:"channel_id"`
}

// SendData is a chat message from the client.
type SendData struct {
	ChannelID int64  `json:"channel_id"`
	Content   string `json:"content"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a delivered chat message, enriched with the author's
// current username and avatar.
type EventMessage struct {
	ID        int64  `json:"id"`
	ChannelID int64  `json:"channel_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// EventPresence notifies that a user joined or left a channel.
type EventPresence struct {
	ChannelID int64  `json:"channel_id"`
	User      string `json:"user"`
}

// EventHistoryData replays persisted messages to a joining client.
type EventHistoryData struct {
	ChannelID int64          `json:"channel_id"`
	Messages  []EventMessage `json:"messages"`
}

// EventJoinedData confirms a successful channel join.
type EventJoinedData struct {
	ChannelID int64 `json:"channel_id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
