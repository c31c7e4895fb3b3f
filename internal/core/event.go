package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventChannelMessage delivers a persisted chat message to every
	// session currently in the message's channel, sender included.
	EventChannelMessage EventKind = iota
	// EventUserJoined notifies channel members that a user joined.
	EventUserJoined
	// EventUserLeft notifies channel members that a user left.
	EventUserLeft
	// EventHistory replays persisted history to a session upon joining.
	EventHistory
	// EventJoined confirms a successful join to the requesting session.
	EventJoined
	// EventError notifies a single session about a domain error.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind      EventKind
	ChannelID int64
	User      string
	Message   Message
	Messages  []Message // for EventHistory
	Error     *CoreError
}
