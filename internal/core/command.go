package core

// CommandKind describes what the session wants to do.
type CommandKind int

const (
	// CommandJoinChannel subscribes the session to a channel, leaving any
	// channel it previously occupied. Joining while in another channel is
	// the channel-switch path.
	CommandJoinChannel CommandKind = iota
	// CommandLeaveChannel unsubscribes the session from a channel.
	CommandLeaveChannel
	// CommandSendMessage persists and broadcasts a chat message.
	CommandSendMessage
)

// Command represents an action requested by a session.
type Command struct {
	Kind      CommandKind
	ChannelID int64
	// Secret is the supplied channel secret on join; ignored otherwise.
	Secret string
	// Content is the message text on send; ignored otherwise.
	Content string
}
