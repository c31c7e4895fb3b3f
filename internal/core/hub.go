package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/YumYum643/discord-clone/internal/store"
)

// defaultHistoryLimit bounds the history replay sent on join.
const defaultHistoryLimit = 50

// inbound pairs a command with the session that issued it. A nil command is
// the disconnect marker, queued after the session's remaining commands so
// ordering is preserved.
type inbound struct {
	client *Client
	cmd    *Command
}

// Hub is the message gateway: it owns channel membership, runs access
// control on joins, persists sends, and broadcasts each persisted message
// to the sessions currently in its channel.
//
// A single goroutine (Run) consumes all session commands, so for any one
// channel the persist order and the broadcast order are identical.
type Hub struct {
	store        store.Store
	registry     *Registry
	log          *zerolog.Logger
	historyLimit int

	register chan *Client
	inbox    chan inbound
	done     chan struct{}
}

// NewHub creates a hub backed by the given store. historyLimit caps the
// replay sent on join; zero or negative selects the default.
func NewHub(st store.Store, historyLimit int, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Hub{
		store:        st,
		registry:     NewRegistry(),
		log:          logger,
		historyLimit: historyLimit,
		register:     make(chan *Client),
		inbox:        make(chan inbound),
		done:         make(chan struct{}),
	}
}

// RegisterClient attaches a connected session to the hub. The session is
// detached by closing its Commands channel.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Run processes session commands until the context is cancelled. Call it
// exactly once, in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			go h.forward(c)
		case in := <-h.inbox:
			h.handle(ctx, in.client, in.cmd)
		}
	}
}

// forward pumps one session's commands into the hub inbox, then queues the
// disconnect marker once the Commands channel is closed.
func (h *Hub) forward(c *Client) {
	for cmd := range c.Commands {
		select {
		case h.inbox <- inbound{client: c, cmd: cmd}:
		case <-h.done:
			return
		}
	}
	select {
	case h.inbox <- inbound{client: c}:
	case <-h.done:
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	if cmd == nil {
		h.handleDisconnect(c)
		return
	}

	switch cmd.Kind {
	case CommandJoinChannel:
		h.handleJoin(ctx, c, cmd)
	case CommandLeaveChannel:
		h.handleLeave(c, cmd)
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd)
	default:
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

// handleJoin runs access control and, if allowed, moves the session into the
// channel, replays history to it, and announces the join. On denial the
// session keeps its prior membership and only the requester is informed.
func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	ch, err := h.store.GetChannelByID(ctx, cmd.ChannelID)
	if err != nil {
		h.deliver(c, errorEvent(cmd.ChannelID, storeToCore(err, "channel not found")))
		return
	}

	var participants []int64
	if ch.Kind == store.ChannelKindPrivate {
		participants, err = h.store.ListParticipants(ctx, ch.ID)
		if err != nil {
			h.log.Error().Err(err).Int64("channel_id", ch.ID).Msg("list participants")
			h.deliver(c, errorEvent(ch.ID, coreError(ErrCodeStoreUnavailable, "store unavailable")))
			return
		}
	}

	if denial := CanJoin(ch, c.UserID, cmd.Secret, participants); denial != nil {
		h.log.Debug().
			Str("session_id", c.ID).
			Int64("channel_id", ch.ID).
			Str("reason", denial.Code).
			Msg("join denied")
		h.deliver(c, errorEvent(ch.ID, denial))
		return
	}

	prev, moved, already := h.registry.Join(c, ch.ID)
	if already {
		h.deliver(c, &Event{Kind: EventJoined, ChannelID: ch.ID})
		return
	}
	if moved {
		h.broadcast(prev, &Event{Kind: EventUserLeft, ChannelID: prev, User: c.Username})
	}

	h.deliver(c, &Event{Kind: EventJoined, ChannelID: ch.ID})
	h.replayHistory(ctx, c, ch.ID)
	h.broadcast(ch.ID, &Event{Kind: EventUserJoined, ChannelID: ch.ID, User: c.Username})

	h.log.Debug().Str("session_id", c.ID).Int64("channel_id", ch.ID).Msg("session joined channel")
}

func (h *Hub) handleLeave(c *Client, cmd *Command) {
	if !h.registry.Leave(c, cmd.ChannelID) {
		h.deliver(c, errorEvent(cmd.ChannelID, coreError(ErrCodeNotInChannel, "not in channel")))
		return
	}
	h.broadcast(cmd.ChannelID, &Event{Kind: EventUserLeft, ChannelID: cmd.ChannelID, User: c.Username})
}

// handleSend persists the message, then broadcasts it to every session in
// the channel, sender included. On persistence failure only the sender is
// informed and nothing is broadcast.
func (h *Hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	current, ok := h.registry.Channel(c.ID)
	if !ok || (cmd.ChannelID != 0 && cmd.ChannelID != current) {
		h.deliver(c, errorEvent(cmd.ChannelID, coreError(ErrCodeNotInChannel, "not in channel")))
		return
	}

	msg, err := h.store.AppendMessage(ctx, current, c.UserID, cmd.Content)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", c.ID).Int64("channel_id", current).Msg("append message")
		h.deliver(c, errorEvent(current, storeToCore(err, "message rejected")))
		return
	}

	h.broadcast(current, &Event{
		Kind:      EventChannelMessage,
		ChannelID: current,
		Message: Message{
			ID:        msg.ID,
			ChannelID: msg.ChannelID,
			UserID:    msg.UserID,
			Username:  c.Username,
			AvatarURL: c.AvatarURL,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		},
	})
}

func (h *Hub) handleDisconnect(c *Client) {
	channelID, wasMember := h.registry.LeaveAll(c)
	if wasMember {
		h.broadcast(channelID, &Event{Kind: EventUserLeft, ChannelID: channelID, User: c.Username})
	}
	h.log.Debug().Str("session_id", c.ID).Msg("session disconnected")
}

func (h *Hub) replayHistory(ctx context.Context, c *Client, channelID int64) {
	entries, err := h.store.GetHistory(ctx, channelID, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("load history")
		h.deliver(c, errorEvent(channelID, coreError(ErrCodeStoreUnavailable, "history unavailable")))
		return
	}

	messages := make([]Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, Message{
			ID:        e.ID,
			ChannelID: e.ChannelID,
			UserID:    e.UserID,
			Username:  e.Username,
			AvatarURL: e.AvatarURL,
			Content:   e.Content,
			CreatedAt: e.CreatedAt,
		})
	}

	h.deliver(c, &Event{Kind: EventHistory, ChannelID: channelID, Messages: messages})
}

// broadcast sends an event to every session in the channel. Delivery is
// best-effort per member: a slow consumer is dropped without affecting
// delivery to the others.
func (h *Hub) broadcast(channelID int64, ev *Event) {
	for _, member := range h.registry.MembersOf(channelID) {
		h.deliver(member, ev)
	}
}

func (h *Hub) deliver(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("session_id", c.ID).Msg("event dropped for slow session")
	}
}

func errorEvent(channelID int64, cerr *CoreError) *Event {
	return &Event{Kind: EventError, ChannelID: channelID, Error: cerr}
}

// storeToCore maps store sentinels onto the gateway error taxonomy.
func storeToCore(err error, notFoundMsg string) *CoreError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return coreError(ErrCodeChannelNotFound, notFoundMsg)
	case errors.Is(err, store.ErrInvalidInput):
		return coreError(ErrCodeBadRequest, "invalid input")
	default:
		return coreError(ErrCodeStoreUnavailable, "store unavailable")
	}
}
