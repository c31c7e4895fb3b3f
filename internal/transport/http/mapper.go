package http

import (
	"encoding/json"
	"time"

	"github.com/YumYum643/discord-clone/internal/core"
	"github.com/YumYum643/discord-clone/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.ChannelID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "channel_id is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandJoinChannel,
			ChannelID: join.ChannelID,
			Secret:    join.Secret,
		}, nil, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.ChannelID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "channel_id is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandLeaveChannel,
			ChannelID: leave.ChannelID,
		}, nil, nil
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, nil, err
		}
		if send.ChannelID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "channel_id is required"}, nil
		}
		if send.Content == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "content is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandSendMessage,
			ChannelID: send.ChannelID,
			Content:   send.Content,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventChannelMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveMessage,
			Data:  eventMessage(event.Message),
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data: proto.EventPresence{
				ChannelID: event.ChannelID,
				User:      event.User,
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data: proto.EventPresence{
				ChannelID: event.ChannelID,
				User:      event.User,
			},
		}
	case core.EventJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventJoined,
			Data: proto.EventJoinedData{
				ChannelID: event.ChannelID,
			},
		}
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, eventMessage(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistory,
			Data: proto.EventHistoryData{
				ChannelID: event.ChannelID,
				Messages:  messages,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventMessage(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
