package http

import (
	"time"

	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func protoMessage(code string, msg core.ChatMessage) proto.ChatMessage {
	return proto.ChatMessage{
		RoomCode:  code,
		Username:  msg.Username,
		Content:   msg.Content,
		Type:      string(msg.Type),
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func outboundMessage(code string, msg core.ChatMessage) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventMessage,
		Data:  protoMessage(code, msg),
	}
}

func outboundHistory(code string, history []core.ChatMessage) proto.Outbound {
	messages := make([]proto.ChatMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, protoMessage(code, msg))
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventHistory,
		Data: proto.History{
			RoomCode: code,
			Messages: messages,
		},
	}
}

func outboundJoined(room *core.Room, username, sessionID string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventJoined,
		Data: proto.Joined{
			RoomCode:  room.Code(),
			HostName:  room.HostName(),
			Username:  username,
			SessionID: sessionID,
		},
	}
}

func outboundError(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

func outboundCoreError(err error) proto.Outbound {
	ce := core.AsCoreError(err)
	return outboundError(ce.Code, ce.Message)
}
