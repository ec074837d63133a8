package http

import (
	"errors"

	"github.com/lpusphere/sphere-server/internal/core"
	"github.com/lpusphere/sphere-server/internal/directory"
	"github.com/lpusphere/sphere-server/internal/proto"
	"github.com/lpusphere/sphere-server/internal/store"
)

func messageToProto(msg *store.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:          msg.ID,
		ClassID:     msg.ClassID,
		SenderRegNo: msg.SenderRegNo,
		SenderName:  msg.SenderName,
		Text:        msg.Text,
		CreatedAt:   msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func outboundFromEvent(event core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  messageToProto(event.Message),
		}
	case core.EventNotification:
		n := event.Notification
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNotification,
			Data: proto.NotificationPayload{
				ClassID:    n.ClassID,
				ClassName:  n.ClassName,
				SenderName: n.SenderName,
				Message:    n.Preview,
				Kind:       n.Kind,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

// errorFrame maps a dispatch error onto a protocol error frame.
func errorFrame(err error) proto.Outbound {
	code := core.ErrCodeStorage
	msg := "storage unavailable, retry"

	var storageErr *core.StorageError
	switch {
	case errors.Is(err, core.ErrEmptyMessage):
		code, msg = core.ErrCodeEmptyMessage, "text required"
	case errors.Is(err, directory.ErrClassNotFound):
		code, msg = core.ErrCodeClassNotFound, "class not found"
	case errors.Is(err, core.ErrNotAuthorized):
		code, msg = core.ErrCodeNotAuthorized, "not authorized"
	case errors.As(err, &storageErr):
		// defaults above
	default:
		code, msg = core.ErrCodeBadRequest, "send failed"
	}

	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}
