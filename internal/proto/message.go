package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinPersonal = "joinPersonal"
	InboundTypeJoinRoom     = "joinRoom"
	InboundTypeSendMessage  = "sendMessage"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNewMessage   = "newMessage"
	EventNotification = "notification"
)

// JoinPersonalData asks to bind this connection to the caller's personal
// notification channel. The regNo field is informational; the server binds
// the authenticated identity, never the payload value.
type JoinPersonalData struct {
	RegNo string `json:"regNo,omitempty"`
}

// JoinRoomData subscribes the connection to a class room.
type JoinRoomData struct {
	ClassID string `json:"classId"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	ClassID string `json:"classId"`
	Text    string `json:"text"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload is the newMessage event body on a room channel.
type MessagePayload struct {
	ID          int64  `json:"id"`
	ClassID     string `json:"classId"`
	SenderRegNo string `json:"senderRegNo"`
	SenderName  string `json:"senderName"`
	Text        string `json:"text"`
	CreatedAt   string `json:"createdAt"`
}

// NotificationPayload is the notification event body on a personal channel.
type NotificationPayload struct {
	ClassID    string `json:"classId"`
	ClassName  string `json:"className"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
	Kind       string `json:"type"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
