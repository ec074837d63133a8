package core

import "github.com/lpusphere/sphere-server/internal/store"

// EventKind is a notification the core emits to client sessions.
type EventKind int

const (
	// EventNewMessage delivers a chat message to sessions viewing a room.
	EventNewMessage EventKind = iota
	// EventNotification delivers a toast/unread signal on a personal channel.
	EventNotification
)

// Event is sent to client sessions to describe what happened.
type Event struct {
	Kind         EventKind
	Message      *store.Message // non-nil for EventNewMessage
	Notification *Notification  // non-nil for EventNotification
}

// Notification is the payload raised on a member's personal channel when a
// message lands in a room they are not viewing.
type Notification struct {
	ClassID    string
	ClassName  string
	SenderName string
	Preview    string
	Kind       string // currently always "message"
}
