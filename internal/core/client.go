package core

import "github.com/google/uuid"

// eventBuffer bounds the per-session event queue. A session that falls this
// far behind starts dropping events; history reads recover the gap.
const eventBuffer = 32

// Client is a live realtime session as seen by the core layer.
// Room and personal-channel bindings live in the Registry, not here.
type Client struct {
	ID     string
	Events chan Event
}

// NewClient constructs a session with a fresh id and buffered event queue.
func NewClient() *Client {
	return &Client{
		ID:     uuid.NewString(),
		Events: make(chan Event, eventBuffer),
	}
}
