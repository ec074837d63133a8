// Package unread keeps the server-owned per-member, per-room unread
// counters. The server is the source of truth; client-side storage is only
// a cache refreshed on chat-list fetch.
package unread

import (
	"context"
	"fmt"

	"github.com/lpusphere/sphere-server/internal/store"
)

// Tracker maintains unread counters for members not viewing a room when a
// message arrives. Counters are unbounded; display capping ("99+") is a
// client concern.
type Tracker struct {
	counters store.UnreadStore
}

// NewTracker creates a tracker over the counter store.
func NewTracker(counters store.UnreadStore) *Tracker {
	return &Tracker{counters: counters}
}

// Increment adds one to the (regNo, classID) counter.
func (t *Tracker) Increment(ctx context.Context, regNo, classID string) error {
	if err := t.counters.IncrementUnread(ctx, regNo, classID); err != nil {
		return fmt.Errorf("increment unread %s/%s: %w", regNo, classID, err)
	}
	return nil
}

// Clear resets the counter when a member enters the room. Callers apply it
// once per viewing-session transition, not per message; a message landing in
// the same instant as entry may or may not be counted, which is acceptable.
func (t *Tracker) Clear(ctx context.Context, regNo, classID string) error {
	if err := t.counters.ClearUnread(ctx, regNo, classID); err != nil {
		return fmt.Errorf("clear unread %s/%s: %w", regNo, classID, err)
	}
	return nil
}

// Count returns the counter for one room.
func (t *Tracker) Count(ctx context.Context, regNo, classID string) (int, error) {
	count, err := t.counters.UnreadCount(ctx, regNo, classID)
	if err != nil {
		return 0, fmt.Errorf("unread count %s/%s: %w", regNo, classID, err)
	}
	return count, nil
}

// CountsFor returns all non-zero counters for a member, keyed by class id.
func (t *Tracker) CountsFor(ctx context.Context, regNo string) (map[string]int, error) {
	counts, err := t.counters.UnreadCounts(ctx, regNo)
	if err != nil {
		return nil, fmt.Errorf("unread counts %s: %w", regNo, err)
	}
	return counts, nil
}
