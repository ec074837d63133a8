package core

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/directory"
	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/store/sqlite"
	"github.com/lpusphere/sphere-server/internal/unread"
)

// newTestDispatcher builds a dispatcher over an in-memory store seeded with
// the CSE3A roster: students 12214001, 12214002 and faculty F101.
func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		return sqlite.EnsureSchema(db)
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	users := []struct {
		regNo, name string
		role        store.Role
	}{
		{"F101", "Dr. Rajesh Kumar", store.RoleFaculty},
		{"12214001", "Aarav Sharma", store.RoleStudent},
		{"12214002", "Isha Patel", store.RoleStudent},
	}
	for _, u := range users {
		if _, err := st.CreateUser(ctx, u.regNo, u.name, "hash", u.role); err != nil {
			t.Fatalf("create user %s: %v", u.regNo, err)
		}
	}
	if _, err := st.CreateClass(ctx, "CSE3A", "CSE Year 3 Section A", "K22GE-CSE-122", "F101"); err != nil {
		t.Fatalf("create class: %v", err)
	}
	for _, regNo := range []string{"12214001", "12214002"} {
		if err := st.AddMember(ctx, "CSE3A", regNo); err != nil {
			t.Fatalf("add member %s: %v", regNo, err)
		}
	}

	logger := zerolog.Nop()
	registry := NewRegistry()
	dispatcher := NewDispatcher(
		st,
		directory.New(st),
		registry,
		unread.NewTracker(st),
		&logger,
		2*time.Second,
	)

	return dispatcher, registry, st
}

// mustEvent receives one event of the expected kind or fails the test.
func mustEvent(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()

	select {
	case ev := <-events:
		if ev.Kind != kind {
			t.Fatalf("expected event kind %d, got %d: %+v", kind, ev.Kind, ev)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event kind %d", kind)
		return Event{}
	}
}

// mustNoEvent asserts the session received nothing.
func mustNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}
