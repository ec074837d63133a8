package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/store/sqlite"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		return sqlite.EnsureSchema(db)
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	for _, u := range []struct {
		regNo, name string
		role        store.Role
	}{
		{"F101", "Dr. Rajesh Kumar", store.RoleFaculty},
		{"12214001", "Aarav Sharma", store.RoleStudent},
		{"12214002", "Isha Patel", store.RoleStudent},
	} {
		if _, err := st.CreateUser(ctx, u.regNo, u.name, "hash", u.role); err != nil {
			t.Fatalf("create user %s: %v", u.regNo, err)
		}
	}
	if _, err := st.CreateClass(ctx, "CSE3A", "CSE Year 3 Section A", "K22GE-CSE-122", "F101"); err != nil {
		t.Fatalf("create class: %v", err)
	}
	for _, regNo := range []string{"12214001", "12214002"} {
		if err := st.AddMember(ctx, "CSE3A", regNo); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	return New(st)
}

func TestResolveUnknownClass(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.Resolve(context.Background(), "CSE9Z")
	if !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		regNo string
		want  bool
	}{
		{"roster member", "12214001", true},
		{"owning faculty", "F101", true},
		{"outsider", "99999999", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := dir.Authorize(ctx, tt.regNo, "CSE3A")
			if err != nil {
				t.Fatalf("authorize: %v", err)
			}
			if ok != tt.want {
				t.Errorf("authorize(%s) = %v, want %v", tt.regNo, ok, tt.want)
			}
		})
	}
}

func TestRecipientsExcludeSender(t *testing.T) {
	dir := newTestDirectory(t)

	membership, err := dir.Resolve(context.Background(), "CSE3A")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	recipients := membership.Recipients("12214001")
	want := map[string]bool{"12214002": true, "F101": true}
	if len(recipients) != len(want) {
		t.Fatalf("expected %d recipients, got %v", len(want), recipients)
	}
	for _, regNo := range recipients {
		if !want[regNo] {
			t.Errorf("unexpected recipient %s", regNo)
		}
	}

	// Faculty sending: students only.
	recipients = membership.Recipients("F101")
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients for faculty sender, got %v", recipients)
	}
	for _, regNo := range recipients {
		if regNo == "F101" {
			t.Errorf("faculty sender must not receive their own notification")
		}
	}
}

func TestResolveSeesFreshRoster(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	before, err := dir.Resolve(ctx, "CSE3A")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if before.Authorized("12214007") {
		t.Fatalf("did not expect 12214007 on the roster yet")
	}

	st := dir.classes.(*sqlite.SQLiteStore)
	if _, err := st.CreateUser(ctx, "12214007", "Rohan Gupta", "hash", store.RoleStudent); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := st.AddMember(ctx, "CSE3A", "12214007"); err != nil {
		t.Fatalf("add member: %v", err)
	}

	after, err := dir.Resolve(ctx, "CSE3A")
	if err != nil {
		t.Fatalf("resolve after roster change: %v", err)
	}
	if !after.Authorized("12214007") {
		t.Fatalf("expected fresh resolve to see the new member")
	}
}
