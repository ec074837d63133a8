package http

import (
	"context"
	"database/sql"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/auth"
	"github.com/lpusphere/sphere-server/internal/config"
	"github.com/lpusphere/sphere-server/internal/core"
	"github.com/lpusphere/sphere-server/internal/directory"
	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/store/sqlite"
	"github.com/lpusphere/sphere-server/internal/unread"
)

// testEnv bundles a fully wired server over an in-memory store seeded with
// the CSE3A roster. Passwords equal the regNo.
type testEnv struct {
	store       *sqlite.SQLiteStore
	authService *auth.Service
	registry    *core.Registry
	dispatcher  *core.Dispatcher
	tracker     *unread.Tracker
	handler     stdhttp.Handler
}

func newTestEnv(t *testing.T) *testEnv {
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
		{"99999999", "Dev Outsider", store.RoleStudent},
	}
	for _, u := range users {
		hash, err := auth.HashPassword(u.regNo)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		if _, err := st.CreateUser(ctx, u.regNo, u.name, hash, u.role); err != nil {
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
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := core.NewRegistry()
	tracker := unread.NewTracker(st)
	dir := directory.New(st)
	dispatcher := core.NewDispatcher(st, dir, registry, tracker, &logger, 2*time.Second)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		MessageRateLimit:  100,
	}
	server := NewServer(st, authService, dir, registry, dispatcher, tracker, cfg, &logger)

	return &testEnv{
		store:       st,
		authService: authService,
		registry:    registry,
		dispatcher:  dispatcher,
		tracker:     tracker,
		handler:     server.Handler,
	}
}

// loginToken issues a token for a seeded member.
func loginToken(t *testing.T, env *testEnv, regNo string) string {
	t.Helper()

	token, _, err := env.authService.Login(context.Background(), regNo, regNo)
	if err != nil {
		t.Fatalf("login %s: %v", regNo, err)
	}
	return token
}
