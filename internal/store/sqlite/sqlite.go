package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lpusphere/sphere-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and ensures the schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema or fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a user with a pre-hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, regNo, name, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (regno, name, password_hash, role)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, regNo, name, passwordHash, string(role)); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByRegNo(ctx, regNo)
}

// GetUserByRegNo retrieves a user by registration number.
func (s *SQLiteStore) GetUserByRegNo(ctx context.Context, regNo string) (*store.User, error) {
	query := `
		SELECT regno, name, password_hash, role, created_at
		FROM users
		WHERE regno = ?
	`
	var user store.User
	var role string
	err := s.db.QueryRowContext(ctx, query, regNo).Scan(
		&user.RegNo,
		&user.Name,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", regNo, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)

	return &user, nil
}

// ==== ClassStore implementation ====

// CreateClass creates a class owned by the given faculty member.
func (s *SQLiteStore) CreateClass(ctx context.Context, id, name, code, facultyRegNo string) (*store.Class, error) {
	query := `
		INSERT INTO classes (class_id, name, code, faculty_regno)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, name, code, facultyRegNo); err != nil {
		return nil, fmt.Errorf("insert class: %w", err)
	}

	return s.GetClassByID(ctx, id)
}

// GetClassByID retrieves a class by id.
func (s *SQLiteStore) GetClassByID(ctx context.Context, id string) (*store.Class, error) {
	query := `
		SELECT class_id, name, COALESCE(code, ''), faculty_regno, created_at
		FROM classes
		WHERE class_id = ?
	`
	var class store.Class
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&class.ID,
		&class.Name,
		&class.Code,
		&class.Faculty,
		&class.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("class %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query class: %w", err)
	}

	return &class, nil
}

// AddMember adds a student to a class roster. Idempotent.
func (s *SQLiteStore) AddMember(ctx context.Context, classID, regNo string) error {
	query := `
		INSERT OR IGNORE INTO class_members (class_id, regno)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, classID, regNo); err != nil {
		return fmt.Errorf("insert class member: %w", err)
	}

	return nil
}

// ListMembers lists the regNos on a class roster.
func (s *SQLiteStore) ListMembers(ctx context.Context, classID string) ([]string, error) {
	query := `
		SELECT regno FROM class_members
		WHERE class_id = ?
		ORDER BY joined_at ASC, regno ASC
	`
	rows, err := s.db.QueryContext(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var regNo string
		if err := rows.Scan(&regNo); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, regNo)
	}

	return members, rows.Err()
}

// ListClassesForMember lists classes where regNo is enrolled or teaching.
func (s *SQLiteStore) ListClassesForMember(ctx context.Context, regNo string) ([]*store.Class, error) {
	query := `
		SELECT DISTINCT c.class_id, c.name, COALESCE(c.code, ''), c.faculty_regno, c.created_at
		FROM classes c
		LEFT JOIN class_members cm ON c.class_id = cm.class_id
		WHERE cm.regno = ? OR c.faculty_regno = ?
		ORDER BY c.created_at ASC, c.class_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, regNo, regNo)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var classes []*store.Class
	for rows.Next() {
		var class store.Class
		if err := rows.Scan(&class.ID, &class.Name, &class.Code, &class.Faculty, &class.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, &class)
	}

	return classes, rows.Err()
}

// ==== MessageStore implementation ====

// AppendMessage persists a message atomically, assigning ID and timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return store.ErrEmptyText
	}

	createdAt := time.Now().UTC()
	query := `
		INSERT INTO messages (class_id, sender_regno, sender_name, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.ClassID, msg.SenderRegNo, msg.SenderName, msg.Text, createdAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = createdAt
	return nil
}

// ListMessagesSince returns class messages ascending by (created_at, id).
func (s *SQLiteStore) ListMessagesSince(ctx context.Context, classID string, after *time.Time) ([]*store.Message, error) {
	var query string
	var args []any

	if after != nil {
		query = `
			SELECT id, class_id, sender_regno, sender_name, text, created_at
			FROM messages
			WHERE class_id = ? AND created_at > ?
			ORDER BY created_at ASC, id ASC
		`
		args = []any{classID, after.UTC()}
	} else {
		query = `
			SELECT id, class_id, sender_regno, sender_name, text, created_at
			FROM messages
			WHERE class_id = ?
			ORDER BY created_at ASC, id ASC
		`
		args = []any{classID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.ClassID, &msg.SenderRegNo, &msg.SenderName, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// LastMessage returns the newest message in a class.
func (s *SQLiteStore) LastMessage(ctx context.Context, classID string) (*store.Message, error) {
	query := `
		SELECT id, class_id, sender_regno, sender_name, text, created_at
		FROM messages
		WHERE class_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, classID).Scan(
		&msg.ID,
		&msg.ClassID,
		&msg.SenderRegNo,
		&msg.SenderName,
		&msg.Text,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("last message for %q: %w", classID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query last message: %w", err)
	}

	return &msg, nil
}

// ==== UnreadStore implementation ====

// IncrementUnread adds one to the (regNo, classID) counter.
func (s *SQLiteStore) IncrementUnread(ctx context.Context, regNo, classID string) error {
	query := `
		INSERT INTO unread_counts (regno, class_id, count)
		VALUES (?, ?, 1)
		ON CONFLICT (regno, class_id) DO UPDATE SET count = count + 1
	`
	if _, err := s.db.ExecContext(ctx, query, regNo, classID); err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}

	return nil
}

// ClearUnread resets the counter to zero.
func (s *SQLiteStore) ClearUnread(ctx context.Context, regNo, classID string) error {
	query := `
		DELETE FROM unread_counts
		WHERE regno = ? AND class_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, regNo, classID); err != nil {
		return fmt.Errorf("clear unread: %w", err)
	}

	return nil
}

// UnreadCount returns the counter value, zero when no row exists.
func (s *SQLiteStore) UnreadCount(ctx context.Context, regNo, classID string) (int, error) {
	query := `
		SELECT count FROM unread_counts
		WHERE regno = ? AND class_id = ?
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, regNo, classID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query unread count: %w", err)
	}

	return count, nil
}

// UnreadCounts returns all non-zero counters for a member keyed by class id.
func (s *SQLiteStore) UnreadCounts(ctx context.Context, regNo string) (map[string]int, error) {
	query := `
		SELECT class_id, count FROM unread_counts
		WHERE regno = ? AND count > 0
	`
	rows, err := s.db.QueryContext(ctx, query, regNo)
	if err != nil {
		return nil, fmt.Errorf("query unread counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var classID string
		var count int
		if err := rows.Scan(&classID, &count); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[classID] = count
	}

	return counts, rows.Err()
}
