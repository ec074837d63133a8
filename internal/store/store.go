package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmptyText is returned when a message body is empty after trimming.
var ErrEmptyText = errors.New("message text is empty")

// Role describes what kind of campus member a user is.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// User represents a campus member identified by registration number.
type User struct {
	RegNo        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Class represents a class-scoped chat room.
// Membership is provisioned externally (seed/roster import) and may change
// between requests; callers must re-read it rather than cache it.
type Class struct {
	ID        string // e.g. "CSE3A"
	Name      string // e.g. "CSE Year 3 Section A"
	Code      string // optional course code, e.g. "K22GE-CSE-122"
	Faculty   string // faculty regNo
	CreatedAt time.Time
}

// Message is a persisted chat message. SenderName is denormalized at write
// time and never re-joined on rename. CreatedAt is server-assigned; together
// with the autoincrement ID it forms the per-class ordering key.
type Message struct {
	ID          int64
	ClassID     string
	SenderRegNo string
	SenderName  string
	Text        string
	CreatedAt   time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a user with a pre-hashed password.
	CreateUser(ctx context.Context, regNo, name, passwordHash string, role Role) (*User, error)

	// GetUserByRegNo retrieves a user by registration number.
	// Returns ErrNotFound if no such user exists.
	GetUserByRegNo(ctx context.Context, regNo string) (*User, error)
}

// ClassStore handles class and roster persistence.
type ClassStore interface {
	// CreateClass creates a class owned by the given faculty member.
	CreateClass(ctx context.Context, id, name, code, facultyRegNo string) (*Class, error)

	// GetClassByID retrieves a class. Returns ErrNotFound if unknown.
	GetClassByID(ctx context.Context, id string) (*Class, error)

	// AddMember adds a student to a class roster. Idempotent.
	AddMember(ctx context.Context, classID, regNo string) error

	// ListMembers lists the regNos on a class roster (faculty excluded).
	ListMembers(ctx context.Context, classID string) ([]string, error)

	// ListClassesForMember lists classes where regNo is on the roster or
	// is the owning faculty member.
	ListClassesForMember(ctx context.Context, regNo string) ([]*Class, error)
}

// MessageStore is the append-only message log. No update or delete.
type MessageStore interface {
	// AppendMessage persists a message atomically, assigning its ID and
	// server timestamp. Returns ErrEmptyText if the body is blank.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessagesSince returns messages for a class in ascending
	// (created_at, id) order. A nil watermark returns the full history.
	// Safe to re-issue with the same watermark.
	ListMessagesSince(ctx context.Context, classID string, after *time.Time) ([]*Message, error)

	// LastMessage returns the newest message in a class, or ErrNotFound
	// when the class has no messages yet.
	LastMessage(ctx context.Context, classID string) (*Message, error)
}

// UnreadStore keeps server-owned per-member, per-class unread counters.
type UnreadStore interface {
	// IncrementUnread adds one to the (regNo, classID) counter.
	IncrementUnread(ctx context.Context, regNo, classID string) error

	// ClearUnread resets the counter to zero.
	ClearUnread(ctx context.Context, regNo, classID string) error

	// UnreadCount returns the counter value (zero when absent).
	UnreadCount(ctx context.Context, regNo, classID string) (int, error)

	// UnreadCounts returns all non-zero counters for a member keyed by
	// class id, consulted on chat-list fetch.
	UnreadCounts(ctx context.Context, regNo string) (map[string]int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ClassStore
	MessageStore
	UnreadStore

	// Close closes the underlying database connection.
	Close() error
}
