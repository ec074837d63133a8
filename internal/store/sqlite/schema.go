package sqlite

import "database/sql"

// Schema is the full database layout. Applied with IF NOT EXISTS on startup;
// there is no migration tooling, the layout is considered stable.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	regno         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('student', 'faculty')),
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS classes (
	class_id      TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	code          TEXT,
	faculty_regno TEXT NOT NULL REFERENCES users(regno),
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS class_members (
	class_id  TEXT NOT NULL REFERENCES classes(class_id),
	regno     TEXT NOT NULL REFERENCES users(regno),
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (class_id, regno)
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	class_id     TEXT NOT NULL REFERENCES classes(class_id),
	sender_regno TEXT NOT NULL,
	sender_name  TEXT NOT NULL,
	text         TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_class ON messages(class_id, created_at, id);

CREATE TABLE IF NOT EXISTS unread_counts (
	regno    TEXT NOT NULL,
	class_id TEXT NOT NULL,
	count    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (regno, class_id)
);

CREATE INDEX IF NOT EXISTS idx_class_members_regno ON class_members(regno);
`

// EnsureSchema applies the schema to an open database.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
