package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
// Every statement is additive and idempotent; existing columns are
// never redefined.
func Migrate(db *sql.DB) error {
	// Timestamps are stored as integer unix milliseconds.
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000)
	);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT NOT NULL PRIMARY KEY,
		author_id TEXT NOT NULL REFERENCES users(id),
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000)
	);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT NOT NULL PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES users(id),
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000)
	);

	-- One like per (user, post) pair, enforced here rather than in
	-- application code so concurrent toggles cannot double-insert.
	CREATE TABLE IF NOT EXISTS likes (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000),
		UNIQUE(user_id, post_id)
	);

	-- Denormalized owner -> post index. The posts table is the source
	-- of truth; rows here are repairable by the reconciler.
	CREATE TABLE IF NOT EXISTS user_posts (
		user_id TEXT NOT NULL REFERENCES users(id),
		post_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (user_id, post_id)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
	CREATE INDEX IF NOT EXISTS idx_likes_post_id ON likes(post_id);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// ToMillis converts a time to the stored unix-millisecond form.
func ToMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// FromMillis converts a stored unix-millisecond value back to a time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// IsUniqueViolation reports whether err is a SQLite unique or primary
// key constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
