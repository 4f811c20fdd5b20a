package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// testSchema mirrors the production migrations in SQLite dialect so the
// repositories run the exact same SQL they run in production.
const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_full_name TEXT NOT NULL,
	member_id TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	age INTEGER NOT NULL DEFAULT 0,
	dob TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	mobile_number TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL DEFAULT 0,
	is_admin BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE refresh_tokens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	token_hash TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	revoked_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_name TEXT NOT NULL,
	alternate_title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL,
	book_count_available INTEGER NOT NULL DEFAULT 0,
	language TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category_name TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE book_categories (
	book_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	PRIMARY KEY (book_id, category_id)
);
CREATE TABLE book_transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id INTEGER NOT NULL,
	borrower_id TEXT NOT NULL,
	book_name TEXT NOT NULL,
	borrower_name TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	transaction_status TEXT NOT NULL,
	from_date DATETIME NOT NULL,
	to_date DATETIME NOT NULL,
	return_date DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE user_transactions (
	user_id INTEGER NOT NULL,
	transaction_id INTEGER NOT NULL,
	list TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	UNIQUE (user_id, transaction_id)
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}
