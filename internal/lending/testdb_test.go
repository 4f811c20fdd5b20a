package lending

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-library/internal/model"
	"github.com/iliyamo/online-library/internal/repository"
)

// testSchema mirrors the production migrations in SQLite dialect.  The
// engine and repositories only use portable SQL, so the tests exercise
// the exact same statements against a temp-file database.
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

// newTestDB opens a temp-file SQLite database loaded with the schema.
// _txlock=immediate makes BeginTx take the write lock up front so
// concurrent transactions queue on the busy timeout instead of failing.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

type testEnv struct {
	db           *sql.DB
	engine       *Engine
	books        *repository.BookRepo
	users        *repository.UserRepo
	transactions *repository.TransactionRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	books := repository.NewBookRepo(db)
	users := repository.NewUserRepo(db)
	transactions := repository.NewTransactionRepo(db)
	return &testEnv{
		db:           db,
		engine:       NewEngine(db, books, users, transactions, 0),
		books:        books,
		users:        users,
		transactions: transactions,
	}
}

// low bcrypt cost keeps the seed helpers fast
const testBcryptCost = 4

func (env *testEnv) seedUser(t *testing.T, fullName, memberID, email string) *model.User {
	t.Helper()
	u, err := env.users.Create(context.Background(), repository.CreateUserParams{
		FullName: fullName,
		MemberID: memberID,
		Email:    email,
		Password: "secret123",
	}, testBcryptCost)
	require.NoError(t, err)
	return u
}

func (env *testEnv) seedBook(t *testing.T, name string, count int64) uint64 {
	t.Helper()
	b := &model.Book{Name: name, Author: "Test Author", CountAvailable: count}
	require.NoError(t, env.books.Create(context.Background(), b))
	return b.ID
}

func (env *testEnv) bookCount(t *testing.T, bookID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.QueryRow(
		`SELECT book_count_available FROM books WHERE id = ?`, bookID).Scan(&n))
	return n
}

func (env *testEnv) lists(t *testing.T, userID uint64) (active, prev []uint64) {
	t.Helper()
	active, prev, err := env.users.Lists(context.Background(), userID)
	require.NoError(t, err)
	return active, prev
}
