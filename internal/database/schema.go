package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup.  Statements are
// idempotent so restarting the server against an existing database is
// safe.  The two association tables carry the bidirectional relations:
// book_categories for book↔category membership and user_transactions
// for the per-member active/previous transaction lists.  The UNIQUE
// key on user_transactions(user_id, transaction_id) is what makes it
// impossible for a transaction id to sit in both lists at once.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_full_name VARCHAR(255) NOT NULL,
		member_id VARCHAR(64) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		age INT NOT NULL DEFAULT 0,
		dob VARCHAR(32) NOT NULL DEFAULT '',
		gender VARCHAR(32) NOT NULL DEFAULT '',
		address VARCHAR(512) NOT NULL DEFAULT '',
		mobile_number VARCHAR(32) NOT NULL DEFAULT '',
		points INT NOT NULL DEFAULT 0,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		book_name VARCHAR(255) NOT NULL,
		alternate_title VARCHAR(255) NOT NULL DEFAULT '',
		author VARCHAR(255) NOT NULL,
		book_count_available BIGINT NOT NULL DEFAULT 0,
		language VARCHAR(64) NOT NULL DEFAULT '',
		publisher VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		category_name VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_categories_name (category_name)
	)`,
	`CREATE TABLE IF NOT EXISTS book_categories (
		book_id BIGINT UNSIGNED NOT NULL,
		category_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (book_id, category_id),
		CONSTRAINT fk_book_categories_book FOREIGN KEY (book_id) REFERENCES books(id),
		CONSTRAINT fk_book_categories_category FOREIGN KEY (category_id) REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_transactions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		book_id BIGINT UNSIGNED NOT NULL,
		borrower_id VARCHAR(255) NOT NULL,
		book_name VARCHAR(255) NOT NULL,
		borrower_name VARCHAR(255) NOT NULL,
		transaction_type VARCHAR(16) NOT NULL,
		transaction_status VARCHAR(16) NOT NULL,
		from_date DATETIME NOT NULL,
		to_date DATETIME NOT NULL,
		return_date DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_book_transactions_book (book_id),
		KEY idx_book_transactions_pair (book_id, borrower_id, transaction_status),
		CONSTRAINT fk_book_transactions_book FOREIGN KEY (book_id) REFERENCES books(id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_transactions (
		user_id BIGINT UNSIGNED NOT NULL,
		transaction_id BIGINT UNSIGNED NOT NULL,
		list VARCHAR(8) NOT NULL,
		position BIGINT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_user_transactions (user_id, transaction_id),
		KEY idx_user_transactions_list (user_id, list, position),
		CONSTRAINT fk_user_transactions_user FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
