package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/online-library/internal/model"
	"github.com/iliyamo/online-library/internal/utils"
)

// UserRepo provides persistence for library members and their two
// transaction-id lists.  The lists live in the user_transactions
// association table; a UNIQUE(user_id, transaction_id) constraint plus
// the single MoveToPrevTx code path guarantee a transaction id is in
// exactly one list at any time.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateUserParams carries the fields accepted at signup.  Optional
// fields may be left zero.
type CreateUserParams struct {
	FullName     string
	MemberID     string
	Email        string
	Password     string
	Age          int
	DOB          string
	Gender       string
	Address      string
	MobileNumber string
	IsAdmin      bool
}

// Create inserts a user, hashing the password with the given bcrypt
// cost.  Duplicate emails yield ErrEmailExists and duplicate member
// ids yield ErrMemberIDExists.
func (r *UserRepo) Create(ctx context.Context, p CreateUserParams, cost int) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	memberID := strings.TrimSpace(p.MemberID)

	var n int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrEmailExists
	}
	if memberID != "" {
		if err := r.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE member_id = ?`, memberID).Scan(&n); err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrMemberIDExists
		}
	}

	hash, err := utils.HashPassword(p.Password, cost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (user_full_name, member_id, email, password_hash, age, dob, gender, address, mobile_number, points, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.FullName, memberID, email, hash, p.Age, p.DOB, p.Gender, p.Address, p.MobileNumber, p.IsAdmin, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:                 uint64(id),
		FullName:           p.FullName,
		MemberID:           memberID,
		Email:              email,
		PasswordHash:       hash,
		Age:                p.Age,
		DOB:                p.DOB,
		Gender:             p.Gender,
		Address:            p.Address,
		MobileNumber:       p.MobileNumber,
		IsAdmin:            p.IsAdmin,
		ActiveTransactions: []uint64{},
		PrevTransactions:   []uint64{},
		CreatedAt:          now,
	}, nil
}

const userColumns = `id, user_full_name, member_id, email, password_hash, age, dob, gender, address, mobile_number, points, is_admin, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.MemberID, &u.Email, &u.PasswordHash,
		&u.Age, &u.DOB, &u.Gender, &u.Address, &u.MobileNumber, &u.Points, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email without transaction lists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by primary key without transaction lists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetWithTransactions fetches a user with both transaction-id lists
// populated in list order.
func (r *UserRepo) GetWithTransactions(ctx context.Context, id uint64) (*model.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.ActiveTransactions, u.PrevTransactions, err = r.Lists(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Lists returns the active and previous transaction ids of a user in
// append order.
func (r *UserRepo) Lists(ctx context.Context, userID uint64) (active, prev []uint64, err error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT transaction_id, list FROM user_transactions WHERE user_id = ? ORDER BY position, transaction_id`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	active = make([]uint64, 0)
	prev = make([]uint64, 0)
	for rows.Next() {
		var id uint64
		var list string
		if err := rows.Scan(&id, &list); err != nil {
			return nil, nil, err
		}
		if list == "prev" {
			prev = append(prev, id)
		} else {
			active = append(active, id)
		}
	}
	return active, prev, rows.Err()
}

// ListAll returns all users newest first, without transaction lists.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ResolveBorrowerTx resolves an external borrower identifier inside an
// existing transaction: member id lookup first, email as fallback.
// The resolution is total; when neither matches, ErrUserNotFound is
// returned.
func (r *UserRepo) ResolveBorrowerTx(ctx context.Context, tx *sql.Tx, borrowerID string) (*model.User, error) {
	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE member_id = ? AND member_id <> '' LIMIT 1`, borrowerID))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	u, err = scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, strings.ToLower(strings.TrimSpace(borrowerID))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByIDTx fetches a user by primary key inside an existing transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.User, error) {
	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// AppendActiveTx appends a transaction id to the user's active list.
// The UNIQUE(user_id, transaction_id) constraint rejects a second
// insert of the same id.
func (r *UserRepo) AppendActiveTx(ctx context.Context, tx *sql.Tx, userID, transactionID uint64) error {
	pos, err := r.nextPositionTx(ctx, tx, userID, "active")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_transactions (user_id, transaction_id, list, position) VALUES (?, ?, 'active', ?)`,
		userID, transactionID, pos)
	return err
}

// MoveToPrevTx moves a transaction id from the user's active list to
// the previous list in one UPDATE, so the id can never be observed in
// both lists or in neither.  The boolean result reports whether the id
// was actually in the active list.
func (r *UserRepo) MoveToPrevTx(ctx context.Context, tx *sql.Tx, userID, transactionID uint64) (bool, error) {
	pos, err := r.nextPositionTx(ctx, tx, userID, "prev")
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE user_transactions SET list = 'prev', position = ?
		 WHERE user_id = ? AND transaction_id = ? AND list = 'active'`,
		pos, userID, transactionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RemoveFromListsTx drops a transaction id from whichever list holds
// it.  Used by the raw admin delete path so a removed transaction does
// not linger as a dangling reference.
func (r *UserRepo) RemoveFromListsTx(ctx context.Context, tx *sql.Tx, transactionID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM user_transactions WHERE transaction_id = ?`, transactionID)
	return err
}

func (r *UserRepo) nextPositionTx(ctx context.Context, tx *sql.Tx, userID uint64, list string) (int64, error) {
	var pos int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM user_transactions WHERE user_id = ? AND list = ?`,
		userID, list).Scan(&pos)
	return pos, err
}

// UpdateUserParams carries the optional fields of a profile edit.  Nil
// fields are left untouched.  Password, when set, is re-hashed by
// Update.
type UpdateUserParams struct {
	FullName     *string
	Age          *int
	DOB          *string
	Gender       *string
	Address      *string
	MobileNumber *string
	Password     *string
}

// Update applies a profile edit.  It returns ErrUserNotFound when the
// id does not exist and is a no-op when no fields are set.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UpdateUserParams, cost int) error {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.FullName != nil {
		add("user_full_name", *p.FullName)
	}
	if p.Age != nil {
		add("age", *p.Age)
	}
	if p.DOB != nil {
		add("dob", *p.DOB)
	}
	if p.Gender != nil {
		add("gender", *p.Gender)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.MobileNumber != nil {
		add("mobile_number", *p.MobileNumber)
	}
	if p.Password != nil {
		hash, err := utils.HashPassword(*p.Password, cost)
		if err != nil {
			return err
		}
		add("password_hash", hash)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user and their transaction-id list entries.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_transactions WHERE user_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
