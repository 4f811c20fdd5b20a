package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-library/internal/utils"
)

const testBcryptCost = 4

func TestUserCreateRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	_, err := users.Create(ctx, CreateUserParams{
		FullName: "Ada Test", MemberID: "M-100", Email: "Ada@Example.com", Password: "secret123",
	}, testBcryptCost)
	require.NoError(t, err)

	_, err = users.Create(ctx, CreateUserParams{
		FullName: "Copy Cat", Email: "ada@example.com", Password: "secret123",
	}, testBcryptCost)
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = users.Create(ctx, CreateUserParams{
		FullName: "Copy Cat", MemberID: "M-100", Email: "other@example.com", Password: "secret123",
	}, testBcryptCost)
	assert.ErrorIs(t, err, ErrMemberIDExists)

	// email lookups are case-insensitive via normalization
	u, err := users.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada Test", u.FullName)
}

func TestUserUpdateRehashesPassword(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	u, err := users.Create(ctx, CreateUserParams{
		FullName: "Ada Test", Email: "ada@example.com", Password: "oldpass1",
	}, testBcryptCost)
	require.NoError(t, err)

	newPass := "newpass1"
	age := 30
	require.NoError(t, users.Update(ctx, u.ID, UpdateUserParams{Password: &newPass, Age: &age}, testBcryptCost))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Age)
	assert.True(t, utils.VerifyPassword(got.PasswordHash, "newpass1"))
	assert.False(t, utils.VerifyPassword(got.PasswordHash, "oldpass1"))

	assert.ErrorIs(t, users.Update(ctx, 9999, UpdateUserParams{Age: &age}, testBcryptCost), ErrUserNotFound)
}

func TestUserListMoves(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	u, err := users.Create(ctx, CreateUserParams{
		FullName: "Ada Test", Email: "ada@example.com", Password: "secret123",
	}, testBcryptCost)
	require.NoError(t, err)

	appendActive := func(txID uint64) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, users.AppendActiveTx(ctx, tx, u.ID, txID))
		require.NoError(t, tx.Commit())
	}
	appendActive(11)
	appendActive(12)

	active, prev, err := users.Lists(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, active)
	assert.Empty(t, prev)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	moved, err := users.MoveToPrevTx(ctx, tx, u.ID, 11)
	require.NoError(t, err)
	assert.True(t, moved)
	// moving an id that is not in the active list reports false
	moved, err = users.MoveToPrevTx(ctx, tx, u.ID, 11)
	require.NoError(t, err)
	assert.False(t, moved)
	require.NoError(t, tx.Commit())

	active, prev, err = users.Lists(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{12}, active)
	assert.Equal(t, []uint64{11}, prev)
}

func TestTokenRepoLifecycle(t *testing.T) {
	db := newTestDB(t)
	tokens := NewTokenRepo(db)
	ctx := context.Background()

	hash := utils.HashRefreshRaw("raw-token")
	require.NoError(t, tokens.StoreRefresh(ctx, 7, hash, time.Now().UTC().Add(time.Hour)))

	uid, err := tokens.ValidateRefresh(ctx, hash)
	require.NoError(t, err)
	assert.EqualValues(t, 7, uid)

	require.NoError(t, tokens.RevokeByHash(ctx, hash))
	_, err = tokens.ValidateRefresh(ctx, hash)
	assert.Error(t, err)

	expired := utils.HashRefreshRaw("expired-token")
	require.NoError(t, tokens.StoreRefresh(ctx, 7, expired, time.Now().UTC().Add(-time.Hour)))
	_, err = tokens.ValidateRefresh(ctx, expired)
	assert.Error(t, err)
}
