package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-library/internal/model"
)

func TestBookCreateAttachesCategories(t *testing.T) {
	db := newTestDB(t)
	books := NewBookRepo(db)
	categories := NewCategoryRepo(db)
	ctx := context.Background()

	fiction, err := categories.Create(ctx, "Fiction")
	require.NoError(t, err)
	scifi, err := categories.Create(ctx, "Science Fiction")
	require.NoError(t, err)

	b := &model.Book{
		Name:           "Dune",
		Author:         "Frank Herbert",
		CountAvailable: 3,
		CategoryIDs:    []uint64{fiction.ID, scifi.ID},
	}
	require.NoError(t, books.Create(ctx, b))
	require.NotZero(t, b.ID)

	got, err := books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{fiction.ID, scifi.ID}, got.CategoryIDs)

	// the reverse direction reads from the same association rows
	cat, err := categories.GetByName(ctx, "Fiction")
	require.NoError(t, err)
	assert.Equal(t, []uint64{b.ID}, cat.BookIDs)
}

func TestBookCreateUnknownCategoryWritesNothing(t *testing.T) {
	db := newTestDB(t)
	books := NewBookRepo(db)
	ctx := context.Background()

	b := &model.Book{Name: "Dune", Author: "Frank Herbert", CategoryIDs: []uint64{42}}
	err := books.Create(ctx, b)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	all, err := books.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBookDeleteDetachesCategories(t *testing.T) {
	db := newTestDB(t)
	books := NewBookRepo(db)
	categories := NewCategoryRepo(db)
	ctx := context.Background()

	cat, err := categories.Create(ctx, "Fiction")
	require.NoError(t, err)
	b := &model.Book{Name: "Dune", Author: "Frank Herbert", CategoryIDs: []uint64{cat.ID}}
	require.NoError(t, books.Create(ctx, b))

	require.NoError(t, books.Delete(ctx, b.ID))

	_, err = books.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
	got, err := categories.GetByName(ctx, "Fiction")
	require.NoError(t, err)
	assert.Empty(t, got.BookIDs)

	assert.ErrorIs(t, books.Delete(ctx, b.ID), ErrBookNotFound)
}

func TestBookUpdatePartial(t *testing.T) {
	db := newTestDB(t)
	books := NewBookRepo(db)
	ctx := context.Background()

	b := &model.Book{Name: "Dune", Author: "Frank Herbert", CountAvailable: 3}
	require.NoError(t, books.Create(ctx, b))

	publisher := "Chilton Books"
	count := int64(5)
	require.NoError(t, books.Update(ctx, b.ID, UpdateBookParams{
		Publisher:      &publisher,
		CountAvailable: &count,
	}))

	got, err := books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Name) // untouched
	assert.Equal(t, "Chilton Books", got.Publisher)
	assert.EqualValues(t, 5, got.CountAvailable)

	assert.ErrorIs(t, books.Update(ctx, 9999, UpdateBookParams{Publisher: &publisher}), ErrBookNotFound)
}

func TestCategoryDuplicateName(t *testing.T) {
	db := newTestDB(t)
	categories := NewCategoryRepo(db)
	ctx := context.Background()

	_, err := categories.Create(ctx, "Fiction")
	require.NoError(t, err)
	_, err = categories.Create(ctx, "Fiction")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = categories.GetByName(ctx, "Poetry")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
