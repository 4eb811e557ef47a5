package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libranet/apiserver/internal/store"
	"github.com/libranet/apiserver/types"
)

type fakeArchive struct {
	key         string
	contentType string
	data        []byte
}

func (a *fakeArchive) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	a.key = key
	a.contentType = contentType
	a.data = data
	return nil
}

func historyFixture(t *testing.T) (*HistoryService, *fakeBorrowRepo, *fakeBookRepo, *fakeUserRepo, *fakeArchive) {
	t.Helper()
	requests := newFakeBorrowRepo()
	books := newFakeBookRepo()
	users := newFakeUserRepo()
	archive := &fakeArchive{}
	return NewHistoryService(requests, books, users, archive), requests, books, users, archive
}

func TestExportCSV(t *testing.T) {
	service, requests, books, _, _ := historyFixture(t)
	ctx := context.Background()

	dune, err := books.Create(ctx, types.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719"})
	require.NoError(t, err)
	// A title with a comma must come back intact after CSV quoting.
	tricky, err := books.Create(ctx, types.Book{Title: "Cooking, Fast and Slow", Author: "A. Chef", ISBN: "9780553283686"})
	require.NoError(t, err)

	first, err := requests.Create(ctx, types.BorrowRequest{
		BookID:     dune.ID,
		UserID:     7,
		BorrowDate: types.NewDate(2024, 1, 1),
		ReturnDate: types.NewDate(2024, 1, 10),
	})
	require.NoError(t, err)
	_, err = requests.Decide(ctx, first.ID, types.StatusApproved, 99)
	require.NoError(t, err)

	_, err = requests.Create(ctx, types.BorrowRequest{
		BookID:     tricky.ID,
		UserID:     7,
		BorrowDate: types.NewDate(2024, 2, 1),
		ReturnDate: types.NewDate(2024, 2, 5),
	})
	require.NoError(t, err)

	// Another patron's request must not leak into the export.
	_, err = requests.Create(ctx, types.BorrowRequest{
		BookID:     dune.ID,
		UserID:     8,
		BorrowDate: types.NewDate(2024, 3, 1),
		ReturnDate: types.NewDate(2024, 3, 10),
	})
	require.NoError(t, err)

	data, err := service.ExportCSV(ctx, 7)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Book Title", "Borrow Date", "Return Date", "Status"}, records[0])
	assert.Equal(t, []string{"Dune", "2024-01-01", "2024-01-10", "approved"}, records[1])
	assert.Equal(t, []string{"Cooking, Fast and Slow", "2024-02-01", "2024-02-05", "pending"}, records[2])
}

func TestExportCSVEmptyHistory(t *testing.T) {
	service, _, _, _, _ := historyFixture(t)

	_, err := service.ExportCSV(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestHistoryForUserRequiresExistingUser(t *testing.T) {
	service, requests, books, users, _ := historyFixture(t)
	ctx := context.Background()

	patron, err := users.Create(ctx, types.User{Username: "alice", Email: "alice@example.com", Active: true})
	require.NoError(t, err)
	book, err := books.Create(ctx, types.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719"})
	require.NoError(t, err)
	_, err = requests.Create(ctx, types.BorrowRequest{
		BookID:     book.ID,
		UserID:     patron.ID,
		BorrowDate: types.NewDate(2024, 1, 1),
		ReturnDate: types.NewDate(2024, 1, 10),
	})
	require.NoError(t, err)

	history, err := service.HistoryForUser(ctx, patron.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = service.HistoryForUser(ctx, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestArchiveExport(t *testing.T) {
	service, requests, books, _, archive := historyFixture(t)
	ctx := context.Background()

	book, err := books.Create(ctx, types.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719"})
	require.NoError(t, err)
	_, err = requests.Create(ctx, types.BorrowRequest{
		BookID:     book.ID,
		UserID:     7,
		BorrowDate: types.NewDate(2024, 1, 1),
		ReturnDate: types.NewDate(2024, 1, 10),
	})
	require.NoError(t, err)

	key, err := service.ArchiveExport(ctx, 7)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "exports/7/"))
	assert.True(t, strings.HasSuffix(key, ".csv"))
	assert.Equal(t, key, archive.key)
	assert.Equal(t, "text/csv", archive.contentType)
	assert.Contains(t, string(archive.data), "Dune")
}

func TestArchiveExportWithoutBackend(t *testing.T) {
	requests := newFakeBorrowRepo()
	books := newFakeBookRepo()
	users := newFakeUserRepo()
	service := NewHistoryService(requests, books, users, nil)

	_, err := service.ArchiveExport(context.Background(), 7)
	assert.ErrorIs(t, err, ErrArchiveUnavailable)
}
