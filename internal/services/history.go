package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/libranet/apiserver/types"
)

// History errors surfaced to the API boundary.
var (
	// ErrNoHistory is returned when a patron with no borrow requests
	// asks for an export. The endpoint answers 404 rather than
	// producing an empty file.
	ErrNoHistory = errors.New("no borrow history")

	// ErrArchiveUnavailable is returned when export archival is
	// requested but no object storage backend is configured.
	ErrArchiveUnavailable = errors.New("archive storage not configured")
)

// exportHeader is the CSV header row of a borrow history export.
var exportHeader = []string{"Book Title", "Borrow Date", "Return Date", "Status"}

// ExportArchive stores rendered history exports durably.
type ExportArchive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// HistoryService filters borrow requests by owner and renders them as
// a structured list or CSV.
type HistoryService struct {
	requests BorrowRequestRepository
	books    BookRepository
	users    UserRepository
	archive  ExportArchive
}

// NewHistoryService constructs a HistoryService. archive may be nil
// when export archival is not configured.
func NewHistoryService(requests BorrowRequestRepository, books BookRepository, users UserRepository, archive ExportArchive) *HistoryService {
	return &HistoryService{
		requests: requests,
		books:    books,
		users:    users,
		archive:  archive,
	}
}

// HistoryFor returns the user's borrow requests in id order.
func (s *HistoryService) HistoryFor(ctx context.Context, userID int) ([]types.BorrowRequest, error) {
	return s.requests.ListByUser(ctx, userID)
}

// HistoryForUser returns another user's borrow requests. The target
// user must exist; the librarian gate is enforced by the router.
func (s *HistoryService) HistoryForUser(ctx context.Context, targetUserID int) ([]types.BorrowRequest, error) {
	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		return nil, fmt.Errorf("user %d: %w", targetUserID, err)
	}
	return s.requests.ListByUser(ctx, targetUserID)
}

// ExportCSV renders the user's borrow history as UTF-8 CSV with the
// header "Book Title, Borrow Date, Return Date, Status". An empty
// history yields ErrNoHistory, never an empty file.
func (s *HistoryService) ExportCSV(ctx context.Context, userID int) ([]byte, error) {
	requests, err := s.requests.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, ErrNoHistory
	}

	titles := make(map[int]string)
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, request := range requests {
		title, ok := titles[request.BookID]
		if !ok {
			book, err := s.books.Get(ctx, request.BookID)
			if err != nil {
				return nil, fmt.Errorf("book %d: %w", request.BookID, err)
			}
			title = book.Title
			titles[request.BookID] = title
		}
		record := []string{
			title,
			request.BorrowDate.String(),
			request.ReturnDate.String(),
			string(request.Status),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArchiveExport renders the user's history export and stores it in
// object storage. It returns the object key of the stored snapshot.
func (s *HistoryService) ArchiveExport(ctx context.Context, userID int) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveUnavailable
	}

	data, err := s.ExportCSV(ctx, userID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/%d/%s.csv", userID, uuid.NewString())
	if err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		return "", fmt.Errorf("archive export: %w", err)
	}
	return key, nil
}
