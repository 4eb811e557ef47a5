package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/libranet/apiserver/internal/store"
	"github.com/libranet/apiserver/types"
	"github.com/rs/zerolog"
)

// Validation and adjudication errors surfaced by the borrow engine.
var (
	ErrInvalidDateRange = errors.New("return date must be after borrow date")
	ErrInactiveAccount  = errors.New("inactive users cannot make borrow requests")
	ErrBookUnavailable  = errors.New("this book is already borrowed for the requested dates")
	ErrDuplicateRequest = errors.New("an identical borrow request already exists for this book")
	ErrInvalidStatus    = errors.New("status must be approved or denied")
	ErrAlreadyDecided   = errors.New("borrow request has already been decided")
)

// Event channels for borrow lifecycle notifications.
const (
	ChannelBorrowRequested = "borrow.requested"
	ChannelBorrowDecided   = "borrow.decided"
)

// BorrowRequestRepository defines persistence operations for borrow requests.
// Create and Decide run their conflict checks inside the same
// transaction as the write.
type BorrowRequestRepository interface {
	Create(ctx context.Context, request types.BorrowRequest) (types.BorrowRequest, error)
	Get(ctx context.Context, id int) (types.BorrowRequest, error)
	ListAll(ctx context.Context) ([]types.BorrowRequest, error)
	ListByUser(ctx context.Context, userID int) ([]types.BorrowRequest, error)
	Decide(ctx context.Context, id int, status types.BorrowStatus, deciderID int) (types.BorrowRequest, error)
}

// EventPublisher publishes borrow lifecycle events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// BorrowService adjudicates borrow requests: it validates submissions,
// detects date-range conflicts, and enforces the pending → approved/denied
// lifecycle.
type BorrowService struct {
	requests  BorrowRequestRepository
	books     BookRepository
	publisher EventPublisher
	logger    zerolog.Logger
}

func NewBorrowService(requests BorrowRequestRepository, books BookRepository, publisher EventPublisher, logger zerolog.Logger) *BorrowService {
	return &BorrowService{
		requests:  requests,
		books:     books,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit validates and persists a new borrow request for the borrower.
// Checks run in order and the first failure wins: date order, account
// active, book exists, no overlap with an approved hold, no identical
// window. The created request is always pending.
func (s *BorrowService) Submit(ctx context.Context, bookID int, borrower types.User, borrowDate, returnDate types.Date) (types.BorrowRequest, error) {
	if borrowDate.IsZero() || returnDate.IsZero() || !returnDate.After(borrowDate) {
		return types.BorrowRequest{}, ErrInvalidDateRange
	}
	if !borrower.Active {
		return types.BorrowRequest{}, ErrInactiveAccount
	}

	if _, err := s.books.Get(ctx, bookID); err != nil {
		return types.BorrowRequest{}, fmt.Errorf("book %d: %w", bookID, err)
	}

	request, err := s.requests.Create(ctx, types.BorrowRequest{
		BookID:     bookID,
		UserID:     borrower.ID,
		BorrowDate: borrowDate,
		ReturnDate: returnDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOverlap):
			return types.BorrowRequest{}, ErrBookUnavailable
		case errors.Is(err, store.ErrDuplicate):
			return types.BorrowRequest{}, ErrDuplicateRequest
		}
		return types.BorrowRequest{}, err
	}

	s.publish(ctx, ChannelBorrowRequested, request)
	return request, nil
}

// Decide transitions a pending request to approved or denied. Deciding
// an already-decided request fails; approval fails if the window now
// overlaps another approved hold on the same book.
func (s *BorrowService) Decide(ctx context.Context, requestID int, decision types.BorrowStatus, decider types.User) (types.BorrowRequest, error) {
	if !decision.Terminal() {
		return types.BorrowRequest{}, ErrInvalidStatus
	}

	request, err := s.requests.Decide(ctx, requestID, decision, decider.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyDecided):
			return types.BorrowRequest{}, ErrAlreadyDecided
		case errors.Is(err, store.ErrOverlap):
			return types.BorrowRequest{}, ErrBookUnavailable
		}
		return types.BorrowRequest{}, err
	}

	s.publish(ctx, ChannelBorrowDecided, request)
	return request, nil
}

// Get returns a single borrow request.
func (s *BorrowService) Get(ctx context.Context, id int) (types.BorrowRequest, error) {
	return s.requests.Get(ctx, id)
}

// ListAll returns every borrow request, for librarian review.
func (s *BorrowService) ListAll(ctx context.Context) ([]types.BorrowRequest, error) {
	return s.requests.ListAll(ctx)
}

// publish sends a lifecycle event when a broker is wired. Failures are
// logged and never fail the request that triggered them.
func (s *BorrowService) publish(ctx context.Context, channel string, request types.BorrowRequest) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(request)
	if err != nil {
		return
	}
	attrs := map[string]string{
		"request_id": strconv.Itoa(request.ID),
		"status":     string(request.Status),
	}
	if _, err := s.publisher.Publish(ctx, channel, data, attrs); err != nil {
		s.logger.Error().Err(err).Str("channel", channel).Int("request_id", request.ID).Msg("publish borrow event")
	}
}
