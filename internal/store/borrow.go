package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/libranet/apiserver/types"
)

// BorrowRequestRepository handles persistence for borrow requests.
type BorrowRequestRepository struct {
	db *sql.DB
}

func NewBorrowRequestRepository(db *sql.DB) *BorrowRequestRepository {
	return &BorrowRequestRepository{db: db}
}

const borrowColumns = `id, book_id, user_id, borrow_date, return_date, status, decided_by, created_at, updated_at`

// Create validates the request against approved holds and existing
// windows and inserts it, all inside one transaction. The database
// constraints repeat both checks, so a concurrent writer cannot slip a
// conflicting row between check and insert.
func (r *BorrowRequestRepository) Create(ctx context.Context, request types.BorrowRequest) (types.BorrowRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.BorrowRequest{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const overlapQuery = `
		SELECT EXISTS (
			SELECT 1
			FROM borrow_requests
			WHERE book_id = $1
			  AND status = 'approved'
			  AND borrow_date < $3
			  AND return_date > $2
		)`
	var overlaps bool
	if err := tx.QueryRowContext(ctx, overlapQuery, request.BookID, request.BorrowDate, request.ReturnDate).Scan(&overlaps); err != nil {
		return types.BorrowRequest{}, err
	}
	if overlaps {
		return types.BorrowRequest{}, ErrOverlap
	}

	const duplicateQuery = `
		SELECT EXISTS (
			SELECT 1
			FROM borrow_requests
			WHERE book_id = $1
			  AND borrow_date = $2
			  AND return_date = $3
		)`
	var duplicate bool
	if err := tx.QueryRowContext(ctx, duplicateQuery, request.BookID, request.BorrowDate, request.ReturnDate).Scan(&duplicate); err != nil {
		return types.BorrowRequest{}, err
	}
	if duplicate {
		return types.BorrowRequest{}, ErrDuplicate
	}

	now := time.Now()
	request.Status = types.StatusPending
	request.DecidedBy = nil
	request.CreatedAt = now
	request.UpdatedAt = now

	const insertQuery = `
		INSERT INTO borrow_requests (book_id, user_id, borrow_date, return_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertQuery,
		request.BookID,
		request.UserID,
		request.BorrowDate,
		request.ReturnDate,
		request.Status,
		request.CreatedAt,
		request.UpdatedAt,
	).Scan(&request.ID); err != nil {
		return types.BorrowRequest{}, mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return types.BorrowRequest{}, mapConstraintError(err)
	}
	return request, nil
}

func (r *BorrowRequestRepository) Get(ctx context.Context, id int) (types.BorrowRequest, error) {
	const query = `
		SELECT ` + borrowColumns + `
		FROM borrow_requests
		WHERE id = $1`
	var request types.BorrowRequest
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&request.ID,
		&request.BookID,
		&request.UserID,
		&request.BorrowDate,
		&request.ReturnDate,
		&request.Status,
		&request.DecidedBy,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BorrowRequest{}, ErrNotFound
		}
		return types.BorrowRequest{}, err
	}
	return request, nil
}

func (r *BorrowRequestRepository) ListAll(ctx context.Context) ([]types.BorrowRequest, error) {
	const query = `
		SELECT ` + borrowColumns + `
		FROM borrow_requests
		ORDER BY id`
	return r.list(ctx, query)
}

func (r *BorrowRequestRepository) ListByUser(ctx context.Context, userID int) ([]types.BorrowRequest, error) {
	const query = `
		SELECT ` + borrowColumns + `
		FROM borrow_requests
		WHERE user_id = $1
		ORDER BY id`
	return r.list(ctx, query, userID)
}

// Decide transitions a pending request to the given terminal status and
// records the deciding librarian. The row is locked for the duration of
// the transaction; the approved-interval exclusion constraint fires
// here if approval would overlap another approved hold.
func (r *BorrowRequestRepository) Decide(ctx context.Context, id int, status types.BorrowStatus, deciderID int) (types.BorrowRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.BorrowRequest{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
		SELECT status
		FROM borrow_requests
		WHERE id = $1
		FOR UPDATE`
	var current types.BorrowStatus
	if err := tx.QueryRowContext(ctx, lockQuery, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BorrowRequest{}, ErrNotFound
		}
		return types.BorrowRequest{}, err
	}
	if current != types.StatusPending {
		return types.BorrowRequest{}, ErrAlreadyDecided
	}

	const updateQuery = `
		UPDATE borrow_requests
		SET status = $1, decided_by = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + borrowColumns
	var request types.BorrowRequest
	if err := tx.QueryRowContext(ctx, updateQuery, status, deciderID, time.Now(), id).Scan(
		&request.ID,
		&request.BookID,
		&request.UserID,
		&request.BorrowDate,
		&request.ReturnDate,
		&request.Status,
		&request.DecidedBy,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return types.BorrowRequest{}, mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return types.BorrowRequest{}, mapConstraintError(err)
	}
	return request, nil
}

func (r *BorrowRequestRepository) list(ctx context.Context, query string, args ...any) ([]types.BorrowRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]types.BorrowRequest, 0)
	for rows.Next() {
		var request types.BorrowRequest
		if err := rows.Scan(
			&request.ID,
			&request.BookID,
			&request.UserID,
			&request.BorrowDate,
			&request.ReturnDate,
			&request.Status,
			&request.DecidedBy,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan borrow requests: %w", err)
	}

	return requests, nil
}
