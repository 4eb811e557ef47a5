package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/libranet/apiserver/types"
)

// BookRepository handles persistence for catalog books.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, title, author, publisher, publication_date, isbn, available_copies, created_at, updated_at`

func (r *BookRepository) List(ctx context.Context) ([]types.Book, error) {
	const query = `
		SELECT ` + bookColumns + `
		FROM books
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]types.Book, 0)
	for rows.Next() {
		var book types.Book
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Publisher,
			&book.PublicationDate,
			&book.ISBN,
			&book.AvailableCopies,
			&book.CreatedAt,
			&book.UpdatedAt,
		); err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return books, nil
}

func (r *BookRepository) Get(ctx context.Context, id int) (types.Book, error) {
	const query = `
		SELECT ` + bookColumns + `
		FROM books
		WHERE id = $1`
	var book types.Book
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Publisher,
		&book.PublicationDate,
		&book.ISBN,
		&book.AvailableCopies,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	const query = `
		INSERT INTO books (title, author, publisher, publication_date, isbn, available_copies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		book.Title,
		book.Author,
		book.Publisher,
		book.PublicationDate,
		book.ISBN,
		book.AvailableCopies,
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&book.ID); err != nil {
		return types.Book{}, mapConstraintError(err)
	}

	return book, nil
}
