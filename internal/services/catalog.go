package services

import (
	"context"
	"errors"
	"strings"

	"github.com/libranet/apiserver/internal/store"
	"github.com/libranet/apiserver/types"
)

// Catalog errors surfaced to the API boundary.
var (
	ErrInvalidISBN   = errors.New("ISBN must be 13 characters long")
	ErrDuplicateISBN = errors.New("a book with this ISBN already exists")
)

// BookRepository defines persistence operations for catalog books.
type BookRepository interface {
	List(ctx context.Context) ([]types.Book, error)
	Get(ctx context.Context, id int) (types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
}

// CatalogService encapsulates catalog use-cases.
type CatalogService struct {
	repo BookRepository
}

func NewCatalogService(repo BookRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// List returns the catalog in id order.
func (s *CatalogService) List(ctx context.Context) ([]types.Book, error) {
	return s.repo.List(ctx)
}

// Get returns the book with the given id.
func (s *CatalogService) Get(ctx context.Context, id int) (types.Book, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a book to the catalog. The ISBN must be exactly 13
// characters and globally unique.
func (s *CatalogService) Create(ctx context.Context, book types.Book) (types.Book, error) {
	book.ISBN = strings.TrimSpace(book.ISBN)
	if len(book.ISBN) != types.ISBNLength {
		return types.Book{}, ErrInvalidISBN
	}
	if book.AvailableCopies < 1 {
		book.AvailableCopies = 1
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Book{}, ErrDuplicateISBN
		}
		return types.Book{}, err
	}
	return created, nil
}
