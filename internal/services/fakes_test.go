package services

import (
	"context"
	"sync"
	"time"

	"github.com/libranet/apiserver/internal/store"
	"github.com/libranet/apiserver/types"
)

// In-memory repositories mirroring the store layer's contract,
// including its sentinel errors and transactional conflict checks.

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LastLogin = &at
	user.UpdatedAt = at
	r.users[id] = user
	return nil
}

type fakeBookRepo struct {
	mu     sync.Mutex
	books  map[int]types.Book
	nextID int
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[int]types.Book), nextID: 1}
}

func (r *fakeBookRepo) List(_ context.Context) ([]types.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	books := make([]types.Book, 0, len(r.books))
	for id := 1; id < r.nextID; id++ {
		if book, ok := r.books[id]; ok {
			books = append(books, book)
		}
	}
	return books, nil
}

func (r *fakeBookRepo) Get(_ context.Context, id int) (types.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return book, nil
}

func (r *fakeBookRepo) Create(_ context.Context, book types.Book) (types.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.books {
		if existing.ISBN == book.ISBN {
			return types.Book{}, store.ErrDuplicate
		}
	}
	book.ID = r.nextID
	r.nextID++
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	r.books[book.ID] = book
	return book, nil
}

type fakeBorrowRepo struct {
	mu       sync.Mutex
	requests map[int]types.BorrowRequest
	nextID   int
}

func newFakeBorrowRepo() *fakeBorrowRepo {
	return &fakeBorrowRepo{requests: make(map[int]types.BorrowRequest), nextID: 1}
}

func (r *fakeBorrowRepo) Create(_ context.Context, request types.BorrowRequest) (types.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.BookID != request.BookID {
			continue
		}
		if existing.Status == types.StatusApproved && existing.Overlaps(request.BorrowDate, request.ReturnDate) {
			return types.BorrowRequest{}, store.ErrOverlap
		}
		if existing.BorrowDate.Equal(request.BorrowDate.Time) && existing.ReturnDate.Equal(request.ReturnDate.Time) {
			return types.BorrowRequest{}, store.ErrDuplicate
		}
	}
	request.ID = r.nextID
	r.nextID++
	request.Status = types.StatusPending
	request.DecidedBy = nil
	now := time.Now()
	request.CreatedAt = now
	request.UpdatedAt = now
	r.requests[request.ID] = request
	return request, nil
}

func (r *fakeBorrowRepo) Get(_ context.Context, id int) (types.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return types.BorrowRequest{}, store.ErrNotFound
	}
	return request, nil
}

func (r *fakeBorrowRepo) ListAll(_ context.Context) ([]types.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	requests := make([]types.BorrowRequest, 0, len(r.requests))
	for id := 1; id < r.nextID; id++ {
		if request, ok := r.requests[id]; ok {
			requests = append(requests, request)
		}
	}
	return requests, nil
}

func (r *fakeBorrowRepo) ListByUser(_ context.Context, userID int) ([]types.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	requests := make([]types.BorrowRequest, 0)
	for id := 1; id < r.nextID; id++ {
		if request, ok := r.requests[id]; ok && request.UserID == userID {
			requests = append(requests, request)
		}
	}
	return requests, nil
}

func (r *fakeBorrowRepo) Decide(_ context.Context, id int, status types.BorrowStatus, deciderID int) (types.BorrowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return types.BorrowRequest{}, store.ErrNotFound
	}
	if request.Status != types.StatusPending {
		return types.BorrowRequest{}, store.ErrAlreadyDecided
	}
	if status == types.StatusApproved {
		for _, existing := range r.requests {
			if existing.ID == id || existing.BookID != request.BookID {
				continue
			}
			if existing.Status == types.StatusApproved && existing.Overlaps(request.BorrowDate, request.ReturnDate) {
				return types.BorrowRequest{}, store.ErrOverlap
			}
		}
	}
	request.Status = status
	request.DecidedBy = &deciderID
	request.UpdatedAt = time.Now()
	r.requests[id] = request
	return request, nil
}

type publishedEvent struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}
