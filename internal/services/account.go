package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/libranet/apiserver/internal/store"
	"github.com/libranet/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// Account errors surfaced to the API boundary.
var (
	ErrWeakPassword = errors.New(
		"password must be at least 8 characters with an uppercase letter, a lowercase letter, a digit, and a symbol")
	ErrDuplicateUsername  = errors.New("username already in use")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// passwordSymbols is the fixed set of symbols accepted by the password
// strength policy.
const passwordSymbols = `!@#$%^&*()-_=+[]{};:'",.<>?/\|~`

const minPasswordLength = 8

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	TouchLastLogin(ctx context.Context, id int, at time.Time) error
}

// AccountService encapsulates account use-cases: registration,
// credential checks, and admin mutations.
type AccountService struct {
	repo UserRepository
}

func NewAccountService(repo UserRepository) *AccountService {
	return &AccountService{repo: repo}
}

// Register creates an account. Username and email must be unique and
// the password must satisfy the strength policy. Only the bcrypt hash
// of the password is stored.
func (s *AccountService) Register(ctx context.Context, username, email, password, role string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if role == "" {
		role = types.RoleUser
	}

	if err := validatePassword(password); err != nil {
		return types.User{}, err
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check username: %w", err)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		Role:         role,
		Active:       true,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// Losing the race to the unique index lands here.
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateAccount
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate verifies the credentials, rejects inactive accounts, and
// stamps the last login on success.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return types.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return types.User{}, ErrInactiveAccount
	}

	now := time.Now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return types.User{}, err
	}
	user.LastLogin = &now
	return user, nil
}

// GetByID returns the account with the given id.
func (s *AccountService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// SetRole changes the account's role.
func (s *AccountService) SetRole(ctx context.Context, id int, role string) (types.User, error) {
	if role != types.RoleAdmin && role != types.RoleUser {
		return types.User{}, fmt.Errorf("unknown role %q", role)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.Role = role
	return s.repo.Update(ctx, user)
}

// SetActive activates or deactivates the account. Deactivation is the
// normal removal path; accounts are never hard-deleted.
func (s *AccountService) SetActive(ctx context.Context, id int, active bool) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.Active = active
	return s.repo.Update(ctx, user)
}

// EnsureAdmin creates the bootstrap librarian account when it does not
// exist yet. Called once at server startup.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := s.Register(ctx, username, email, password, types.RoleAdmin)
	return err
}

// validatePassword enforces the strength policy: minimum length plus at
// least one uppercase letter, lowercase letter, digit, and symbol from
// the allowed set.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
