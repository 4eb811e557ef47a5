package types

import "time"

// Role values recognized by the system. Librarian capabilities are
// attached to the admin role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system
	// ("admin" for librarians, "user" for patrons).
	Role string `json:"role" db:"role"`

	// Active reports whether the account may authenticate and submit
	// borrow requests. Accounts are deactivated rather than deleted.
	Active bool `json:"active" db:"active"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// LastLogin is the timestamp of the most recent successful login,
	// or nil if the user has never logged in.
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsLibrarian reports whether the user holds librarian capability.
func (u User) IsLibrarian() bool {
	return u.Role == RoleAdmin
}

// Profile is the public identity view of a user returned by /me.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Profile returns the public identity view of the user.
func (u User) Profile() Profile {
	return Profile{Username: u.Username, Email: u.Email, Role: u.Role}
}
