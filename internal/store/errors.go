package store

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors returned by repositories. Callers match with errors.Is.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert or update violates a
	// uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")

	// ErrOverlap is returned when a borrow request would violate the
	// approved-interval exclusion constraint.
	ErrOverlap = errors.New("overlapping approved interval")

	// ErrAlreadyDecided is returned when a conditional status update
	// finds the borrow request no longer pending.
	ErrAlreadyDecided = errors.New("request already decided")
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// mapConstraintError converts postgres constraint violations into
// sentinel errors so the race between check and write is closed at the
// database rather than replicated in application code.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqExclusionViolation:
		return ErrOverlap
	}
	return err
}
