package services

import (
	"errors"
	"fmt"
	"strings"
)

// Engine error taxonomy. Handlers translate these to HTTP statuses; nothing
// below the handler layer knows about status codes.
var (
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation")
	// ErrNotFound indicates a referenced row is absent or outside the caller's org.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a store uniqueness violation surfaced to the caller.
	ErrConflict = errors.New("conflict")
	// ErrForbiddenTransition indicates a lifecycle move the state machine does not permit.
	ErrForbiddenTransition = errors.New("forbidden transition")
	// ErrDependencyUnavailable indicates the store or transport could not be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func ForbiddenTransitionError(msg string) error {
	return errors.Join(ErrForbiddenTransition, errors.New(strings.TrimSpace(msg)))
}

// UndoWindowError reports an undo attempted after the window closed. It is a
// time-bounded failure, not a hard error: it carries elapsed and maximum
// seconds so the caller can explain the rejection to the user.
type UndoWindowError struct {
	ElapsedSeconds float64
	MaxSeconds     float64
}

func (e *UndoWindowError) Error() string {
	return fmt.Sprintf("undo window expired: %.1fs elapsed, max %.0fs", e.ElapsedSeconds, e.MaxSeconds)
}

func IsUndoWindowExpired(err error) bool {
	var uw *UndoWindowError
	return errors.As(err, &uw)
}
