package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation reports a rejected input, such as a name collision.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports a site uid that does not resolve.
	ErrNotFound = errors.New("site not found")
	// ErrPrecondition reports a site that is not in the required state.
	ErrPrecondition = errors.New("precondition failed")
	// ErrConfiguration reports an invalid process configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// CollisionError is returned when a display name or hostname is already used.
type CollisionError struct {
	DisplayName int
	Hostname    int
}

func (e *CollisionError) Error() string {
	switch {
	case e.DisplayName > 0 && e.Hostname > 0:
		return "display name and hostname already taken"
	case e.DisplayName > 0:
		return "display name already taken"
	default:
		return "hostname already taken"
	}
}

// Is lets errors.Is(err, ErrValidation) match collisions.
func (e *CollisionError) Is(target error) bool { return target == ErrValidation }

// NotFound wraps ErrNotFound with the uid that failed to resolve.
func NotFound(uid string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, uid)
}

// Precondition wraps ErrPrecondition with a reason.
func Precondition(reason, uid string) error {
	return fmt.Errorf("%w: %s: %s", ErrPrecondition, reason, uid)
}
