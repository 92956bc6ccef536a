package application

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityMismatch is matched by IdentityMismatchError via errors.Is.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrCheckRunNotStarted is returned by Update when no check run has been
	// adopted by a preceding Get.
	ErrCheckRunNotStarted = errors.New("need to get the check run before calling update")

	// ErrRepositoryUnknown is returned when the state has no owner/repo to act on.
	ErrRepositoryUnknown = errors.New("owner and repo must be known before talking to GitHub")
)

// IdentityMismatchError reports an owner or repo that conflicts with the
// value already recorded in the persisted state.
type IdentityMismatchError struct {
	Field    string // "owner" or "repo".
	Expected string
	Got      string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("expected %s %s, got %s", e.Field, e.Expected, e.Got)
}

func (e *IdentityMismatchError) Is(target error) bool {
	return target == ErrIdentityMismatch
}
