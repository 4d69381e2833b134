package scheduling

import (
	"errors"
	"fmt"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type AuthorizationError struct {
	msg string
}

func (e *AuthorizationError) Error() string {
	return e.msg
}

func authorizationError(msg string) error {
	return &AuthorizationError{msg: msg}
}

// rejectError maps a slot rule violation to the error kind callers act on.
// Occupancy violations are conflicts (re-query and pick another slot); the rest are invalid input.
func rejectError(reason domain.RejectReason) error {
	if reason.Occupancy() {
		return fmt.Errorf("%w: %s", store.ErrConflict, reason)
	}
	return validationError(reason.String())
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}

// isRejection reports an expected refusal, as opposed to an infrastructure failure.
func isRejection(err error) bool {
	var vErr *ValidationError
	var aErr *AuthorizationError
	return errors.As(err, &vErr) ||
		errors.As(err, &aErr) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrRequestResolved) ||
		errors.Is(err, store.ErrIdempotencyConflict)
}
