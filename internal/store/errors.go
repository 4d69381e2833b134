package store

import (
	"errors"

	"trainerbook/backend/internal/domain"
)

var (
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrPendingReschedule   = errors.New("booking already has a pending reschedule request")

	ErrRequestResolved = domain.ErrRequestResolved
)
