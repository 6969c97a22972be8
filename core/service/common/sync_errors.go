package common

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrVersionMismatch   = errors.New("version mismatch")
	ErrHistoryExpired    = errors.New("history expired")
	ErrResolutionPending = errors.New("another conflict is awaiting resolution")
	ErrMutationCancelled = errors.New("mutation cancelled")
	ErrUnauthorized      = errors.New("unauthorized access")
	ErrInvalidInput      = errors.New("invalid input")
)
