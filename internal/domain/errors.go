package domain

import "errors"

var (
	// ErrValidation is returned when input is missing or malformed; the caller
	// can recover by correcting the input
	ErrValidation = errors.New("validation failed")

	// ErrUnknownTrace is returned when a referenced trace ID has no batch.
	// It is always surfaced; a trace is never created implicitly.
	ErrUnknownTrace = errors.New("unknown trace id")

	// ErrRoleNotPermitted is returned when an actor attempts an activity type
	// outside its role's permission table
	ErrRoleNotPermitted = errors.New("role not permitted for activity type")

	// ErrCollision is returned when a generated identifier already exists in
	// the store after the bounded regeneration attempts are exhausted
	ErrCollision = errors.New("identifier collision")

	// ErrStorage is returned when a blob upload or URL resolution fails
	ErrStorage = errors.New("blob storage failure")

	// ErrPersistence is returned when a database write fails
	ErrPersistence = errors.New("database failure")
)
