package models

import "errors"

var (
	// ErrNotFound is returned when no record exists for the requested id
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRequest marks a request parameter outside the accepted domain
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConstraintViolation marks a store-level uniqueness or type violation
	ErrConstraintViolation = errors.New("constraint violation")
)
