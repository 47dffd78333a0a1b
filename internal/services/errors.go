package services

import "errors"

var (
	// ErrForbidden is returned when the actor may not perform an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState is returned when a record's status does not allow an operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput is returned for input that violates a business rule.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a record that must be unique already exists.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned by login for any unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
