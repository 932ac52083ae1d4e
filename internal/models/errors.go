package models

import (
	"errors"
)

// Lifecycle error taxonomy. Every kind is recoverable at the caller and maps
// to a stable HTTP status in the handlers; only ErrConflictRetry and
// ErrTimeout are worth retrying.
var (
	ErrRequestNotFound     = errors.New("service request not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrForbidden           = errors.New("actor is not allowed to perform this transition")
	ErrProviderUnavailable = errors.New("provider is not available")
	ErrCapabilityMismatch  = errors.New("provider cannot handle this request type")
	ErrInsufficientStock   = errors.New("insufficient fuel stock")
	ErrFuelUnavailable     = errors.New("fuel type is not available")
	ErrAlreadyAssigned     = errors.New("request already taken by another provider")
	ErrConflictRetry       = errors.New("concurrent update, retry")
	ErrTimeout             = errors.New("operation timed out")
	ErrActiveRequestExists = errors.New("an active request of this type already exists")
	ErrInvalidPayload      = errors.New("invalid request payload")
)

var (
	ErrNoRecord           = errors.New("models: no matching record found")
	ErrInvalidCredentials = errors.New("models: invalid credentials")
	ErrDuplicatePhone     = errors.New("models: duplicate phone number")
	ErrDuplicateEmail     = errors.New("models: duplicate email")
	ErrUserNotFound       = errors.New("models: user not found")
	ErrProviderNotFound   = errors.New("provider not found")
	ErrVehicleNotFound    = errors.New("vehicle not found")
)
