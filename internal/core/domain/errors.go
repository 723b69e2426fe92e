package domain

import (
	"errors"
	"fmt"
)

// Tenant and access errors
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrNoClinicAssigned     = errors.New("no clinic assigned to this account")
	ErrCrossTenantViolation = errors.New("referenced entity belongs to another clinic")
	ErrForbidden            = errors.New("forbidden")
)

// Data errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrValidation           = errors.New("validation failed")
	ErrMalformedRequest     = errors.New("malformed request")
	ErrReferentialIntegrity = errors.New("resource is still referenced")
	ErrDuplicateEntry       = errors.New("duplicate entry")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)

// Queue errors
var (
	ErrQueueAlreadyOpen = errors.New("a queue is already open for this clinic")
	ErrNoOpenQueue      = errors.New("no open queue for this clinic")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Validationf wraps ErrValidation with a detail message
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with the missing entity name
func NotFoundf(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Referencedf wraps ErrReferentialIntegrity with the blocking reference
func Referencedf(entity, by string) error {
	return fmt.Errorf("%w: %s is referenced by %s", ErrReferentialIntegrity, entity, by)
}
