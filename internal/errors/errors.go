package errors

import (
	"github.com/cockroachdb/errors"
)

// Error codes shared by every layer. The code is what ends up in logs and API responses.
const (
	ErrCodeNotFound               = "not_found"
	ErrCodeAlreadyExists          = "already_exists"
	ErrCodeValidation             = "validation_error"
	ErrCodeInvalidOperation       = "invalid_operation"
	ErrCodeInvalidTransition      = "invalid_transition"
	ErrCodeInvalidUpgrade         = "invalid_upgrade"
	ErrCodeInvalidSignature       = "invalid_signature"
	ErrCodeCheckoutCreationFailed = "checkout_creation_failed"
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodePermissionDenied       = "permission_denied"
	ErrCodeHTTPClient             = "http_client_error"
	ErrCodeRateLimited            = "rate_limited"
	ErrCodeDatabase               = "database_error"
	ErrCodeSystemError            = "system_error"
	ErrCodeInternalError          = "internal_error"
)

// Sentinel errors used as marks. Never return them directly; build an error with
// NewError/WithError and Mark it with one of these.
var (
	ErrNotFound               = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists          = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation             = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation       = new(ErrCodeInvalidOperation, "invalid operation")
	ErrInvalidTransition      = new(ErrCodeInvalidTransition, "invalid state transition")
	ErrInvalidUpgrade         = new(ErrCodeInvalidUpgrade, "invalid upgrade")
	ErrInvalidSignature       = new(ErrCodeInvalidSignature, "invalid signature")
	ErrCheckoutCreationFailed = new(ErrCodeCheckoutCreationFailed, "checkout creation failed")
	ErrUnauthorized           = new(ErrCodeUnauthorized, "unauthorized")
	ErrPermissionDenied       = new(ErrCodePermissionDenied, "permission denied")
	ErrHTTPClient             = new(ErrCodeHTTPClient, "http client error")
	ErrRateLimited            = new(ErrCodeRateLimited, "rate limited")
	ErrDatabase               = new(ErrCodeDatabase, "database error")
	ErrSystem                 = new(ErrCodeSystemError, "system error")
	ErrInternal               = new(ErrCodeInternalError, "internal error")
)

// InternalError is the concrete type behind every sentinel
type InternalError struct {
	Code    string
	Message string
}

func (e *InternalError) Error() string {
	return e.Message
}

func new(code string, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsInvalidUpgrade(err error) bool {
	return errors.Is(err, ErrInvalidUpgrade)
}

func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

func IsCheckoutCreationFailed(err error) bool {
	return errors.Is(err, ErrCheckoutCreationFailed)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// Code returns the error code of the first sentinel the error is marked with.
func Code(err error) string {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Code
		}
	}
	return ErrCodeInternalError
}

var sentinels = []*InternalError{
	ErrNotFound,
	ErrAlreadyExists,
	ErrValidation,
	ErrInvalidOperation,
	ErrInvalidTransition,
	ErrInvalidUpgrade,
	ErrInvalidSignature,
	ErrCheckoutCreationFailed,
	ErrUnauthorized,
	ErrPermissionDenied,
	ErrHTTPClient,
	ErrRateLimited,
	ErrDatabase,
	ErrSystem,
	ErrInternal,
}
