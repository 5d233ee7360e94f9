package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorResponse is the body returned for every failed API call
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Display       string         `json:"message"`
	Code          string         `json:"code"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

var statusBySentinel = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrInvalidTransition, http.StatusConflict},
	{ErrValidation, http.StatusBadRequest},
	{ErrInvalidUpgrade, http.StatusBadRequest},
	{ErrInvalidSignature, http.StatusBadRequest},
	{ErrInvalidOperation, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrCheckoutCreationFailed, http.StatusBadGateway},
	{ErrHTTPClient, http.StatusBadGateway},
}

// HTTPStatusFromErr maps a marked error onto an HTTP status. Unmarked errors are 500s.
func HTTPStatusFromErr(err error) int {
	for _, m := range statusBySentinel {
		if errors.Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// NewErrorResponse renders err. Internal details are only included for client errors.
func NewErrorResponse(err error) ErrorResponse {
	status := HTTPStatusFromErr(err)
	detail := ErrorDetail{
		Display: DisplayMessage(err),
		Code:    Code(err),
	}
	if status < http.StatusInternalServerError {
		detail.InternalError = err.Error()
		if details := ReportableDetails(err); len(details) > 0 {
			detail.Details = details
		}
	} else {
		detail.Display = "An unexpected error occurred. Please try again later."
	}
	return ErrorResponse{Success: false, Error: detail}
}
