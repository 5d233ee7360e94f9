package validator

import (
	"fmt"
	"strings"
	"sync"

	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateRequest validates a struct using its `validate` tags and converts
// failures into a validation error listing every offending field
func ValidateRequest(req interface{}) error {
	err := GetValidator().Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ierr.WithError(err).
			WithHint("Request validation failed").
			Mark(ierr.ErrValidation)
	}

	details := make(map[string]any, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msg := fmt.Sprintf("failed on the '%s' tag", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' tag", fe.Tag(), fe.Param())
		}
		details[fe.Namespace()] = msg
		messages = append(messages, fmt.Sprintf("%s %s", fe.Field(), msg))
	}

	return ierr.WithError(err).
		WithHintf("Invalid request: %s", strings.Join(messages, ", ")).
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}
