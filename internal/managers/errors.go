package managers

import (
	"errors"

	"prepforge/interview/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

// ValidationError keeps the field details of a rejected payload and matches ErrValidation.
type ValidationError struct {
	Response *models.ErrorResponse
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Response.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErr(code, message, field string) error {
	return &ValidationError{Response: &models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: []models.ValidationErrorDetail{{Field: field, Reason: message}},
	}}
}

func asValidationErr(err error) error {
	var resp *models.ErrorResponse
	if errors.As(err, &resp) {
		return &ValidationError{Response: resp}
	}
	return &ValidationError{Response: &models.ErrorResponse{Code: "validation_error", Message: err.Error()}}
}

// outcome classifies err for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
