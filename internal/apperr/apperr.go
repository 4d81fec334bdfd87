// Package apperr defines the typed domain errors returned to API clients.
package apperr

import "net/http"

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a domain error carrying the HTTP status, a stable machine-readable
// code and optional structured detail (lockout expiry, field list, ...).
// The handler layer renders it as the {message, code, errors} envelope.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a domain error without structured detail.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithDetails returns a copy of the error carrying structured detail.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// Validation builds the VALIDATION_ERROR envelope for a set of field errors.
func Validation(fields []FieldError) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "Error de validación",
		Details: fields,
	}
}
