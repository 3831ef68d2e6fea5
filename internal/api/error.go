package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// Well-known error codes returned by the backend.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeOutOfStock = "OUT_OF_STOCK"
	CodeValidation = "VALIDATION_ERROR"
)

// Error is a failed backend response. The backend signals failure through the
// envelope error branch, so Status may be 200 while Code is set; callers must
// branch on the error value, not the HTTP status alone.
type Error struct {
	// Status is the HTTP status code of the response.
	Status int
	// Code is the machine-readable error code from the envelope, if any.
	Code string
	// Message is the human-readable message from the envelope.
	Message string
	// Fields carries field-level validation detail keyed by field name.
	// For OUT_OF_STOCK conflicts the keys are product IDs and the values
	// are the available quantities.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("request failed: %d", e.Status)
}

// NotFound reports whether the error identifies a missing resource, such as a
// stale guest cart id.
func (e *Error) NotFound() bool {
	return e.Status == http.StatusNotFound || e.Code == CodeNotFound
}

// Conflict reports whether the error is a conflict response.
func (e *Error) Conflict() bool {
	return e.Status == http.StatusConflict || e.Code == CodeConflict
}

// OutOfStock reports whether the error is a stock conflict carrying a
// per-product available-quantity map in Fields.
func (e *Error) OutOfStock() bool {
	return e.Code == CodeOutOfStock
}

// AsError unwraps err into a backend *Error when possible.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a backend not-found error.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.NotFound()
}

// IsConflict reports whether err is a backend conflict error.
func IsConflict(err error) bool {
	e, ok := AsError(err)
	return ok && e.Conflict()
}

// IsOutOfStock reports whether err is a backend stock conflict.
func IsOutOfStock(err error) bool {
	e, ok := AsError(err)
	return ok && e.OutOfStock()
}
