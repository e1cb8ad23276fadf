// Package apperrors holds the error taxonomy shared by every service.
// Layers wrap these sentinels with fmt.Errorf("%w: ...") and callers match
// them with errors.Is.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrUnsupportedOperation = errors.New("operation not supported")
	ErrRemoteUnavailable    = errors.New("remote service unavailable")
	ErrInvalidInput         = errors.New("invalid input provided")
)

// HTTPStatus maps an error from any layer to the status code the thin HTTP
// adapters respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnsupportedOperation):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API callers. Insufficient
// balance always yields the same fixed text.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrUnsupportedOperation),
		errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrRemoteUnavailable):
		return "Dependency temporarily unavailable"
	default:
		return "Internal server error"
	}
}
