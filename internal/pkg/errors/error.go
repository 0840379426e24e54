package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common reusable application errors
var (
	ErrNotFound               = errors.New("resource not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternal               = errors.New("internal server error")
	ErrRateLimited            = errors.New("too many requests")
	ErrDuplicateEntry         = errors.New("duplicate entry")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserNotFoundOrInactive = errors.New("user not found or inactive")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatus maps application sentinel errors onto HTTP status codes.
// Unknown errors collapse to 500 so internals never leak to callers.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFoundOrInactive):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
