package gateio

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the exchange. It carries the HTTP
// status and the raw body so callers can distinguish auth failures from
// ordinary rejections.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateio: %s status %d: %s", e.Path, e.Status, e.Body)
}

// IsAuth reports whether the exchange rejected our credentials.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound reports a 404, which for some endpoints (futures positions per
// settle currency) means "nothing there" rather than a failure.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// TransportError is a network-level failure with no HTTP status.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateio: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is an exchange credential rejection.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
