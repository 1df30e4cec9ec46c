package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error returned by the platform API, either as an
// HTTP error response or inside a function result envelope.
type Error struct {
	// HTTPStatus is the HTTP status code of the response. Zero for errors
	// delivered inside a 200 function envelope.
	HTTPStatus int `json:"-"`

	// Code is the machine-readable error code.
	Code string `json:"code"`

	// Message is the human-readable error description.
	Message string `json:"message"`

	// Hint optionally suggests how to fix the request.
	Hint string `json:"hint,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("backend: %s (code=%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("backend: %s (code=%s, http=%d)", e.Message, e.Code, e.HTTPStatus)
}

// IsAuth reports whether the error indicates missing or expired
// credentials. The caller should prompt for a fresh sign-in.
func (e *Error) IsAuth() bool {
	switch e.Code {
	case "unauthorized", "invalid_credentials", "token_expired":
		return true
	}
	return e.HTTPStatus == http.StatusUnauthorized
}

// IsNotFound reports whether the requested entity does not exist.
func (e *Error) IsNotFound() bool {
	return e.Code == "not_found" || e.HTTPStatus == http.StatusNotFound
}

// IsConflict reports whether the request conflicts with existing state
// (for example a duplicate unique column).
func (e *Error) IsConflict() bool {
	return e.Code == "conflict" || e.HTTPStatus == http.StatusConflict
}

// IsRateLimit reports whether the platform rejected the call for quota
// reasons. The client does not retry; surface this to the operator.
func (e *Error) IsRateLimit() bool {
	return e.Code == "rate_limited" || e.HTTPStatus == http.StatusTooManyRequests
}

// AsError extracts a *Error from an error chain.
// Returns nil, false if err is not a platform API error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
