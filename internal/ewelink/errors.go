package ewelink

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the API still refuses our credentials after refreshing the access token.
var ErrUnauthorized = errors.New("ewelink: unauthorized")

// An APIError is returned when the API answers a request with a non-zero error code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ewelink: error %d: %s", e.Code, e.Msg)
}

func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && (t.Code == 0 || t.Code == e.Code)
}

// unauthorized reports whether the API error code means the access token is no longer accepted.
func (e *APIError) unauthorized() bool {
	return e.Code == 401 || e.Code == 402
}
