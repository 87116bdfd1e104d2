package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for every non-2xx response received from GitHub.
type APIError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("GitHub returned HTTP %d for %s", e.StatusCode, e.URL)
	if hint := e.Hint(); hint != "" {
		msg += " (" + hint + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Hint returns a short explanation for well-known statuses, or "".
func (e *APIError) Hint() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "bad credentials? check the token"
	case http.StatusForbidden, http.StatusTooManyRequests:
		return "rate limit exceeded? retry later or pass a token"
	case http.StatusNotFound:
		return "unknown user or repository?"
	}
	return ""
}

// AsAPIError unwraps err into an *APIError if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
