package providers

import (
	"errors"
	"fmt"
)

// APIError is a structured upstream failure. Classification happens on the
// status code carried here, never by matching on message text.
type APIError struct {
	Provider   SourceName
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s api error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error (%d)", e.Provider, e.StatusCode)
}

// Retryable reports whether the failure is rate-limit or overload class.
// Everything else is terminal and must not be retried.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

func IsRetryable(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Retryable()
}
