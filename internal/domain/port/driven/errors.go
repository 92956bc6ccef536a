package driven

import (
	"errors"
	"fmt"
)

// ErrUnhandledResponse is matched by UnhandledResponseError via errors.Is.
var ErrUnhandledResponse = errors.New("unhandled response")

// APIError is a non-2xx answer from the GitHub REST API.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api returned %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UnhandledResponseError reports a 2xx response whose payload lacks the
// fields the caller needs. Payload holds the raw response for diagnosis.
type UnhandledResponseError struct {
	Payload string
}

func (e *UnhandledResponseError) Error() string {
	return "Unhandled response:\n" + e.Payload
}

func (e *UnhandledResponseError) Is(target error) bool {
	return target == ErrUnhandledResponse
}
