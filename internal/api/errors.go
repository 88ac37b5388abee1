package api

import "fmt"

// AuthError is returned on HTTP 401/403. It is never retried.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d): check your ESIOS API key", e.Status)
}

// APIError is returned on other non-2xx responses. Server-side errors
// (5xx and 429) are retried; other client errors are not.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ESIOS API returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("ESIOS API error (HTTP %d): %s", e.Status, e.Message)
}

// NetworkError wraps connection failures, timeouts, and DNS errors.
// Always retried.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error communicating with ESIOS API: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
