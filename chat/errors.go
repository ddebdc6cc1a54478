package chat

import (
	"errors"
	"fmt"
)

var (
	ErrNoCompletions = errors.New("chat: no completions returned")
	ErrNoMessage     = errors.New("chat: no message included in completion")
)

// InvalidRoleError reports a message whose role tag is not user, assistant or system.
type InvalidRoleError struct {
	Tag string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("chat: cannot determine role from %q", e.Tag)
}

// ConfigurationError reports invalid generator parameters. It is returned
// before any remote call is made.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("chat: invalid %s: %s", e.Field, e.Reason)
}

// APIError is what backends return when the remote endpoint answers with
// an error status.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chat: API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chat: API error (status %d)", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// TransientRequestError wraps a failure the retry loop considered worth
// retrying. Callers only see it inside a RetriesExhaustedError.
type TransientRequestError struct {
	Attempt    int
	StatusCode int
	Err        error
}

func (e *TransientRequestError) Error() string {
	return fmt.Sprintf("chat: transient failure on attempt %d: %v", e.Attempt+1, e.Err)
}

func (e *TransientRequestError) Unwrap() error { return e.Err }

type RetriesExhaustedError struct {
	Attempts int
	Last     *TransientRequestError
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("chat: maximum retries reached after %d attempts: %v", e.Attempts, e.Last.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

// FatalRequestError wraps a failure that is never retried.
type FatalRequestError struct {
	StatusCode int
	Err        error
}

func (e *FatalRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chat: request failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("chat: request failed: %v", e.Err)
}

func (e *FatalRequestError) Unwrap() error { return e.Err }

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
