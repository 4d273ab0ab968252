package chat

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a transient rate-limit rejection from the store.
// It is the only error class the retry controller will retry.
var ErrRateLimited = errors.New("chat: rate limited")

// ErrNoConversation is returned by operations that need an open conversation
// when none is selected.
var ErrNoConversation = errors.New("chat: no conversation selected")

// PersistenceError reports a failed write. Writes are never retried
// automatically; the error is surfaced to the immediate caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chat: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FetchError reports a failed read of the conversation list. The engine keeps
// it as a visible, retryable error state rather than an empty list.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("chat: conversation fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RetryExhaustedError wraps the last transient error after the retry budget
// ran out.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("chat: retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is, or wraps, a transient rate-limit
// rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
