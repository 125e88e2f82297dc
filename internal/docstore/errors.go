package docstore

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks malformed keys or missing values. Never retryable;
// handlers map it to a 400.
var ErrInvalidInput = errors.New("invalid input")

// StorageError wraps a failed object-store call (timeout, network,
// permission, quota). Retryable by the caller; the store itself never
// retries inside a request.
type StorageError struct {
	Op  string // put | list | fetch
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DecodeError marks a canonical object whose bytes are not valid JSON.
// A corrupt object is not "absent", it is "broken" — callers surface it
// as a genuine error, never as an empty result.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode object %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
