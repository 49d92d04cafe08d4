package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies pipeline failures by how the caller should react.
type ErrorKind string

const (
	// Transient failures are retried with backoff within the current cycle.
	Transient ErrorKind = "TRANSIENT"
	// RateLimited failures carry a retry-after; no further call may be made
	// against the venue before it elapses.
	RateLimited ErrorKind = "RATE_LIMITED"
	// Permanent failures disable sync for the affected participant until
	// cleared by an operator.
	Permanent ErrorKind = "PERMANENT"
	// Conflict covers idempotency replays and capacity-full registrations.
	Conflict ErrorKind = "CONFLICT"
	// Inconsistent marks a ranking pass that observed fewer snapshots than
	// active participants.
	Inconsistent ErrorKind = "INCONSISTENT"
)

func (k ErrorKind) String() string {
	return string(k)
}

// Error is the typed error flowing through the sync pipeline.
type Error struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewTransient(err error) *Error {
	return &Error{Kind: Transient, Err: err}
}

func NewRateLimited(retryAfter time.Duration, err error) *Error {
	return &Error{Kind: RateLimited, RetryAfter: retryAfter, Err: err}
}

func NewPermanent(err error) *Error {
	return &Error{Kind: Permanent, Err: err}
}

func NewConflict(msg string) *Error {
	return &Error{Kind: Conflict, Err: errors.New(msg)}
}

func NewInconsistent(msg string) *Error {
	return &Error{Kind: Inconsistent, Err: errors.New(msg)}
}

// KindOf extracts the classification from err, defaulting to Transient for
// untyped errors so unknown failures stay retryable.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return Transient
}

// RetryAfterOf reports the rate-limit deferral carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var typed *Error
	if errors.As(err, &typed) && typed.Kind == RateLimited {
		return typed.RetryAfter, true
	}
	return 0, false
}
