package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyMessage    = errors.New("message has no text and no image")
	ErrSendInFlight    = errors.New("a send is already in flight for this session")
	ErrNoActiveSession = errors.New("no active session")
	ErrNotAcknowledged = errors.New("welcome has not been acknowledged")
)

// RateLimitError is surfaced to the user with a computed wait time.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	minutes := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	plural := ""
	if minutes > 1 {
		plural = "s"
	}
	return fmt.Sprintf("you have reached the message limit, try again in about %d minute%s", minutes, plural)
}

// AttachmentError reports a failure while validating or decoding an image
// attachment. It aborts a send before any session mutation.
type AttachmentError struct {
	Cause error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("failed to process image file: %v", e.Cause)
}

func (e *AttachmentError) Unwrap() error { return e.Cause }

// IsGuard reports whether err is one of the silent guard rejections: calls
// that are ignored without a user-visible error.
func IsGuard(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrSendInFlight) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrNotAcknowledged)
}
