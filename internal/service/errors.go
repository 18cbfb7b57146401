package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountSuspended    = errors.New("account suspended")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidReceipt      = errors.New("invalid receipt")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNotImplemented      = errors.New("not implemented")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrRateLimited         = errors.New("too many requests")
	ErrInternal            = errors.New("internal error")
)

// ValidationError carries a message that is safe to show the caller
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidReceiptError carries the platform's non-zero status code
type InvalidReceiptError struct {
	Status int
}

func (e *InvalidReceiptError) Error() string {
	return fmt.Sprintf("invalid receipt: status %d", e.Status)
}

func (e *InvalidReceiptError) Unwrap() error {
	return ErrInvalidReceipt
}

// NotImplementedError marks a branch that exists but does nothing yet
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string {
	return e.Message
}

func (e *NotImplementedError) Unwrap() error {
	return ErrNotImplemented
}

// RateLimitError reports when the caller may try again
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests: retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
