package session

import (
	"errors"
	"fmt"

	"insightwire/pkg/telegram"
)

const (
	ErrorNotConnected      = "not_connected"
	ErrorAuthentication    = "authentication_failed"
	ErrorCommandFailed     = "command_failed"
	ErrorWorkerUnavailable = "worker_unavailable"
	ErrorReplyTimeout      = "reply_timeout"
)

// Error represents a stable, categorized session failure.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewError creates a categorized session error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	if errors.Is(err, telegram.ErrNotConnected) {
		return ErrorNotConnected
	}
	if errors.Is(err, telegram.ErrAuthentication) {
		return ErrorAuthentication
	}

	return ErrorCommandFailed
}

// commandFailure converts an adapter error raised while executing one
// command into a categorized failure for the issuing caller.
func commandFailure(kind commandKind, err error) error {
	if err == nil {
		return nil
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized
	}

	if errors.Is(err, telegram.ErrNotConnected) {
		return NewError(ErrorNotConnected, err.Error())
	}
	if errors.Is(err, telegram.ErrAuthentication) {
		return NewError(ErrorAuthentication, err.Error())
	}

	switch kind {
	case kindSendCode, kindSignIn:
		return NewError(ErrorAuthentication, fmt.Sprintf("executing %s: %v", kind, err))
	default:
		return NewError(ErrorCommandFailed, fmt.Sprintf("executing %s: %v", kind, err))
	}
}
