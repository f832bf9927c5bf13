// Package apperr defines the operational error kinds the core services
// surface to callers. Anything not wrapped in an *Error (storage failures,
// programming errors) is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindRateLimit
	KindCooldown
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindRateLimit:
		return "rate_limit"
	case KindCooldown:
		return "cooldown"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func RateLimit(format string, args ...any) *Error {
	return &Error{Kind: KindRateLimit, Message: fmt.Sprintf(format, args...)}
}

func Cooldown(format string, args ...any) *Error {
	return &Error{Kind: KindCooldown, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, returning KindInternal for nil
// wrapping or any error that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
