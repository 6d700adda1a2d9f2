package apperr

import (
	"errors"
	"fmt"
)

// Error carries a dotted operation.reason code alongside the underlying cause.
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the dotted error code, e.g. "interactions.toggle_like.persist_failed".
func (e *Error) Code() string {
	return e.code
}

// New builds an *Error whose code is "<operation>.<reason>".
func New(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Code extracts the code of the first *Error in the chain, or "" when there is none.
func Code(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.code
	}
	return ""
}

// HasReason reports whether err carries a code ending in the given reason.
func HasReason(err error, reason string) bool {
	code := Code(err)
	if code == "" || reason == "" {
		return false
	}
	suffix := "." + reason
	return len(code) >= len(suffix) && code[len(code)-len(suffix):] == suffix
}
