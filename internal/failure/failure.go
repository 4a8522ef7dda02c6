// Package failure defines the error kinds surfaced by custody operations.
//
// Every error that crosses a package boundary in the core is either a
// *Error or wraps one, so callers can branch on Kind with errors.As
// regardless of how much context was added on the way up.
package failure

import (
	"errors"
	"fmt"
)

// Kind categorizes failures.
type Kind string

const (
	// KindAlreadyExists indicates a create on an id that is already taken.
	KindAlreadyExists Kind = "ALREADY_EXISTS"

	// KindNotFound indicates an operation on a missing id.
	KindNotFound Kind = "NOT_FOUND"

	// KindRole indicates the actor's role or the record state fails a precondition.
	KindRole Kind = "ROLE_VIOLATION"

	// KindEncoding indicates canonicalization was given non-serializable input.
	KindEncoding Kind = "ENCODING"

	// KindStore indicates a backend read or write failed.
	KindStore Kind = "STORE"

	// KindQuery indicates a scan, query, or history source failed.
	KindQuery Kind = "QUERY"

	// KindInvalidArgument indicates a malformed operation argument.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
)

// Kinds lists every failure kind.
var Kinds = []Kind{
	KindAlreadyExists,
	KindNotFound,
	KindRole,
	KindEncoding,
	KindStore,
	KindQuery,
	KindInvalidArgument,
}

// Known reports whether k is one of Kinds.
func Known(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Error is a categorized failure.
type Error struct {
	// Kind identifies the failure category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Key is the ledger key involved, if any.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, key, format string, args ...any) *Error {
	return &Error{Kind: kind, Key: key, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
func Wrap(kind Kind, key string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Key: key, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
// Returns "" if err carries no *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// AlreadyExists creates a KindAlreadyExists error for key.
func AlreadyExists(key string) *Error {
	return New(KindAlreadyExists, key, "the product %s already exists", key)
}

// NotFound creates a KindNotFound error for key.
func NotFound(key string) *Error {
	return New(KindNotFound, key, "the product %s does not exist", key)
}
