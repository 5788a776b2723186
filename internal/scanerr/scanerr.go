// Package scanerr defines the fixed error-kind taxonomy used across the
// scan engine, so every failure can be mapped onto a small, stable set of
// outcomes at the C ABI boundary.
package scanerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories the engine and its
// ABI boundary distinguish between. Per-file Io and Decode are isolated by
// the scan coordinator; the rest are fatal to the current call.
type Kind int

const (
	// Cancelled indicates the caller's cancel token fired.
	Cancelled Kind = iota
	// Io covers filesystem open/read/stat/permission failures.
	Io
	// Decode covers unsupported or corrupt media payloads.
	Decode
	// DbOpen indicates the fileset database could not be opened or created.
	DbOpen
	// DbMigrate indicates a schema migration failed or the schema version
	// is newer than this code understands.
	DbMigrate
	// DbLocked indicates another writer already holds the fileset's
	// advisory lock.
	DbLocked
	// InvalidArgument covers null/empty paths and out-of-range option
	// values.
	InvalidArgument
	// Internal covers writer-thread panics and invariant violations.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Cancelled:
		return "Cancelled"
	case Io:
		return "Io"
	case Decode:
		return "Decode"
	case DbOpen:
		return "DbOpen"
	case DbMigrate:
		return "DbMigrate"
	case DbLocked:
		return "DbLocked"
	case InvalidArgument:
		return "InvalidArgument"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Isolated reports whether errors of this kind are per-file and must not
// abort an in-progress scan.
func (k Kind) Isolated() bool {
	return k == Io || k == Decode
}

// Error wraps an underlying error with a Kind and the operation that
// produced it, so callers can use errors.Is/As against a Kind sentinel or
// unwrap to the original cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op/kind, optionally wrapping cause.
func New(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise it returns Internal, since an un-kinded error reaching
// the ABI boundary is itself an invariant violation.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Of reports whether err (or something it wraps) carries the given Kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
