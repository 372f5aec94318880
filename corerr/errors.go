// Package corerr defines the structured error taxonomy shared by every
// core package: Disconnected, Backpressure, WontRespond, BadInput, IO, and
// LagDrop, each carrying the operation that failed and an optional wrapped
// cause.
package corerr

import (
	"errors"
	"fmt"
)

// Kind is a coarse error category. It does not replace Go's typed errors;
// it gives callers a stable switch target (errors.As + Kind comparison)
// independent of which operation produced the error.
type Kind string

const (
	KindDisconnected Kind = "disconnected"
	KindBackpressure Kind = "backpressure"
	KindWontRespond  Kind = "wont_respond"
	KindBadInput     Kind = "bad_input"
	KindIO           Kind = "io"
	KindLagDrop      Kind = "lag_drop"
)

// Error is the structured error type returned by core operations.
type Error struct {
	Op    string // operation that failed, e.g. "session.send", "engine.macro"
	Kind  Kind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s", e.Op, e.Kind)
		}
		return string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is lets errors.Is match against a bare Kind sentinel created via New(kind).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an Error with no message, usable as an errors.Is sentinel
// when only Kind matters.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Newf creates an Error for op carrying a formatted message.
func Newf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under op with the given kind.
func Wrap(op string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*Error); ok {
		return &Error{Op: op, Kind: kind, Msg: ce.Msg, Inner: ce}
	}
	return &Error{Op: op, Kind: kind, Msg: err.Error(), Inner: err}
}

// Disconnected reports that no active session exists for op.
func Disconnected(op string) *Error { return &Error{Op: op, Kind: KindDisconnected} }

// Backpressure reports that a bounded queue rejected a non-blocking send.
func Backpressure(op string) *Error { return &Error{Op: op, Kind: KindBackpressure} }

// WontRespond reports that a pending completion can no longer be produced.
func WontRespond(op string) *Error { return &Error{Op: op, Kind: KindWontRespond} }

// BadInput reports a DSL parse failure, macro cycle, or malformed pattern.
func BadInput(op, msg string) *Error { return &Error{Op: op, Kind: KindBadInput, Msg: msg} }

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
