// Package core holds the pieces every fairness component shares: the error
// taxonomy surfaced to callers, checked integer arithmetic and text bounds.
package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. All kinds are non-retryable: the caller must
// supply corrected input and run the whole operation again.
type Kind int

const (
	KindConfig Kind = iota + 1
	KindPrecondition
	KindState
	KindArithmetic
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "CONFIG"
	case KindPrecondition:
		return "PRECONDITION"
	case KindState:
		return "STATE"
	case KindArithmetic:
		return "ARITHMETIC"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConfig       = &Error{Kind: KindConfig}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrState        = &Error{Kind: KindState}
	ErrArithmetic   = &Error{Kind: KindArithmetic}
	ErrNotFound     = &Error{Kind: KindNotFound}
)

// Error is the typed failure returned by every engine operation.
type Error struct {
	Kind  Kind
	Op    string // operation that failed, e.g. "votingpower.Compute"
	Field string // offending field or signal, if any
	Msg   string
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Field != "" {
		msg += " [" + e.Field + "]"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

// Is matches any *Error of the same Kind, so callers can write
// errors.Is(err, core.ErrState).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, field, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Configf reports a malformed configuration bundle naming the violated field.
func Configf(op, field, format string, args ...interface{}) error {
	return newError(KindConfig, op, field, format, args...)
}

// Preconditionf reports a caller-supplied value outside its stated bound.
func Preconditionf(op, field, format string, args ...interface{}) error {
	return newError(KindPrecondition, op, field, format, args...)
}

// Statef reports an operation attempted in the wrong lifecycle state.
func Statef(op, format string, args ...interface{}) error {
	return newError(KindState, op, "", format, args...)
}

// Arithmeticf reports overflow or a division edge case.
func Arithmeticf(op, format string, args ...interface{}) error {
	return newError(KindArithmetic, op, "", format, args...)
}

// NotFoundf reports a missing record.
func NotFoundf(op, format string, args ...interface{}) error {
	return newError(KindNotFound, op, "", format, args...)
}
