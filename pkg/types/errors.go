package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a parse failure
type ErrorKind string

const (
	KindGrammar       ErrorKind = "grammar"        // malformed banner, size or data token
	KindConversion    ErrorKind = "conversion"     // token present but not convertible
	KindRange         ErrorKind = "range"          // row/column index outside the declared dimensions
	KindCountMismatch ErrorKind = "count_mismatch" // more or fewer data lines than declared
	KindUsage         ErrorKind = "usage"          // API called out of lifecycle order
	KindIO            ErrorKind = "io"             // the byte source failed
	KindCanceled      ErrorKind = "canceled"       // the scan's context was cancelled
)

// Sentinel errors, one per kind. A *ParseError matches the sentinel of its kind
// under errors.Is.
var (
	ErrGrammar       = errors.New("grammar error")
	ErrConversion    = errors.New("conversion error")
	ErrRange         = errors.New("index out of range")
	ErrCountMismatch = errors.New("line count mismatch")
	ErrUsage         = errors.New("invalid parser usage")
	ErrIO            = errors.New("read error")
	ErrCanceled      = errors.New("scan canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindGrammar:       ErrGrammar,
	KindConversion:    ErrConversion,
	KindRange:         ErrRange,
	KindCountMismatch: ErrCountMismatch,
	KindUsage:         ErrUsage,
	KindIO:            ErrIO,
	KindCanceled:      ErrCanceled,
}

// ParseError is the single error type returned by the parser.
type ParseError struct {
	Kind    ErrorKind
	Line    uint64 // 1-based; 0 when the error is not tied to a line
	Message string
	Err     error // underlying cause, if any
}

// NewParseError builds a ParseError with a formatted message.
func NewParseError(kind ErrorKind, line uint64, format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("mtx: %s on line %d", msg, e.Line)
	}
	return "mtx: " + msg
}

// Unwrap returns the underlying cause so ParseError participates in errors.Unwrap.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ParseError) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of err if it wraps a *ParseError, or "" otherwise.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
