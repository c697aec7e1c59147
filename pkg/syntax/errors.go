// pkg/syntax/errors.go

// Package syntax holds the position and error model shared by every lexer
// and parser in this module.
//
// A parse either returns a tree or exactly one *Error. There is no recovery:
// the first lexical or syntax error ends the parse.
package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindSyntax Kind = iota
	KindLexical
	KindNesting
	KindInternal
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindLexical:
		return "lexical error"
	case KindNesting:
		return "nesting error"
	case KindInternal:
		return "internal error"
	default:
		return "error"
	}
}

// ErrorCode identifies the specific failure for programmatic handling.
type ErrorCode int

const (
	// Syntax errors (1000-1099)
	ErrCodeSyntax          ErrorCode = 1000
	ErrCodeUnexpectedToken ErrorCode = 1001
	ErrCodeTrailingTokens  ErrorCode = 1002
	ErrCodeMissingKeyword  ErrorCode = 1003
	ErrCodeInvalidLiteral  ErrorCode = 1004

	// Lexical errors (1100-1199)
	ErrCodeUnexpectedChar      ErrorCode = 1100
	ErrCodeUnterminatedString  ErrorCode = 1101
	ErrCodeUnterminatedComment ErrorCode = 1102
	ErrCodeUnterminatedBody    ErrorCode = 1103

	// Resource errors (1200-1299)
	ErrCodeMaxDepth ErrorCode = 1200
	ErrCodeInternal ErrorCode = 1299
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrSyntax   = errors.New("syntax error")
	ErrLexical  = errors.New("lexical error")
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
)

// Error is a structured lexical or syntax error.
type Error struct {
	Kind     Kind
	Code     ErrorCode
	Pos      Position
	Found    string   // offending token text, empty at end of input
	Expected []string // token kinds that would have been accepted, if known
	Msg      string
	Context  string // enclosing declaration or statement, set when rebased
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Context != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Context)
	}
	fmt.Fprintf(&sb, " at %s: %s", e.Pos, e.Msg)
	if len(e.Expected) > 0 {
		fmt.Fprintf(&sb, " (expected %s)", strings.Join(e.Expected, ", "))
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSyntax:
		return e.Kind == KindSyntax
	case ErrLexical:
		return e.Kind == KindLexical
	case ErrMaxDepth:
		return e.Kind == KindNesting
	}
	return false
}

// Rebase returns a copy of e whose position is shifted by base bytes and
// recomputed against src, the enclosing document.
func (e *Error) Rebase(src string, base int, context string) *Error {
	out := *e
	out.Pos = PositionOf(src, e.Pos.Offset+base)
	out.Context = context
	if e.Context != "" {
		if context == "" {
			out.Context = e.Context
		} else {
			out.Context = context + ", " + e.Context
		}
	}
	return &out
}

// NewLexical creates a lexical error at offset.
func NewLexical(src string, offset int, code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Kind: KindLexical,
		Code: code,
		Pos:  PositionOf(src, offset),
		Msg:  fmt.Sprintf(format, args...),
	}
}

// NewSyntax creates a syntax error at offset. found is the offending token
// text; an empty found is reported as end of input.
func NewSyntax(src string, offset int, found string, expected []string, format string, args ...any) *Error {
	return &Error{
		Kind:     KindSyntax,
		Code:     ErrCodeUnexpectedToken,
		Pos:      PositionOf(src, offset),
		Found:    found,
		Expected: expected,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// NewDepth creates the error returned when nesting exceeds max.
func NewDepth(src string, offset int, max int) *Error {
	return &Error{
		Kind:  KindNesting,
		Code:  ErrCodeMaxDepth,
		Pos:   PositionOf(src, offset),
		Msg:   fmt.Sprintf("nesting deeper than %d levels", max),
		Cause: ErrMaxDepth,
	}
}

// Describe renders a token literal for use in messages.
func Describe(found string) string {
	if found == "" {
		return "end of input"
	}
	return fmt.Sprintf("%q", found)
}

// Recover converts a panic escaping a parser into an internal error. It must
// be deferred directly by a function with a named error result.
func Recover(errp *error) {
	if r := recover(); r != nil {
		*errp = &Error{
			Kind: KindInternal,
			Code: ErrCodeInternal,
			Msg:  fmt.Sprint(r),
		}
	}
}
