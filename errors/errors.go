package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve     Phase = "resolve"     // entity and member lookup
	PhaseDecode      Phase = "decode"      // custom-attribute blob decoding
	PhaseInstantiate Phase = "instantiate" // generic construction
	PhaseProbe       Phase = "probe"       // capability detection
	PhaseSnapshot    Phase = "snapshot"    // snapshot loading
)

// Kind categorizes the error
type Kind string

const (
	// KindNotFound: a member or type lookup failed. Required-form lookup
	// APIs raise it with a nearest-name suggestion; try-forms never do.
	KindNotFound Kind = "not_found"
	// KindMalformed: bad prolog, invalid length prefix, truncated blob.
	// Always recoverable; decoding yields a partial or empty result.
	KindMalformed Kind = "malformed"
	// KindArityMismatch: wrong type-argument count for an instantiation,
	// reported before any native construction is attempted.
	KindArityMismatch Kind = "arity_mismatch"
	// KindUnavailable: an expected native capability is missing on this
	// runtime build. Triggers the next fallback strategy, never fatal.
	KindUnavailable Kind = "unavailable"
	// KindReadFault: the accessor failed to answer a memory or metadata
	// query it should have been able to answer.
	KindReadFault Kind = "read_fault"
	// KindInvalidInput: a caller-side contract violation.
	KindInvalidInput Kind = "invalid_input"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause      error
	Phase      Phase
	Kind       Kind
	Detail     string
	Suggestion string // nearest-name hint for not_found errors
	Offset     int    // byte offset for blob errors, -1 when meaningless
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Suggestion sets the nearest-name hint
func (b *Builder) Suggestion(s string) *Builder {
	b.err.Suggestion = s
	return b
}

// Offset sets the blob byte offset
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error for a named lookup.
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Offset: -1,
	}
}

// NotFoundWithSuggestion creates a not-found error carrying a
// nearest-name hint.
func NotFoundWithSuggestion(phase Phase, what, name, suggestion string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindNotFound,
		Detail:     fmt.Sprintf("%s %q not found", what, name),
		Suggestion: suggestion,
		Offset:     -1,
	}
}

// Malformed creates a malformed-input error at a blob offset.
func Malformed(offset int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformed,
		Detail: fmt.Sprintf(detail, args...),
		Offset: offset,
	}
}

// Truncated creates a malformed-input error for a read that ran past the
// declared end of the blob.
func Truncated(offset, want, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformed,
		Detail: fmt.Sprintf("need %d bytes, %d remain", want, have),
		Offset: offset,
	}
}

// ArityMismatch creates an arity-mismatch error for an instantiation.
func ArityMismatch(want, got int) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindArityMismatch,
		Detail: fmt.Sprintf("definition declares %d type parameters, got %d arguments", want, got),
		Offset: -1,
	}
}

// Unavailable creates an error for a missing native capability.
func Unavailable(phase Phase, capability string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnavailable,
		Detail: fmt.Sprintf("%s is not available on this runtime build", capability),
		Offset: -1,
	}
}

// ReadFault wraps an accessor failure.
func ReadFault(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReadFault,
		Detail: detail,
		Cause:  cause,
		Offset: -1,
	}
}

// InvalidInput creates an invalid-input error
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf(detail, args...),
		Offset: -1,
	}
}

// Predicates used to drive fallback logic.

// IsNotFound reports whether err is a not_found error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsMalformed reports whether err is a malformed-input error.
func IsMalformed(err error) bool { return hasKind(err, KindMalformed) }

// IsArityMismatch reports whether err is an arity-mismatch error.
func IsArityMismatch(err error) bool { return hasKind(err, KindArityMismatch) }

// IsUnavailable reports whether err marks a missing native capability.
func IsUnavailable(err error) bool { return hasKind(err, KindUnavailable) }

func hasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
