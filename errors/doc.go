// Package errors provides structured error types for the monolens library.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The four kinds the rest of the library is written
// against: not_found (lookup misses, with a nearest-name suggestion on
// required-form APIs), malformed (bad blob input; always recoverable),
// arity_mismatch (instantiation contract violations, raised before any
// native call), and unavailable (a capability this runtime build lacks;
// callers fall through to the next strategy).
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformed).
//		Offset(12).
//		Detail("invalid SerString prefix 0xE0").
//		Build()
//
// Or the convenience constructors:
//
//	err := errors.NotFoundWithSuggestion(errors.PhaseResolve, "method", "Updaet", "Update")
//	err := errors.Truncated(20, 8, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
