// Package attr decodes ECMA-335 custom-attribute blobs (II.23.3).
//
// Use Decode with the constructor's parameter types to turn a raw blob
// into typed constructor arguments and named field/property overrides.
// Decoding is purely structural: the package never touches a runtime,
// so callers resolve constructors and enum underlying types themselves
// and pass them in through the parameter list and DecodeOptions.
//
// Blobs come from untrusted process memory. Every read is bounded by
// the declared blob size; a read past the end yields zero values, still
// advances the cursor by the declared width, and latches the offset of
// the first overrun. Decode stops at the first unrecoverable error and
// returns whatever arguments were already intact.
package attr
