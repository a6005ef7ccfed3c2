// Package exports catalogs the native runtime exports this library
// leans on and probes what a given accessor can actually serve.
//
// Mono builds differ widely: legacy mono.dll, MonoBleedingEdge
// (mono-2.0-bdwgc.dll) and Unity's custom runtimes each export a
// different subset, and several functions grew _internal aliases over
// time. The registry records one Signature per logical capability with
// the alias chain to try; Probe condenses the answers into a
// Capabilities summary the CLI and the instantiation engine can act on.
package exports
