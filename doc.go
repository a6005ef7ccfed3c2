// Package monolens inspects the type metadata of a live Mono runtime
// (classes, members, and declarative attributes) without modifying or
// recompiling the inspected process.
//
// # Architecture Overview
//
// The library is organized into focused packages:
//
//	monolens/         Root package with Handle, TypeRef and the Accessor
//	                  capability interfaces
//	├── metadata/     Lazy, cached entity wrappers (Assembly, Image,
//	│                 Class, Method, Field, Property)
//	├── attr/         ECMA-335 custom-attribute blob decoder (II.23.3)
//	├── generic/      Generic definition/instantiation classification and
//	│                 construction
//	├── exports/      Known runtime export registry and capability probe
//	├── snapshot/     Recorded-image Accessor for offline inspection
//	├── errors/       Structured error types for debugging
//	└── cmd/monolens/ CLI for browsing snapshots
//
// # Quick Start
//
// Wrap an Accessor (live bridge or snapshot) and navigate:
//
//	acc := snapshot.New(snap)
//	cls, err := metadata.FindClass(acc, "Game", "Boss")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	attrs, _ := cls.CustomAttributes()
//	for _, a := range attrs {
//	    fmt.Println(a.FullTypeName, a.CtorArgs)
//	}
//
// # Capability Model
//
// Everything the library does flows through the Accessor interfaces
// declared in this package. The required base (MemoryReader +
// MetadataReader) covers naming, member enumeration and attribute blobs.
// Optional capabilities are discovered by type assertion: a runtime
// build that cannot answer generic queries natively simply doesn't
// implement GenericQuerier, and callers fall back to name heuristics.
// Capability absence is an operating condition, not an error.
//
// # Thread Safety
//
// Entity wrappers memoize lazily and are NOT safe for concurrent use.
// A single logical caller is assumed; synchronize externally if needed.
// No operation blocks, suspends, or performs I/O beyond the Accessor.
package monolens
