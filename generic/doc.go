// Package generic classifies generic types and constructs closed
// instantiations from open definitions.
//
// Classification prefers the accessor's native GenericQuerier capability
// and falls back to parsing the CLR backtick-arity suffix out of the
// simple name, so it keeps working on runtime builds that expose no
// generics exports. Construction is driven by Engine, which tries a
// name-based resolution strategy first and a binary descriptor binding
// second; running out of strategies yields an absent handle, not an
// error. The descriptor wire format lives in InstDescriptor and never
// leaks past this package.
package generic
