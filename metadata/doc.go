// Package metadata wraps native metadata handles in lazy entity types.
//
// An Assembly, Image, Class, Method, Field, or Property is a thin pair
// of (accessor, handle). Property getters hit the accessor on first use
// and memoize the outcome in write-once cells, so hierarchy walks and
// repeated attribute queries touch the inspected runtime once per fact.
// Wrappers are not safe for concurrent use; run each inspection
// session on a single goroutine.
//
// Lookups come in pairs. The Try form (TryClass, TryMethod, TryField,
// TryProperty) reports absence as a boolean and treats accessor faults
// as absence, logging them at debug level. The required form returns a
// not-found error that carries a nearest-name suggestion when a sibling
// member comes close.
//
// Hierarchy predicates (IsSubclassOf, IsAssignableFrom) keep a visited
// set keyed by handle, so cyclic parent or interface graphs in corrupt
// runtimes terminate with a negative answer instead of hanging.
package metadata
