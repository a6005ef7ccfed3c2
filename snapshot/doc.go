// Package snapshot loads previously captured runtime metadata and
// replays it through the monolens.Accessor surface, so every inspection
// feature works offline against a JSON document instead of a live
// process.
//
// A snapshot records assemblies, classes, members and raw attribute
// blobs. New synthesizes a stable handle per record and places blob
// bytes at synthesized addresses, which keeps ReadBytes as the real
// read path during attribute decoding. The accessor also answers the
// GenericQuerier, TypeNameResolver, ExportTable and VersionReporter
// capabilities from recorded data; GenericBinder and Reflector stay
// absent because a recording cannot mint new runtime structures.
package snapshot
