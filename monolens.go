package monolens

import (
	"fmt"

	"github.com/microsoft/go-winmd/flags"
)

// Handle is an opaque, non-owning reference to a native metadata record
// (assembly, image, class, method, field, property) inside the inspected
// runtime. Two handles are the same record exactly when their values are
// equal. The referenced memory belongs to the foreign runtime; this
// library never allocates or frees it.
type Handle uint64

// IsNil reports whether the handle references nothing.
func (h Handle) IsNil() bool { return h == 0 }

func (h Handle) String() string { return fmt.Sprintf("0x%x", uint64(h)) }

// TypeRef describes one type slot in a signature: an ECMA-335 element
// kind plus the defining class and modifier flags. FullName is the
// namespace-qualified name of Class and is populated by whoever resolved
// the reference; it is empty for primitives.
type TypeRef struct {
	Kind        flags.ElementType
	Class       Handle
	FullName    string
	Underlying  *TypeRef // enum underlying primitive, nil otherwise
	IsValueType bool
	ByRef       bool
	Pointer     bool
	Array       bool
}

// PrimitiveType returns a TypeRef for a primitive element kind.
func PrimitiveType(kind flags.ElementType) TypeRef {
	return TypeRef{Kind: kind}
}

// IsPrimitive reports whether the kind is one of the fixed-width or
// string primitives that encode without a defining class.
func (t TypeRef) IsPrimitive() bool {
	switch t.Kind {
	case flags.ElementType_BOOLEAN, flags.ElementType_CHAR,
		flags.ElementType_I1, flags.ElementType_U1,
		flags.ElementType_I2, flags.ElementType_U2,
		flags.ElementType_I4, flags.ElementType_U4,
		flags.ElementType_I8, flags.ElementType_U8,
		flags.ElementType_R4, flags.ElementType_R8,
		flags.ElementType_STRING:
		return true
	}
	return false
}

// IsEnum reports whether the reference resolved to an enum type.
func (t TypeRef) IsEnum() bool { return t.Underlying != nil }

// WidthBytes returns the fixed encoding width of the kind in a
// custom-attribute blob, or 0 when the kind has no fixed width.
func (t TypeRef) WidthBytes() int {
	switch t.Kind {
	case flags.ElementType_BOOLEAN, flags.ElementType_I1, flags.ElementType_U1:
		return 1
	case flags.ElementType_CHAR, flags.ElementType_I2, flags.ElementType_U2:
		return 2
	case flags.ElementType_I4, flags.ElementType_U4, flags.ElementType_R4:
		return 4
	case flags.ElementType_I8, flags.ElementType_U8, flags.ElementType_R8:
		return 8
	}
	return 0
}

// MethodSignature is the resolved shape of a method: calling convention,
// declared parameter types in order, and the return type.
type MethodSignature struct {
	CallConv uint8
	Params   []TypeRef
	Return   TypeRef
}

// ClassFlags is a bitmask of class traits surfaced by the runtime.
type ClassFlags uint32

const (
	ClassAbstract ClassFlags = 1 << iota
	ClassInterface
	ClassValueType
	ClassEnum
	ClassSealed
	ClassBlittable
)

// Has reports whether all bits in mask are set.
func (f ClassFlags) Has(mask ClassFlags) bool { return f&mask == mask }

// AttributeRecord locates one declarative attribute instance: the
// constructor that encodes it and the address/length of its blob in the
// inspected runtime's memory.
type AttributeRecord struct {
	Ctor     Handle
	DataAddr uint64
	DataLen  uint32
}

// MemoryReader reads raw bytes out of the inspected runtime's address
// space. Reads never cross into unmapped memory; a failed read returns
// an error, not a short result.
type MemoryReader interface {
	ReadBytes(addr uint64, n uint32) ([]byte, error)
}

// MetadataReader exposes record-level metadata queries against the
// inspected runtime. Lookup-style queries (ClassByName, ClassByToken)
// return a zero Handle with a nil error for plain absence; a non-nil
// error means the query itself faulted.
//
// All methods take the handle whose record they read. Passing a handle
// of the wrong record kind is undefined behavior runtime-side, so the
// entity wrappers in package metadata are the intended call site.
type MetadataReader interface {
	// Assemblies enumerates the assemblies loaded in the inspected domain.
	Assemblies() ([]Handle, error)
	AssemblyName(asm Handle) (string, error)
	AssemblyImage(asm Handle) (Handle, error)

	ImageName(img Handle) (string, error)
	ImageAssembly(img Handle) (Handle, error)
	ClassByToken(img Handle, token uint32) (Handle, error)
	ClassByName(img Handle, namespace, name string) (Handle, error)

	ClassName(cls Handle) (string, error)
	ClassNamespace(cls Handle) (string, error)
	ClassImage(cls Handle) (Handle, error)
	ClassParent(cls Handle) (Handle, error)
	ClassFlags(cls Handle) (ClassFlags, error)
	ClassToken(cls Handle) (uint32, error)
	ClassInterfaces(cls Handle) ([]Handle, error)
	ClassMethods(cls Handle) ([]Handle, error)
	ClassFields(cls Handle) ([]Handle, error)
	ClassProperties(cls Handle) ([]Handle, error)
	// EnumUnderlyingType resolves the storage primitive of an enum class.
	EnumUnderlyingType(cls Handle) (TypeRef, error)

	MethodName(m Handle) (string, error)
	MethodClass(m Handle) (Handle, error)
	MethodToken(m Handle) (uint32, error)
	MethodSignature(m Handle) (MethodSignature, error)

	FieldName(f Handle) (string, error)
	FieldType(f Handle) (TypeRef, error)
	FieldOffset(f Handle) (uint32, error)

	PropertyName(p Handle) (string, error)
	PropertyGetter(p Handle) (Handle, error)
	PropertySetter(p Handle) (Handle, error)

	// AttributeRecords lists the declarative attributes attached to a
	// class, method, field, property, or assembly handle.
	AttributeRecords(target Handle) ([]AttributeRecord, error)
}

// Accessor is the capability surface every inspection operation needs.
// Optional capabilities (GenericQuerier, TypeNameResolver, GenericBinder,
// Reflector, ExportTable, VersionReporter) are discovered by type
// assertion; their absence is an expected operating condition on reduced
// runtime builds, never a programming error.
type Accessor interface {
	MemoryReader
	MetadataReader
}

// GenericQuerier answers generic-shape questions natively. Runtime
// builds without the underlying exports return Unavailable errors, which
// callers treat as "fall back to name heuristics".
type GenericQuerier interface {
	// IsGenericDefinition reports whether cls is an open generic
	// definition (unbound formal parameters).
	IsGenericDefinition(cls Handle) (bool, error)
	// IsInflated reports whether cls is a constructed instantiation.
	IsInflated(cls Handle) (bool, error)
	GenericParamCount(cls Handle) (int, error)
	GenericArguments(cls Handle) ([]Handle, error)
	MethodGenericParamCount(m Handle) (int, error)
	MethodIsInflated(m Handle) (bool, error)
}

// TypeNameResolver resolves a type by its textual name, including
// composite generic names of the form
// Base`2[[Arg1Full, Arg1Assembly],[Arg2Full, Arg2Assembly]].
// A zero Handle with nil error means the name did not resolve.
type TypeNameResolver interface {
	TypeByName(name string, img Handle) (Handle, error)
}

// GenericBinder binds an encoded instantiation descriptor (see package
// generic) to an open definition, yielding the constructed type or
// method. A zero Handle with nil error means the runtime rejected the
// binding.
type GenericBinder interface {
	BindGenericInst(def Handle, descriptor []byte) (Handle, error)
	BindGenericMethodInst(method Handle, descriptor []byte) (Handle, error)
}

// Reflector instantiates a generic method through the runtime's own
// managed reflection facility. This is the only capability that executes
// managed code; it exists for runtime builds where direct native
// construction is unavailable.
type Reflector interface {
	MakeGenericMethod(method Handle, typeArgs []Handle) (Handle, error)
}

// ExportTable resolves a native export by name, for capability probing.
type ExportTable interface {
	ResolveExport(name string) (uint64, bool)
}

// VersionReporter reports the inspected runtime's build version string.
type VersionReporter interface {
	RuntimeVersion() string
}
