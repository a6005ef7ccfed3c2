package snapshot

import (
	"github.com/microsoft/go-winmd/flags"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

// Snapshot is the top-level document: one runtime description plus the
// recorded assemblies.
type Snapshot struct {
	Runtime    RuntimeRec    `json:"runtime"`
	Assemblies []AssemblyRec `json:"assemblies"`
}

// RuntimeRec describes the build the snapshot was captured from.
// PointerSize is 4 or 8; zero means 8. Exports lists the native symbol
// names the capture found in the runtime module.
type RuntimeRec struct {
	Version     string   `json:"version,omitempty"`
	PointerSize int      `json:"pointer_size,omitempty"`
	Exports     []string `json:"exports,omitempty"`
}

// AssemblyRec records one assembly and its single image.
type AssemblyRec struct {
	Name  string   `json:"name"`
	Image ImageRec `json:"image"`
}

// ImageRec records one image and the classes it defines.
type ImageRec struct {
	Name    string     `json:"name"`
	Classes []ClassRec `json:"classes,omitempty"`
}

// ClassRec records one class. Parent and Interfaces reference other
// classes in the same snapshot by namespace-qualified full name.
// EnumUnderlying names the storage kind for enum classes ("u1", "i4").
type ClassRec struct {
	Token          uint32        `json:"token,omitempty"`
	Namespace      string        `json:"namespace,omitempty"`
	Name           string        `json:"name"`
	Parent         string        `json:"parent,omitempty"`
	Flags          []string      `json:"flags,omitempty"`
	GenericArity   int           `json:"generic_arity,omitempty"`
	Inflated       bool          `json:"inflated,omitempty"`
	EnumUnderlying string        `json:"enum_underlying,omitempty"`
	Interfaces     []string      `json:"interfaces,omitempty"`
	Fields         []FieldRec    `json:"fields,omitempty"`
	Methods        []MethodRec   `json:"methods,omitempty"`
	Properties     []PropertyRec `json:"properties,omitempty"`
	Attributes     []AttrRec     `json:"attributes,omitempty"`
}

// FieldRec records one instance field.
type FieldRec struct {
	Name       string    `json:"name"`
	Type       TypeRec   `json:"type"`
	Offset     uint32    `json:"offset,omitempty"`
	Attributes []AttrRec `json:"attributes,omitempty"`
}

// MethodRec records one method. An empty Return kind means void.
type MethodRec struct {
	Name         string    `json:"name"`
	Token        uint32    `json:"token,omitempty"`
	GenericArity int       `json:"generic_arity,omitempty"`
	Params       []TypeRec `json:"params,omitempty"`
	Return       TypeRec   `json:"return"`
	Attributes   []AttrRec `json:"attributes,omitempty"`
}

// PropertyRec records one property. Getter and Setter name accessor
// methods declared on the same class.
type PropertyRec struct {
	Name       string    `json:"name"`
	Getter     string    `json:"getter,omitempty"`
	Setter     string    `json:"setter,omitempty"`
	Attributes []AttrRec `json:"attributes,omitempty"`
}

// TypeRec encodes one type slot. Kind is an ECMA-335 element mnemonic;
// arrays keep the element mnemonic in Kind and set Array. Class carries
// the defining class full name and is required for the "class" and
// "valuetype" kinds.
type TypeRec struct {
	Kind    string `json:"kind"`
	Class   string `json:"class,omitempty"`
	ByRef   bool   `json:"byref,omitempty"`
	Pointer bool   `json:"pointer,omitempty"`
	Array   bool   `json:"array,omitempty"`
}

// AttrRec locates one custom attribute: the constructor as
// "Namespace.Type::.ctor" and the raw blob, base64 encoded.
type AttrRec struct {
	Ctor string `json:"ctor"`
	Blob string `json:"blob"`
}

var kindByName = map[string]flags.ElementType{
	"void":      flags.ElementType_VOID,
	"boolean":   flags.ElementType_BOOLEAN,
	"char":      flags.ElementType_CHAR,
	"i1":        flags.ElementType_I1,
	"u1":        flags.ElementType_U1,
	"i2":        flags.ElementType_I2,
	"u2":        flags.ElementType_U2,
	"i4":        flags.ElementType_I4,
	"u4":        flags.ElementType_U4,
	"i8":        flags.ElementType_I8,
	"u8":        flags.ElementType_U8,
	"r4":        flags.ElementType_R4,
	"r8":        flags.ElementType_R8,
	"string":    flags.ElementType_STRING,
	"object":    flags.ElementType_OBJECT,
	"class":     flags.ElementType_CLASS,
	"valuetype": flags.ElementType_VALUETYPE,
	"szarray":   flags.ElementType_SZARRAY,
}

// parseKind maps an element mnemonic to its tag. The empty string reads
// as void so method records can omit the return slot.
func parseKind(name string) (flags.ElementType, bool) {
	if name == "" {
		return flags.ElementType_VOID, true
	}
	k, ok := kindByName[name]
	return k, ok
}

var classFlagByName = map[string]monolens.ClassFlags{
	"abstract":  monolens.ClassAbstract,
	"interface": monolens.ClassInterface,
	"valuetype": monolens.ClassValueType,
	"enum":      monolens.ClassEnum,
	"sealed":    monolens.ClassSealed,
	"blittable": monolens.ClassBlittable,
}

func parseClassFlags(names []string) (monolens.ClassFlags, error) {
	var f monolens.ClassFlags
	for _, name := range names {
		bit, ok := classFlagByName[name]
		if !ok {
			return 0, errors.New(errors.PhaseSnapshot, errors.KindMalformed).
				Detail("unknown class flag %q", name).Build()
		}
		f |= bit
	}
	return f, nil
}

// joinName builds the namespace-qualified full name used for class
// references throughout the snapshot.
func joinName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}
