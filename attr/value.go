package attr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Decoded argument values form a small closed union. Every variant
// implements Value; consumers type-switch over the concrete types.

// Value is one decoded custom-attribute argument.
type Value interface {
	isValue()
	String() string
}

// Null is a null string, null array, or null boxed slot.
type Null struct{}

func (Null) isValue()       {}
func (Null) String() string { return "null" }

// Bool is a decoded boolean (any nonzero byte is true).
type Bool bool

func (Bool) isValue() {}
func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}

// Char is a UTF-16 code unit.
type Char uint16

func (Char) isValue() {}
func (v Char) String() string { return strconv.QuoteRune(rune(v)) }

// Int is a signed integer of declared width (1, 2, 4, or 8 bytes),
// sign-extended into an int64. The full 64-bit range is preserved.
type Int struct {
	Value int64
	Width uint8
}

func (Int) isValue() {}
func (v Int) String() string { return strconv.FormatInt(v.Value, 10) }

// Uint is an unsigned integer of declared width (1, 2, 4, or 8 bytes).
type Uint struct {
	Value uint64
	Width uint8
}

func (Uint) isValue() {}
func (v Uint) String() string { return strconv.FormatUint(v.Value, 10) }

// Float32 is a 4-byte IEEE value.
type Float32 float32

func (Float32) isValue() {}
func (v Float32) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// Float64 is an 8-byte IEEE value.
type Float64 float64

func (Float64) isValue() {}
func (v Float64) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

// String is a non-null SerString value.
type String string

func (String) isValue() {}
func (v String) String() string { return strconv.Quote(string(v)) }

// TypeReference is a serialized System.Type argument: the assembly
// qualified or namespace-qualified name the blob carried.
type TypeReference struct {
	FullName string
}

func (TypeReference) isValue() {}
func (v TypeReference) String() string { return "typeof(" + v.FullName + ")" }

// Enum is an enum argument: the enum's full type name plus its value
// decoded at the width of the underlying integer type.
type Enum struct {
	TypeName string
	Value    Value
}

func (Enum) isValue() {}
func (v Enum) String() string {
	return v.TypeName + "(" + v.Value.String() + ")"
}

// Array is a non-null SZARRAY of decoded elements. A zero-length array
// is Array{} with empty Elems; a null array decodes to Null.
type Array struct {
	Elems []Value
}

func (Array) isValue() {}
func (v Array) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CustomAttribute is one decoded attribute: constructor arguments in
// blob order plus named field/property overrides. Name and FullTypeName
// identify the attribute class and are filled by the caller that
// resolved the constructor; Decode leaves them empty.
type CustomAttribute struct {
	Name         string
	FullTypeName string
	CtorArgs     []Value
	NamedArgs    map[string]Value
}

// String renders the attribute the way it would appear in source,
// with named arguments sorted for stable output.
func (a *CustomAttribute) String() string {
	var b strings.Builder
	if a.FullTypeName != "" {
		b.WriteString(a.FullTypeName)
	} else {
		b.WriteString(a.Name)
	}
	b.WriteByte('(')
	sep := ""
	for _, v := range a.CtorArgs {
		b.WriteString(sep)
		b.WriteString(v.String())
		sep = ", "
	}
	names := make([]string, 0, len(a.NamedArgs))
	for name := range a.NamedArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(sep)
		fmt.Fprintf(&b, "%s = %s", name, a.NamedArgs[name].String())
		sep = ", "
	}
	b.WriteByte(')')
	return b.String()
}
