package attr

import (
	"github.com/microsoft/go-winmd/flags"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

// Prolog is the mandatory little-endian u16 at the start of every
// custom-attribute blob (ECMA-335 II.23.3).
const Prolog uint16 = 0x0001

// nullArray is the element-count sentinel for a null SZARRAY.
const nullArray uint32 = 0xFFFFFFFF

// maxNesting bounds type recursion. Tagged objects and array element
// descriptors nest one byte per level, so hostile input could otherwise
// drive the stack as deep as the blob is long.
const maxNesting = 64

// Element tags that exist only inside attribute blobs. They extend the
// II.23.1.16 set go-winmd covers.
const (
	elemSystemType flags.ElementType = 0x50 // serialized System.Type
	elemBoxed      flags.ElementType = 0x51 // tagged object slot
	elemField      flags.ElementType = 0x53 // named-argument FIELD marker
	elemProperty   flags.ElementType = 0x54 // named-argument PROPERTY marker
	elemEnum       flags.ElementType = 0x55 // enum, type name follows
)

// EnumResolver maps an enum's full type name to its underlying
// primitive type. Named arguments carry only the enum's name, so the
// decoder needs outside help to pick the value width.
type EnumResolver interface {
	EnumUnderlying(fullName string) (monolens.TypeRef, bool)
}

// DecodeOptions tune a single Decode call.
type DecodeOptions struct {
	// Enums resolves enum names in named arguments and boxed slots.
	// When nil, or when a name does not resolve, enum bodies decode at
	// int32 width, which is the CLR default.
	Enums EnumResolver

	// StrictFixedArgs makes an unresolved constructor parameter type an
	// error. The default reads such arguments as plain 4-byte signed
	// integers, which keeps the cursor aligned for int-like parameters
	// and garbles wider ones.
	StrictFixedArgs bool
}

// Decode parses one custom-attribute blob.
//
// params are the constructor's parameter types in order; they drive
// fixed-argument decoding. A parameter whose type could not be resolved
// has the zero Kind and falls back per DecodeOptions.
//
// A bad prolog returns (nil, error). Any later failure returns the
// partial result decoded so far together with the first unrecoverable
// error, so callers keep whatever arguments were intact.
func Decode(blob []byte, size uint32, params []monolens.TypeRef, opts DecodeOptions) (*CustomAttribute, error) {
	r := newReader(blob, size)
	prolog := r.u16()
	if err := r.err(); err != nil {
		return nil, err
	}
	if prolog != Prolog {
		return nil, errors.Malformed(0, "bad prolog 0x%04X", prolog)
	}

	d := &decoder{r: r, opts: opts}
	ca := &CustomAttribute{NamedArgs: make(map[string]Value)}

	if opts.StrictFixedArgs {
		for i, p := range params {
			if unresolved(p) {
				return nil, errors.InvalidInput(errors.PhaseDecode,
					"constructor parameter %d has unresolved type", i)
			}
		}
	}

	for i := range params {
		v, err := d.fixedArg(params[i])
		if err != nil {
			return ca, err
		}
		ca.CtorArgs = append(ca.CtorArgs, v)
	}

	numNamed := r.u16()
	if err := r.err(); err != nil {
		return ca, err
	}
	for i := 0; i < int(numNamed); i++ {
		ok, err := d.namedArg(ca)
		if err != nil {
			return ca, err
		}
		if !ok {
			break
		}
	}
	return ca, nil
}

type decoder struct {
	r     *reader
	opts  DecodeOptions
	depth int
}

func unresolved(t monolens.TypeRef) bool {
	return t.Kind == flags.ElementType_END && !t.Array && t.Underlying == nil
}

// fixedArg decodes one constructor argument typed by its parameter.
func (d *decoder) fixedArg(t monolens.TypeRef) (Value, error) {
	if d.depth >= maxNesting {
		return nil, errors.Malformed(d.r.off, "nesting deeper than %d levels", maxNesting)
	}
	d.depth++
	defer func() { d.depth-- }()

	if t.Array {
		elem := t
		elem.Array = false
		return d.arrayOf(func() (Value, error) { return d.fixedArg(elem) })
	}
	if t.IsEnum() {
		inner, err := d.fixedArg(*t.Underlying)
		if err != nil {
			return nil, err
		}
		return Enum{TypeName: t.FullName, Value: inner}, nil
	}
	switch t.Kind {
	case flags.ElementType_STRING:
		return d.stringValue()
	case flags.ElementType_OBJECT, elemBoxed:
		return d.boxed()
	case elemSystemType:
		return d.typeValue()
	case flags.ElementType_CLASS:
		if t.FullName == "System.Type" {
			return d.typeValue()
		}
		return nil, errors.Malformed(d.r.off,
			"constructor parameter of class %s is not encodable", t.FullName)
	case flags.ElementType_END:
		// Unresolved parameter type: read 4 bytes as a signed integer
		// so later arguments of int width stay aligned.
		v := d.r.i32()
		if err := d.r.err(); err != nil {
			return nil, err
		}
		return Int{Value: int64(v), Width: 4}, nil
	default:
		return d.primitive(t.Kind)
	}
}

// primitive decodes a value whose tag is one of the plain II.23.1.16
// primitives. Anything else is malformed.
func (d *decoder) primitive(kind flags.ElementType) (Value, error) {
	r := d.r
	at := r.off
	var v Value
	switch kind {
	case flags.ElementType_BOOLEAN:
		v = Bool(r.u8() != 0)
	case flags.ElementType_CHAR:
		v = Char(r.u16())
	case flags.ElementType_I1:
		v = Int{Value: int64(r.i8()), Width: 1}
	case flags.ElementType_U1:
		v = Uint{Value: uint64(r.u8()), Width: 1}
	case flags.ElementType_I2:
		v = Int{Value: int64(r.i16()), Width: 2}
	case flags.ElementType_U2:
		v = Uint{Value: uint64(r.u16()), Width: 2}
	case flags.ElementType_I4:
		v = Int{Value: int64(r.i32()), Width: 4}
	case flags.ElementType_U4:
		v = Uint{Value: uint64(r.u32()), Width: 4}
	case flags.ElementType_I8:
		v = Int{Value: r.i64(), Width: 8}
	case flags.ElementType_U8:
		v = Uint{Value: r.u64(), Width: 8}
	case flags.ElementType_R4:
		v = Float32(r.f32())
	case flags.ElementType_R8:
		v = Float64(r.f64())
	default:
		return nil, errors.Malformed(at, "unsupported element tag 0x%02X", uint8(kind))
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return v, nil
}

func (d *decoder) stringValue() (Value, error) {
	s, isNull, err := d.r.serString()
	if err != nil {
		return nil, err
	}
	if isNull {
		return Null{}, nil
	}
	return String(s), nil
}

func (d *decoder) typeValue() (Value, error) {
	s, isNull, err := d.r.serString()
	if err != nil {
		return nil, err
	}
	if isNull {
		return Null{}, nil
	}
	return TypeReference{FullName: s}, nil
}

// boxed decodes a tagged-object slot: a full type descriptor, then the
// value it describes.
func (d *decoder) boxed() (Value, error) {
	ft, err := d.fieldType()
	if err != nil {
		return nil, err
	}
	return d.typedValue(ft)
}

// arrayOf decodes an SZARRAY body: u32 element count, 0xFFFFFFFF for
// null, then count elements.
func (d *decoder) arrayOf(elem func() (Value, error)) (Value, error) {
	at := d.r.off
	count := d.r.u32()
	if err := d.r.err(); err != nil {
		return nil, err
	}
	if count == nullArray {
		return Null{}, nil
	}
	if int(count) < 0 || int(count) > d.r.remaining() {
		return nil, errors.Malformed(at,
			"array count %d exceeds %d remaining bytes", count, d.r.remaining())
	}
	arr := Array{Elems: make([]Value, 0, count)}
	for i := uint32(0); i < count; i++ {
		v, err := elem()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, v)
	}
	return arr, nil
}

// fieldType is the parsed type descriptor that precedes a named
// argument's name, or fills a boxed slot.
type fieldType struct {
	tag      flags.ElementType
	elem     *fieldType
	enumName string
}

func (d *decoder) fieldType() (*fieldType, error) {
	if d.depth >= maxNesting {
		return nil, errors.Malformed(d.r.off, "nesting deeper than %d levels", maxNesting)
	}
	d.depth++
	defer func() { d.depth-- }()

	at := d.r.off
	tag := flags.ElementType(d.r.u8())
	if err := d.r.err(); err != nil {
		return nil, err
	}
	switch tag {
	case flags.ElementType_SZARRAY:
		elem, err := d.fieldType()
		if err != nil {
			return nil, err
		}
		return &fieldType{tag: tag, elem: elem}, nil
	case elemEnum:
		name, isNull, err := d.r.serString()
		if err != nil {
			return nil, err
		}
		if isNull {
			return nil, errors.Malformed(at, "enum slot has null type name")
		}
		return &fieldType{tag: tag, enumName: name}, nil
	default:
		return &fieldType{tag: tag}, nil
	}
}

// typedValue decodes a value per a parsed type descriptor.
func (d *decoder) typedValue(ft *fieldType) (Value, error) {
	if d.depth >= maxNesting {
		return nil, errors.Malformed(d.r.off, "nesting deeper than %d levels", maxNesting)
	}
	d.depth++
	defer func() { d.depth-- }()

	switch ft.tag {
	case flags.ElementType_SZARRAY:
		return d.arrayOf(func() (Value, error) { return d.typedValue(ft.elem) })
	case elemEnum:
		return d.enumValue(ft.enumName)
	case elemBoxed, flags.ElementType_OBJECT:
		return d.boxed()
	case flags.ElementType_STRING:
		return d.stringValue()
	case elemSystemType:
		return d.typeValue()
	default:
		return d.primitive(ft.tag)
	}
}

// enumValue decodes an enum body at the width of its underlying type.
func (d *decoder) enumValue(name string) (Value, error) {
	under := monolens.PrimitiveType(flags.ElementType_I4)
	if d.opts.Enums != nil {
		if t, ok := d.opts.Enums.EnumUnderlying(name); ok && t.WidthBytes() != 0 {
			under = t
		}
	}
	inner, err := d.primitive(under.Kind)
	if err != nil {
		return nil, err
	}
	return Enum{TypeName: name, Value: inner}, nil
}

// namedArg decodes one FIELD or PROPERTY entry into ca. A marker byte
// other than the two defined ones stops named-argument decoding without
// error: past that point the layout is unknowable.
func (d *decoder) namedArg(ca *CustomAttribute) (bool, error) {
	marker := flags.ElementType(d.r.u8())
	if err := d.r.err(); err != nil {
		return false, err
	}
	if marker != elemField && marker != elemProperty {
		return false, nil
	}
	ft, err := d.fieldType()
	if err != nil {
		return false, err
	}
	at := d.r.off
	name, isNull, err := d.r.serString()
	if err != nil {
		return false, err
	}
	if isNull || name == "" {
		return false, errors.Malformed(at, "named argument has empty name")
	}
	v, err := d.typedValue(ft)
	if err != nil {
		return false, err
	}
	ca.NamedArgs[name] = v
	return true, nil
}
