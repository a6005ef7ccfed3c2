package metadata

import (
	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/attr"
	"github.com/monolens/monolens/errors"
)

// Field wraps a native field handle.
type Field struct {
	acc    monolens.Accessor
	handle monolens.Handle

	name   cell[string]
	typ    cell[monolens.TypeRef]
	offset cell[uint32]
	attrs  cell[[]*attr.CustomAttribute]
}

// NewField wraps a field handle. The handle must be non-nil.
func NewField(acc monolens.Accessor, h monolens.Handle) (*Field, error) {
	if h.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil field handle")
	}
	return &Field{acc: acc, handle: h}, nil
}

func (f *Field) Handle() monolens.Handle { return f.handle }

func (f *Field) Name() (string, error) {
	return f.name.get(func() (string, error) {
		name, err := f.acc.FieldName(f.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "field name")
		}
		return name, nil
	})
}

func (f *Field) Type() (monolens.TypeRef, error) {
	return f.typ.get(func() (monolens.TypeRef, error) {
		t, err := f.acc.FieldType(f.handle)
		if err != nil {
			return monolens.TypeRef{}, errors.ReadFault(errors.PhaseResolve, err, "field type")
		}
		return t, nil
	})
}

// Offset is the field's byte offset within an instance, including the
// object header for reference types.
func (f *Field) Offset() (uint32, error) {
	return f.offset.get(func() (uint32, error) {
		off, err := f.acc.FieldOffset(f.handle)
		if err != nil {
			return 0, errors.ReadFault(errors.PhaseResolve, err, "field offset")
		}
		return off, nil
	})
}

// CustomAttributes decodes every attribute applied to the field.
func (f *Field) CustomAttributes() ([]*attr.CustomAttribute, error) {
	return f.attrs.get(func() ([]*attr.CustomAttribute, error) {
		name, err := f.Name()
		if err != nil {
			name = f.handle.String()
		}
		return decodeAttributes(f.acc, f.handle, "field "+name)
	})
}
