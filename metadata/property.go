package metadata

import (
	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/attr"
	"github.com/monolens/monolens/errors"
)

// Property wraps a native property handle.
type Property struct {
	acc    monolens.Accessor
	handle monolens.Handle

	name   cell[string]
	getter cell[*Method]
	setter cell[*Method]
	attrs  cell[[]*attr.CustomAttribute]
}

// NewProperty wraps a property handle. The handle must be non-nil.
func NewProperty(acc monolens.Accessor, h monolens.Handle) (*Property, error) {
	if h.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil property handle")
	}
	return &Property{acc: acc, handle: h}, nil
}

func (p *Property) Handle() monolens.Handle { return p.handle }

func (p *Property) Name() (string, error) {
	return p.name.get(func() (string, error) {
		name, err := p.acc.PropertyName(p.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "property name")
		}
		return name, nil
	})
}

// Getter returns the get accessor, or nil when the property has none.
func (p *Property) Getter() (*Method, error) {
	return p.getter.get(func() (*Method, error) {
		h, err := p.acc.PropertyGetter(p.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "property getter")
		}
		if h.IsNil() {
			return nil, nil
		}
		return NewMethod(p.acc, h)
	})
}

// Setter returns the set accessor, or nil when the property has none.
func (p *Property) Setter() (*Method, error) {
	return p.setter.get(func() (*Method, error) {
		h, err := p.acc.PropertySetter(p.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "property setter")
		}
		if h.IsNil() {
			return nil, nil
		}
		return NewMethod(p.acc, h)
	})
}

// CustomAttributes decodes every attribute applied to the property.
func (p *Property) CustomAttributes() ([]*attr.CustomAttribute, error) {
	return p.attrs.get(func() ([]*attr.CustomAttribute, error) {
		name, err := p.Name()
		if err != nil {
			name = p.handle.String()
		}
		return decodeAttributes(p.acc, p.handle, "property "+name)
	})
}
