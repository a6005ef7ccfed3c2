package metadata

import (
	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/attr"
	"github.com/monolens/monolens/errors"
)

// Method wraps a native method handle.
type Method struct {
	acc    monolens.Accessor
	handle monolens.Handle

	name  cell[string]
	token cell[uint32]
	class cell[*Class]
	sig   cell[monolens.MethodSignature]
	attrs cell[[]*attr.CustomAttribute]
}

// NewMethod wraps a method handle. The handle must be non-nil.
func NewMethod(acc monolens.Accessor, h monolens.Handle) (*Method, error) {
	if h.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil method handle")
	}
	return &Method{acc: acc, handle: h}, nil
}

func (m *Method) Handle() monolens.Handle { return m.handle }

// Accessor exposes the underlying runtime accessor, letting callers
// probe it for optional capabilities.
func (m *Method) Accessor() monolens.Accessor { return m.acc }

func (m *Method) Name() (string, error) {
	return m.name.get(func() (string, error) {
		name, err := m.acc.MethodName(m.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "method name")
		}
		return name, nil
	})
}

func (m *Method) Token() (uint32, error) {
	return m.token.get(func() (uint32, error) {
		tok, err := m.acc.MethodToken(m.handle)
		if err != nil {
			return 0, errors.ReadFault(errors.PhaseResolve, err, "method token")
		}
		return tok, nil
	})
}

// Class returns the declaring class.
func (m *Method) Class() (*Class, error) {
	return m.class.get(func() (*Class, error) {
		h, err := m.acc.MethodClass(m.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "method class")
		}
		return NewClass(m.acc, h)
	})
}

// Signature returns the resolved parameter and return types. Individual
// parameters the runtime could not resolve carry the zero TypeRef.
func (m *Method) Signature() (monolens.MethodSignature, error) {
	return m.sig.get(func() (monolens.MethodSignature, error) {
		sig, err := m.acc.MethodSignature(m.handle)
		if err != nil {
			return monolens.MethodSignature{}, errors.ReadFault(errors.PhaseResolve, err, "method signature")
		}
		return sig, nil
	})
}

// ParamTypes returns the declared parameter types in order.
func (m *Method) ParamTypes() ([]monolens.TypeRef, error) {
	sig, err := m.Signature()
	if err != nil {
		return nil, err
	}
	return sig.Params, nil
}

// Return returns the declared return type.
func (m *Method) Return() (monolens.TypeRef, error) {
	sig, err := m.Signature()
	if err != nil {
		return monolens.TypeRef{}, err
	}
	return sig.Return, nil
}

// FullName renders Namespace.Class::Name.
func (m *Method) FullName() (string, error) {
	name, err := m.Name()
	if err != nil {
		return "", err
	}
	cls, err := m.Class()
	if err != nil {
		return "", err
	}
	full, err := cls.FullName()
	if err != nil {
		return "", err
	}
	return full + "::" + name, nil
}

// CustomAttributes decodes every attribute applied to the method.
func (m *Method) CustomAttributes() ([]*attr.CustomAttribute, error) {
	return m.attrs.get(func() ([]*attr.CustomAttribute, error) {
		return decodeAttributes(m.acc, m.handle, m.describe())
	})
}

func (m *Method) describe() string {
	full, err := m.FullName()
	if err != nil {
		return m.handle.String()
	}
	return full
}
