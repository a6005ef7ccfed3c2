package metadata

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

// Image wraps a native image handle. Classes are looked up by name or
// token; bulk enumeration is deliberately absent because live runtimes
// cannot do it cheaply.
type Image struct {
	acc    monolens.Accessor
	handle monolens.Handle

	name     cell[string]
	assembly cell[*Assembly]
}

// NewImage wraps an image handle. The handle must be non-nil.
func NewImage(acc monolens.Accessor, h monolens.Handle) (*Image, error) {
	if h.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil image handle")
	}
	return &Image{acc: acc, handle: h}, nil
}

func (i *Image) Handle() monolens.Handle { return i.handle }

func (i *Image) Name() (string, error) {
	return i.name.get(func() (string, error) {
		name, err := i.acc.ImageName(i.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "image name")
		}
		return name, nil
	})
}

func (i *Image) Assembly() (*Assembly, error) {
	return i.assembly.get(func() (*Assembly, error) {
		h, err := i.acc.ImageAssembly(i.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "image assembly")
		}
		return NewAssembly(i.acc, h)
	})
}

// TryClass looks up namespace.name and reports absence instead of
// failing: accessor faults are logged at debug level and read as "not
// here", which lets callers probe many images without error plumbing.
func (i *Image) TryClass(namespace, name string) (*Class, bool) {
	h, err := i.acc.ClassByName(i.handle, namespace, name)
	if err != nil {
		Logger().Debug("class lookup failed",
			zap.String("class", joinTypeName(namespace, name)),
			zap.Stringer("image", i.handle),
			zap.Error(err))
		return nil, false
	}
	if h.IsNil() {
		return nil, false
	}
	cls, err := NewClass(i.acc, h)
	if err != nil {
		return nil, false
	}
	return cls, true
}

// Class looks up namespace.name and fails with a not-found error when
// the image has no such class.
func (i *Image) Class(namespace, name string) (*Class, error) {
	h, err := i.acc.ClassByName(i.handle, namespace, name)
	if err != nil {
		return nil, errors.ReadFault(errors.PhaseResolve, err,
			fmt.Sprintf("lookup of class %s", joinTypeName(namespace, name)))
	}
	if h.IsNil() {
		return nil, errors.NotFound(errors.PhaseResolve, "class", joinTypeName(namespace, name))
	}
	return NewClass(i.acc, h)
}

// ClassByToken resolves a metadata token (0x02NNNNNN TypeDef) within
// this image.
func (i *Image) ClassByToken(token uint32) (*Class, error) {
	h, err := i.acc.ClassByToken(i.handle, token)
	if err != nil {
		return nil, errors.ReadFault(errors.PhaseResolve, err,
			fmt.Sprintf("lookup of token 0x%08X", token))
	}
	if h.IsNil() {
		return nil, errors.NotFound(errors.PhaseResolve, "token", fmt.Sprintf("0x%08X", token))
	}
	return NewClass(i.acc, h)
}

// joinTypeName renders a namespace-qualified type name; the namespace
// may be empty.
func joinTypeName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// splitTypeName reverses joinTypeName on the last dot.
func splitTypeName(full string) (namespace, name string) {
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		return full[:idx], full[idx+1:]
	}
	return "", full
}
