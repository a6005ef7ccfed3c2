package metadata

import (
	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

// Assembly wraps a native assembly handle.
type Assembly struct {
	acc    monolens.Accessor
	handle monolens.Handle

	name  cell[string]
	image cell[*Image]
}

// NewAssembly wraps an assembly handle. The handle must be non-nil.
func NewAssembly(acc monolens.Accessor, h monolens.Handle) (*Assembly, error) {
	if h.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil assembly handle")
	}
	return &Assembly{acc: acc, handle: h}, nil
}

func (a *Assembly) Handle() monolens.Handle { return a.handle }

func (a *Assembly) Name() (string, error) {
	return a.name.get(func() (string, error) {
		name, err := a.acc.AssemblyName(a.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "assembly name")
		}
		return name, nil
	})
}

// Image returns the assembly's manifest image.
func (a *Assembly) Image() (*Image, error) {
	return a.image.get(func() (*Image, error) {
		h, err := a.acc.AssemblyImage(a.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "assembly image")
		}
		return NewImage(a.acc, h)
	})
}

// Assemblies lists every assembly loaded in the inspected runtime.
// Nil handles reported by the accessor are dropped.
func Assemblies(acc monolens.Accessor) ([]*Assembly, error) {
	handles, err := acc.Assemblies()
	if err != nil {
		return nil, errors.ReadFault(errors.PhaseResolve, err, "assembly list")
	}
	out := make([]*Assembly, 0, len(handles))
	for _, h := range handles {
		if h.IsNil() {
			continue
		}
		a, err := NewAssembly(acc, h)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// FindClass searches every loaded image for namespace.name and returns
// the first hit. Images that fail to resolve are skipped.
func FindClass(acc monolens.Accessor, namespace, name string) (*Class, error) {
	assemblies, err := Assemblies(acc)
	if err != nil {
		return nil, err
	}
	for _, asm := range assemblies {
		img, err := asm.Image()
		if err != nil {
			Logger().Debug("skipping assembly without image",
				zap.Stringer("assembly", asm.handle),
				zap.Error(err))
			continue
		}
		if cls, ok := img.TryClass(namespace, name); ok {
			return cls, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseResolve, "class", joinTypeName(namespace, name))
}
