package generic

import (
	"strings"

	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
	"github.com/monolens/monolens/metadata"
)

// EngineConfig carries the runtime traits instantiation depends on.
type EngineConfig struct {
	// PointerSize is the inspected runtime's pointer width in bytes,
	// 4 or 8. Zero means 8.
	PointerSize int
}

// Engine constructs closed generic instantiations from open
// definitions. Construction capabilities are discovered on the accessor
// by type assertion; a runtime build that exposes none simply yields
// absent results.
type Engine struct {
	acc monolens.Accessor
	cfg EngineConfig
}

// NewEngine validates cfg and returns an engine bound to acc.
func NewEngine(acc monolens.Accessor, cfg EngineConfig) (*Engine, error) {
	if acc == nil {
		return nil, errors.InvalidInput(errors.PhaseInstantiate, "nil accessor")
	}
	ptrSize, err := normalizePtrSize(cfg.PointerSize)
	if err != nil {
		return nil, err
	}
	cfg.PointerSize = ptrSize
	return &Engine{acc: acc, cfg: cfg}, nil
}

// Instantiate binds args to the open definition def and returns the
// constructed class handle.
//
// The argument count is validated against the definition's arity before
// anything else; a mismatch is an ArityMismatch error raised with no
// construction attempted. A target that is not an open definition, or a
// definition none of the available strategies can bind, yields (0, nil):
// missing capability is an operating condition, not an error.
func (e *Engine) Instantiate(def *metadata.Class, args []*metadata.Class) (monolens.Handle, error) {
	if def == nil {
		return 0, errors.InvalidInput(errors.PhaseInstantiate, "nil definition")
	}
	if err := rejectNilArgs(args); err != nil {
		return 0, err
	}

	want, err := Arity(def)
	if err != nil {
		return 0, err
	}
	if want != len(args) {
		return 0, errors.ArityMismatch(want, len(args))
	}

	kind, err := Classify(def)
	if err != nil {
		return 0, err
	}
	if kind != KindDefinition {
		Logger().Debug("instantiation target is not an open definition",
			zap.String("class", def.Handle().String()),
			zap.Stringer("kind", kind))
		return 0, nil
	}

	if h := e.instantiateByName(def, args); !h.IsNil() {
		return h, nil
	}
	h, err := e.bindDescriptor(def.Handle(), args, false)
	if err != nil || !h.IsNil() {
		return h, err
	}

	Logger().Debug("instantiation strategies exhausted",
		zap.String("class", def.Handle().String()))
	return 0, nil
}

// InstantiateMethod binds args to the open generic method m. The
// ordering mirrors Instantiate, with managed reflection as a final
// fallback for runtime builds that cannot bind descriptors directly.
// Method names carry no arity suffix, so when the accessor has no
// GenericQuerier the arity check is skipped and the binding strategies
// decide.
func (e *Engine) InstantiateMethod(m *metadata.Method, args []*metadata.Class) (monolens.Handle, error) {
	if m == nil {
		return 0, errors.InvalidInput(errors.PhaseInstantiate, "nil method")
	}
	if err := rejectNilArgs(args); err != nil {
		return 0, err
	}

	want, arityErr := MethodArity(m)
	switch {
	case arityErr == nil:
		if want != len(args) {
			return 0, errors.ArityMismatch(want, len(args))
		}
		if want == 0 {
			Logger().Debug("instantiation target is not a generic method",
				zap.String("method", m.Handle().String()))
			return 0, nil
		}
		inflated, err := methodInflated(e.acc, m.Handle())
		if err != nil {
			return 0, err
		}
		if inflated {
			Logger().Debug("instantiation target is already inflated",
				zap.String("method", m.Handle().String()))
			return 0, nil
		}
	case errors.IsUnavailable(arityErr):
		Logger().Debug("method arity query unavailable, binding unchecked",
			zap.String("method", m.Handle().String()),
			zap.Error(arityErr))
	default:
		return 0, arityErr
	}

	h, err := e.bindDescriptor(m.Handle(), args, true)
	if err != nil || !h.IsNil() {
		return h, err
	}

	if r, ok := e.acc.(monolens.Reflector); ok {
		h, err := r.MakeGenericMethod(m.Handle(), argHandles(args))
		if err != nil {
			Logger().Debug("reflection fallback failed",
				zap.String("method", m.Handle().String()),
				zap.Error(err))
		} else if !h.IsNil() {
			Logger().Debug("reflection fallback inflated method",
				zap.String("method", m.Handle().String()),
				zap.String("result", h.String()))
			return h, nil
		}
	}

	Logger().Debug("method instantiation strategies exhausted",
		zap.String("method", m.Handle().String()))
	return 0, nil
}

// instantiateByName resolves the composite textual name of the
// instantiation through the accessor's TypeNameResolver. Every failure
// mode here, from a missing capability to a metadata read fault, means
// "try the next strategy", so the only outcome is a handle or zero.
func (e *Engine) instantiateByName(def *metadata.Class, args []*metadata.Class) monolens.Handle {
	resolver, ok := e.acc.(monolens.TypeNameResolver)
	if !ok {
		Logger().Debug("name strategy skipped, no type-name resolver",
			zap.String("class", def.Handle().String()))
		return 0
	}
	name, err := compositeName(def, args)
	if err != nil {
		Logger().Debug("name strategy could not build composite name",
			zap.String("class", def.Handle().String()),
			zap.Error(err))
		return 0
	}
	img, err := def.Image()
	if err != nil {
		Logger().Debug("name strategy could not resolve defining image",
			zap.String("class", def.Handle().String()),
			zap.Error(err))
		return 0
	}
	h, err := resolver.TypeByName(name, img.Handle())
	if err != nil {
		Logger().Debug("name strategy resolution failed",
			zap.String("name", name),
			zap.Error(err))
		return 0
	}
	if h.IsNil() {
		Logger().Debug("name strategy found nothing",
			zap.String("name", name))
		return 0
	}
	Logger().Debug("name strategy resolved instantiation",
		zap.String("name", name),
		zap.String("result", h.String()))
	return h
}

// bindDescriptor encodes the argument handles and asks the accessor's
// GenericBinder to bind them to target. Encoding failures are caller
// contract violations and propagate; binder failures mean "try the next
// strategy" and log at debug.
func (e *Engine) bindDescriptor(target monolens.Handle, args []*metadata.Class, method bool) (monolens.Handle, error) {
	binder, ok := e.acc.(monolens.GenericBinder)
	if !ok {
		Logger().Debug("descriptor strategy skipped, no binder",
			zap.String("target", target.String()))
		return 0, nil
	}
	desc := InstDescriptor{Args: argHandles(args)}
	encoded, err := desc.Encode(e.cfg.PointerSize)
	if err != nil {
		return 0, err
	}
	var h monolens.Handle
	if method {
		h, err = binder.BindGenericMethodInst(target, encoded)
	} else {
		h, err = binder.BindGenericInst(target, encoded)
	}
	if err != nil {
		Logger().Debug("descriptor strategy failed",
			zap.String("target", target.String()),
			zap.Error(err))
		return 0, nil
	}
	if !h.IsNil() {
		Logger().Debug("descriptor strategy bound instantiation",
			zap.String("target", target.String()),
			zap.String("result", h.String()))
	}
	return h, nil
}

// compositeName renders the runtime's textual form of a constructed
// type: Base[[Arg1Full, Arg1Assembly],[Arg2Full, Arg2Assembly]]. The
// base keeps its backtick-arity suffix.
func compositeName(def *metadata.Class, args []*metadata.Class) (string, error) {
	base, err := def.FullName()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('[')
	for i, arg := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		full, err := arg.FullName()
		if err != nil {
			return "", err
		}
		asm, err := arg.Assembly()
		if err != nil {
			return "", err
		}
		asmName, err := asm.Name()
		if err != nil {
			return "", err
		}
		b.WriteByte('[')
		b.WriteString(full)
		b.WriteString(", ")
		b.WriteString(asmName)
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String(), nil
}

func methodInflated(acc monolens.Accessor, m monolens.Handle) (bool, error) {
	q, ok := acc.(monolens.GenericQuerier)
	if !ok {
		return false, nil
	}
	inflated, err := q.MethodIsInflated(m)
	if err != nil {
		if errors.IsUnavailable(err) {
			return false, nil
		}
		return false, err
	}
	return inflated, nil
}

func rejectNilArgs(args []*metadata.Class) error {
	for i, arg := range args {
		if arg == nil {
			return errors.InvalidInput(errors.PhaseInstantiate, "nil type argument at index %d", i)
		}
	}
	return nil
}

func argHandles(args []*metadata.Class) []monolens.Handle {
	handles := make([]monolens.Handle, len(args))
	for i, arg := range args {
		handles[i] = arg.Handle()
	}
	return handles
}
