package generic

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
	"github.com/monolens/monolens/metadata"
)

// Kind says where a class sits in the generics lifecycle.
type Kind int

const (
	// KindNone marks an ordinary, non-generic class.
	KindNone Kind = iota
	// KindDefinition marks an open generic definition with unbound
	// formal parameters, such as Dictionary`2.
	KindDefinition
	// KindInstance marks a constructed instantiation with every
	// parameter bound to a concrete argument.
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDefinition:
		return "definition"
	case KindInstance:
		return "instance"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classify reports whether cls is an open generic definition, a
// constructed instantiation, or neither.
//
// When the accessor implements monolens.GenericQuerier the answer comes
// from the runtime. Unavailable querier errors degrade to parsing the
// CLR backtick-arity suffix out of the simple name. The fallback cannot
// tell a definition from an instantiation, so on reduced runtime builds
// anything carrying an arity suffix reports as KindDefinition.
func Classify(cls *metadata.Class) (Kind, error) {
	if cls == nil {
		return KindNone, errors.InvalidInput(errors.PhaseResolve, "classify: nil class")
	}
	if q, ok := cls.Accessor().(monolens.GenericQuerier); ok {
		def, err := q.IsGenericDefinition(cls.Handle())
		switch {
		case err == nil && def:
			return KindDefinition, nil
		case err == nil:
			return classifyInflation(q, cls.Handle())
		case errors.IsUnavailable(err):
			Logger().Debug("generic query unavailable, parsing class name",
				zap.String("class", cls.Handle().String()),
				zap.Error(err))
		default:
			return KindNone, err
		}
	}
	name, err := cls.Name()
	if err != nil {
		return KindNone, err
	}
	if backtickArity(name) > 0 {
		return KindDefinition, nil
	}
	return KindNone, nil
}

// classifyInflation settles the instance-or-plain question for a class
// the runtime already ruled out as a definition. The name fallback has
// nothing to add here, so an unavailable inflation query means plain.
func classifyInflation(q monolens.GenericQuerier, cls monolens.Handle) (Kind, error) {
	inflated, err := q.IsInflated(cls)
	if err != nil {
		if errors.IsUnavailable(err) {
			return KindNone, nil
		}
		return KindNone, err
	}
	if inflated {
		return KindInstance, nil
	}
	return KindNone, nil
}

// IsGenericEntity reports whether cls participates in generics at all,
// as a definition or as an instantiation.
func IsGenericEntity(cls *metadata.Class) (bool, error) {
	kind, err := Classify(cls)
	if err != nil {
		return false, err
	}
	return kind != KindNone, nil
}

// Arity returns the number of formal type parameters cls declares.
// Non-generic classes have arity 0.
func Arity(cls *metadata.Class) (int, error) {
	if cls == nil {
		return 0, errors.InvalidInput(errors.PhaseResolve, "arity: nil class")
	}
	if q, ok := cls.Accessor().(monolens.GenericQuerier); ok {
		n, err := q.GenericParamCount(cls.Handle())
		if err == nil {
			return n, nil
		}
		if !errors.IsUnavailable(err) {
			return 0, err
		}
		Logger().Debug("param count query unavailable, parsing class name",
			zap.String("class", cls.Handle().String()),
			zap.Error(err))
	}
	name, err := cls.Name()
	if err != nil {
		return 0, err
	}
	return backtickArity(name), nil
}

// MethodArity returns the number of formal type parameters m declares.
// Method names carry no arity suffix, so there is no fallback: without
// a GenericQuerier the answer is Unavailable.
func MethodArity(m *metadata.Method) (int, error) {
	if m == nil {
		return 0, errors.InvalidInput(errors.PhaseResolve, "method arity: nil method")
	}
	q, ok := m.Accessor().(monolens.GenericQuerier)
	if !ok {
		return 0, errors.Unavailable(errors.PhaseResolve, "method generic introspection")
	}
	return q.MethodGenericParamCount(m.Handle())
}

// Arguments returns the concrete type arguments of a constructed
// instantiation, in declaration order.
func Arguments(cls *metadata.Class) ([]*metadata.Class, error) {
	if cls == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "arguments: nil class")
	}
	q, ok := cls.Accessor().(monolens.GenericQuerier)
	if !ok {
		return nil, errors.Unavailable(errors.PhaseResolve, "generic argument enumeration")
	}
	handles, err := q.GenericArguments(cls.Handle())
	if err != nil {
		return nil, err
	}
	args := make([]*metadata.Class, 0, len(handles))
	for _, h := range handles {
		if h.IsNil() {
			continue
		}
		arg, err := metadata.NewClass(cls.Accessor(), h)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// backtickArity parses the CLR arity suffix out of a simple name:
// "Dictionary`2" declares two type parameters. Names without a suffix,
// or with a malformed one, yield 0.
func backtickArity(name string) int {
	i := strings.LastIndexByte(name, '`')
	if i < 0 || i+1 >= len(name) {
		return 0
	}
	digits := name[i+1:]
	if digits[0] < '0' || digits[0] > '9' {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
