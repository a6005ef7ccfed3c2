package metadata

import (
	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/attr"
	"github.com/monolens/monolens/errors"
)

// Class wraps a native class handle. Every getter resolves through the
// accessor on first use and memoizes the outcome, so repeated walks of
// the same class touch the runtime once per property.
type Class struct {
	acc    monolens.Accessor
	handle monolens.Handle

	name       cell[string]
	namespace  cell[string]
	token      cell[uint32]
	image      cell[*Image]
	parent     cell[*Class]
	flags      cell[monolens.ClassFlags]
	interfaces cell[[]*Class]
	methods    cell[[]*Method]
	fields     cell[[]*Field]
	properties cell[[]*Property]
	underlying cell[monolens.TypeRef]
	attrs      cell[[]*attr.CustomAttribute]
}

// NewClass wraps a class handle. The handle must be non-nil.
func NewClass(acc monolens.Accessor, h monolens.Handle) (*Class, error) {
	if h.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil class handle")
	}
	return &Class{acc: acc, handle: h}, nil
}

func (c *Class) Handle() monolens.Handle { return c.handle }

// Accessor exposes the underlying runtime accessor, letting callers
// probe it for optional capabilities.
func (c *Class) Accessor() monolens.Accessor { return c.acc }

func (c *Class) Name() (string, error) {
	return c.name.get(func() (string, error) {
		name, err := c.acc.ClassName(c.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "class name")
		}
		return name, nil
	})
}

func (c *Class) Namespace() (string, error) {
	return c.namespace.get(func() (string, error) {
		ns, err := c.acc.ClassNamespace(c.handle)
		if err != nil {
			return "", errors.ReadFault(errors.PhaseResolve, err, "class namespace")
		}
		return ns, nil
	})
}

// FullName is the namespace-qualified name. Nested classes are joined
// the same way; the runtime's nesting separator is not modeled.
func (c *Class) FullName() (string, error) {
	ns, err := c.Namespace()
	if err != nil {
		return "", err
	}
	name, err := c.Name()
	if err != nil {
		return "", err
	}
	return joinTypeName(ns, name), nil
}

func (c *Class) Token() (uint32, error) {
	return c.token.get(func() (uint32, error) {
		tok, err := c.acc.ClassToken(c.handle)
		if err != nil {
			return 0, errors.ReadFault(errors.PhaseResolve, err, "class token")
		}
		return tok, nil
	})
}

func (c *Class) Image() (*Image, error) {
	return c.image.get(func() (*Image, error) {
		h, err := c.acc.ClassImage(c.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "class image")
		}
		return NewImage(c.acc, h)
	})
}

// Assembly is the assembly owning the class's image.
func (c *Class) Assembly() (*Assembly, error) {
	img, err := c.Image()
	if err != nil {
		return nil, err
	}
	return img.Assembly()
}

// Parent returns the base class, or nil at a hierarchy root.
func (c *Class) Parent() (*Class, error) {
	return c.parent.get(func() (*Class, error) {
		h, err := c.acc.ClassParent(c.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "class parent")
		}
		if h.IsNil() {
			return nil, nil
		}
		return NewClass(c.acc, h)
	})
}

func (c *Class) Flags() (monolens.ClassFlags, error) {
	return c.flags.get(func() (monolens.ClassFlags, error) {
		f, err := c.acc.ClassFlags(c.handle)
		if err != nil {
			return 0, errors.ReadFault(errors.PhaseResolve, err, "class flags")
		}
		return f, nil
	})
}

func (c *Class) IsAbstract() (bool, error)  { return c.hasFlag(monolens.ClassAbstract) }
func (c *Class) IsInterface() (bool, error) { return c.hasFlag(monolens.ClassInterface) }
func (c *Class) IsValueType() (bool, error) { return c.hasFlag(monolens.ClassValueType) }
func (c *Class) IsEnum() (bool, error)      { return c.hasFlag(monolens.ClassEnum) }
func (c *Class) IsSealed() (bool, error)    { return c.hasFlag(monolens.ClassSealed) }
func (c *Class) IsBlittable() (bool, error) { return c.hasFlag(monolens.ClassBlittable) }

func (c *Class) hasFlag(mask monolens.ClassFlags) (bool, error) {
	f, err := c.Flags()
	if err != nil {
		return false, err
	}
	return f.Has(mask), nil
}

// Interfaces returns the interfaces this class directly implements.
func (c *Class) Interfaces() ([]*Class, error) {
	return c.interfaces.get(func() ([]*Class, error) {
		handles, err := c.acc.ClassInterfaces(c.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "class interfaces")
		}
		out := make([]*Class, 0, len(handles))
		for _, h := range handles {
			iface, err := NewClass(c.acc, h)
			if err != nil {
				continue
			}
			out = append(out, iface)
		}
		return out, nil
	})
}

// IsSubclassOf walks the parent chain, and the interface graph when
// includeInterfaces is set, looking for other. A class counts as a
// subclass of itself. Handles already visited read as a negative, so
// corrupt hierarchies with cycles terminate instead of looping.
func (c *Class) IsSubclassOf(other *Class, includeInterfaces bool) (bool, error) {
	if other == nil {
		return false, errors.InvalidInput(errors.PhaseResolve, "nil target class")
	}
	visited := make(map[monolens.Handle]struct{})
	return c.isSubclassOf(other.handle, includeInterfaces, visited)
}

func (c *Class) isSubclassOf(target monolens.Handle, includeInterfaces bool, visited map[monolens.Handle]struct{}) (bool, error) {
	if c.handle == target {
		return true, nil
	}
	if _, seen := visited[c.handle]; seen {
		return false, nil
	}
	visited[c.handle] = struct{}{}

	if includeInterfaces {
		ifaces, err := c.Interfaces()
		if err != nil {
			return false, err
		}
		for _, iface := range ifaces {
			ok, err := iface.isSubclassOf(target, includeInterfaces, visited)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}

	parent, err := c.Parent()
	if err != nil {
		return false, err
	}
	if parent == nil {
		return false, nil
	}
	return parent.isSubclassOf(target, includeInterfaces, visited)
}

// IsAssignableFrom reports whether a value of other's type can be
// assigned to a slot of this class's type.
func (c *Class) IsAssignableFrom(other *Class) (bool, error) {
	if other == nil {
		return false, errors.InvalidInput(errors.PhaseResolve, "nil source class")
	}
	return other.IsSubclassOf(c, true)
}

// EnumUnderlying returns the underlying primitive of an enum class and
// rejects non-enums.
func (c *Class) EnumUnderlying() (monolens.TypeRef, error) {
	return c.underlying.get(func() (monolens.TypeRef, error) {
		isEnum, err := c.IsEnum()
		if err != nil {
			return monolens.TypeRef{}, err
		}
		if !isEnum {
			return monolens.TypeRef{}, errors.InvalidInput(errors.PhaseResolve, "class is not an enum")
		}
		t, err := c.acc.EnumUnderlyingType(c.handle)
		if err != nil {
			return monolens.TypeRef{}, errors.ReadFault(errors.PhaseResolve, err, "enum underlying type")
		}
		return t, nil
	})
}

// Methods returns all methods declared on the class itself. Inherited
// methods live on the parent.
func (c *Class) Methods() ([]*Method, error) {
	return c.methods.get(func() ([]*Method, error) {
		handles, err := c.acc.ClassMethods(c.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "class methods")
		}
		out := make([]*Method, 0, len(handles))
		for _, h := range handles {
			m, err := NewMethod(c.acc, h)
			if err != nil {
				continue
			}
			out = append(out, m)
		}
		return out, nil
	})
}

func (c *Class) Fields() ([]*Field, error) {
	return c.fields.get(func() ([]*Field, error) {
		handles, err := c.acc.ClassFields(c.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "class fields")
		}
		out := make([]*Field, 0, len(handles))
		for _, h := range handles {
			f, err := NewField(c.acc, h)
			if err != nil {
				continue
			}
			out = append(out, f)
		}
		return out, nil
	})
}

func (c *Class) Properties() ([]*Property, error) {
	return c.properties.get(func() ([]*Property, error) {
		handles, err := c.acc.ClassProperties(c.handle)
		if err != nil {
			return nil, errors.ReadFault(errors.PhaseResolve, err, "class properties")
		}
		out := make([]*Property, 0, len(handles))
		for _, h := range handles {
			p, err := NewProperty(c.acc, h)
			if err != nil {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	})
}

// TryMethod finds a method by name, reporting absence instead of
// failing. Faults while enumerating are logged at debug level.
func (c *Class) TryMethod(name string) (*Method, bool) {
	m, err := c.findMethod(name, -1)
	if err != nil {
		c.logLookupMiss("method", name, err)
		return nil, false
	}
	return m, m != nil
}

// Method finds a method by name. The not-found error carries a
// nearest-name suggestion when a sibling comes close.
func (c *Class) Method(name string) (*Method, error) {
	m, err := c.findMethod(name, -1)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, c.notFound("method", name, c.methodNames())
	}
	return m, nil
}

// MethodWithParamCount disambiguates overloads by declared parameter
// count.
func (c *Class) MethodWithParamCount(name string, params int) (*Method, error) {
	m, err := c.findMethod(name, params)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, c.notFound("method", name, c.methodNames())
	}
	return m, nil
}

// findMethod returns the first method matching name, and parameter
// count when params >= 0. A nil method with nil error means absence.
func (c *Class) findMethod(name string, params int) (*Method, error) {
	methods, err := c.Methods()
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		mname, err := m.Name()
		if err != nil {
			return nil, err
		}
		if mname != name {
			continue
		}
		if params >= 0 {
			sig, err := m.Signature()
			if err != nil {
				return nil, err
			}
			if len(sig.Params) != params {
				continue
			}
		}
		return m, nil
	}
	return nil, nil
}

// TryField finds a field by name, reporting absence instead of failing.
func (c *Class) TryField(name string) (*Field, bool) {
	f, err := c.findField(name)
	if err != nil {
		c.logLookupMiss("field", name, err)
		return nil, false
	}
	return f, f != nil
}

// Field finds a field by name, with a nearest-name suggestion on miss.
func (c *Class) Field(name string) (*Field, error) {
	f, err := c.findField(name)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, c.notFound("field", name, c.fieldNames())
	}
	return f, nil
}

func (c *Class) findField(name string) (*Field, error) {
	fields, err := c.Fields()
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		fname, err := f.Name()
		if err != nil {
			return nil, err
		}
		if fname == name {
			return f, nil
		}
	}
	return nil, nil
}

// TryProperty finds a property by name, reporting absence instead of
// failing.
func (c *Class) TryProperty(name string) (*Property, bool) {
	p, err := c.findProperty(name)
	if err != nil {
		c.logLookupMiss("property", name, err)
		return nil, false
	}
	return p, p != nil
}

// Property finds a property by name, with a nearest-name suggestion on
// miss.
func (c *Class) Property(name string) (*Property, error) {
	p, err := c.findProperty(name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, c.notFound("property", name, c.propertyNames())
	}
	return p, nil
}

func (c *Class) findProperty(name string) (*Property, error) {
	properties, err := c.Properties()
	if err != nil {
		return nil, err
	}
	for _, p := range properties {
		pname, err := p.Name()
		if err != nil {
			return nil, err
		}
		if pname == name {
			return p, nil
		}
	}
	return nil, nil
}

// CustomAttributes decodes every attribute applied to the class.
func (c *Class) CustomAttributes() ([]*attr.CustomAttribute, error) {
	return c.attrs.get(func() ([]*attr.CustomAttribute, error) {
		return decodeAttributes(c.acc, c.handle, c.describe())
	})
}

// describe names the class for log context without failing.
func (c *Class) describe() string {
	full, err := c.FullName()
	if err != nil {
		return c.handle.String()
	}
	return full
}

func (c *Class) notFound(what, name string, siblings []string) error {
	if hint := nearest(name, siblings); hint != "" {
		return errors.NotFoundWithSuggestion(errors.PhaseResolve, what, name, hint)
	}
	return errors.NotFound(errors.PhaseResolve, what, name)
}

func (c *Class) logLookupMiss(what, name string, err error) {
	Logger().Debug("lookup degraded to absence",
		zap.String("what", what),
		zap.String("name", name),
		zap.String("class", c.describe()),
		zap.Error(err))
}

func (c *Class) methodNames() []string {
	methods, err := c.Methods()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		if n, err := m.Name(); err == nil {
			names = append(names, n)
		}
	}
	return names
}

func (c *Class) fieldNames() []string {
	fields, err := c.Fields()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if n, err := f.Name(); err == nil {
			names = append(names, n)
		}
	}
	return names
}

func (c *Class) propertyNames() []string {
	properties, err := c.Properties()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(properties))
	for _, p := range properties {
		if n, err := p.Name(); err == nil {
			names = append(names, n)
		}
	}
	return names
}
