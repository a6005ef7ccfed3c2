package exports

import (
	"sort"

	monolens "github.com/monolens/monolens"
)

// Signature describes one logical capability: the primary export name,
// alias names some builds use instead, whether the export only exists
// in Unity's custom runtime, and the lowest runtime version known to
// carry it (empty means any).
type Signature struct {
	Name       string
	Aliases    []string
	Unity      bool
	MinVersion string
}

// Names returns the export names to try, primary first.
func (s Signature) Names() []string {
	names := make([]string, 0, 1+len(s.Aliases))
	names = append(names, s.Name)
	return append(names, s.Aliases...)
}

// Logical capability names understood by Lookup and Resolve.
const (
	GenericDefinition  = "generic_definition"
	GenericInflated    = "generic_inflated"
	GenericParamCount  = "generic_param_count"
	GenericParamAt     = "generic_param_at"
	GenericTypeDef     = "generic_type_definition"
	GenericArgCount    = "generic_argument_count"
	GenericArgAt       = "generic_argument_at"
	MethodContainer    = "method_container"
	TypeIsGenericParam = "type_is_generic_parameter"
	MethodIsGeneric    = "method_is_generic"
	MethodIsInflated   = "method_is_inflated"
	MethodInflate      = "method_inflate"
	TypeFromName       = "type_from_name"
	ReflectionType     = "reflection_type"
	ReflectionMethod   = "reflection_method"
	AttributeIter      = "attribute_iteration"
	EnumUnderlying     = "enum_underlying"
)

// registry maps logical capabilities to their exports. MinVersion
// 5.0.0 marks the MonoBleedingEdge line: those exports do not exist in
// legacy mono.dll at all.
var registry = map[string]Signature{
	GenericDefinition: {Name: "mono_class_is_generic"},
	GenericInflated:   {Name: "mono_class_is_inflated"},

	GenericParamCount: {Name: "mono_unity_class_get_generic_parameter_count", Unity: true},
	GenericParamAt:    {Name: "mono_unity_class_get_generic_parameter_at", Unity: true},
	GenericTypeDef:    {Name: "mono_unity_class_get_generic_type_definition", Unity: true},
	GenericArgCount:   {Name: "mono_unity_class_get_generic_argument_count", Unity: true, MinVersion: "5.0.0"},
	GenericArgAt:      {Name: "mono_unity_class_get_generic_argument_at", Unity: true, MinVersion: "5.0.0"},

	MethodContainer:    {Name: "mono_method_get_generic_container", MinVersion: "5.0.0"},
	TypeIsGenericParam: {Name: "mono_type_is_generic_parameter", MinVersion: "5.0.0"},
	MethodIsGeneric:    {Name: "unity_mono_method_is_generic", Unity: true},
	MethodIsInflated:   {Name: "unity_mono_method_is_inflated", Unity: true},
	MethodInflate: {
		Name:    "mono_class_inflate_generic_method",
		Aliases: []string{"mono_class_inflate_generic_method_full"},
	},

	TypeFromName: {Name: "mono_reflection_type_from_name"},
	ReflectionType: {
		Name:    "mono_reflection_type_get_type",
		Aliases: []string{"mono_reflection_type_get_handle"},
	},
	ReflectionMethod: {Name: "unity_mono_reflection_method_get_method", Unity: true},

	AttributeIter: {Name: "mono_custom_attrs_get_attrs"},
	EnumUnderlying: {
		Name:    "mono_class_enum_basetype",
		Aliases: []string{"mono_class_enum_basetype_internal"},
	},
}

// Lookup returns the signature registered for a logical capability.
func Lookup(logical string) (Signature, bool) {
	sig, ok := registry[logical]
	return sig, ok
}

// Logical returns every registered capability name, sorted.
func Logical() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve finds the first live export serving a logical capability,
// trying the primary name and then each alias in order.
func Resolve(t monolens.ExportTable, logical string) (uint64, bool) {
	sig, ok := registry[logical]
	if !ok {
		return 0, false
	}
	for _, name := range sig.Names() {
		if addr, ok := t.ResolveExport(name); ok {
			return addr, true
		}
	}
	return 0, false
}
