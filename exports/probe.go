package exports

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
)

// Capabilities summarizes what an accessor's runtime build can serve.
type Capabilities struct {
	GenericQueries      bool // definition and inflation classification
	GenericEnumeration  bool // type parameter and argument enumeration
	MethodContainers    bool // method-level generic containers
	TypeNameParsing     bool // textual type resolution
	ReflectionInflation bool // managed reflection fallback
	AttributeIteration  bool // native custom-attribute iteration
	BleedingEdge        bool // MonoBleedingEdge build line
	Version             *semver.Version
}

// bleedingEdgeMin is the first MonoBleedingEdge release line. Registry
// entries with a 5.0.0 floor do not exist in builds older than this.
var bleedingEdgeMin = semver.Version{Major: 5}

// Probe inspects acc's optional interfaces and reports what the build
// can do. With an ExportTable present the answers come from resolving
// the registry's export names; without one, interface presence decides.
// A version known to predate MonoBleedingEdge trims the capabilities
// that only exist on bleeding-edge builds, whatever the table claims.
func Probe(acc any) Capabilities {
	var caps Capabilities

	if vr, ok := acc.(monolens.VersionReporter); ok {
		caps.Version = parseVersion(vr.RuntimeVersion())
		caps.BleedingEdge = caps.Version != nil && !caps.Version.LessThan(bleedingEdgeMin)
	}

	if table, ok := acc.(monolens.ExportTable); ok {
		caps.GenericQueries = resolves(table, GenericDefinition) && resolves(table, GenericInflated)
		caps.GenericEnumeration = resolves(table, GenericParamCount) && resolves(table, GenericArgCount)
		caps.MethodContainers = resolves(table, MethodContainer)
		caps.TypeNameParsing = resolves(table, TypeFromName)
		caps.ReflectionInflation = resolves(table, ReflectionMethod) && resolves(table, MethodInflate)
		caps.AttributeIteration = resolves(table, AttributeIter)
	} else {
		_, caps.GenericQueries = acc.(monolens.GenericQuerier)
		caps.GenericEnumeration = caps.GenericQueries
		caps.MethodContainers = caps.GenericQueries
		_, caps.TypeNameParsing = acc.(monolens.TypeNameResolver)
		_, caps.ReflectionInflation = acc.(monolens.Reflector)
		_, caps.AttributeIteration = acc.(monolens.Accessor)
	}

	if caps.Version != nil && !caps.BleedingEdge {
		caps.MethodContainers = false
		caps.GenericEnumeration = false
	}

	return caps
}

func resolves(t monolens.ExportTable, logical string) bool {
	_, ok := Resolve(t, logical)
	return ok
}

// Summary renders one line per capability for human consumption.
func (c Capabilities) Summary() string {
	version := "unknown"
	if c.Version != nil {
		version = c.Version.String()
		if c.BleedingEdge {
			version += " (MonoBleedingEdge)"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "runtime version:      %s\n", version)
	fmt.Fprintf(&b, "generic queries:      %s\n", yesNo(c.GenericQueries))
	fmt.Fprintf(&b, "generic enumeration:  %s\n", yesNo(c.GenericEnumeration))
	fmt.Fprintf(&b, "method containers:    %s\n", yesNo(c.MethodContainers))
	fmt.Fprintf(&b, "type name parsing:    %s\n", yesNo(c.TypeNameParsing))
	fmt.Fprintf(&b, "reflection inflation: %s\n", yesNo(c.ReflectionInflation))
	fmt.Fprintf(&b, "attribute iteration:  %s", yesNo(c.AttributeIteration))
	return b.String()
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

// parseVersion extracts the leading version triple from a runtime build
// string such as "5.11.2.1 (2018-02/4a8e7f2 ...)". Mono build strings
// often carry a fourth component and a parenthesized build tag, neither
// of which semver accepts.
func parseVersion(raw string) *semver.Version {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.Split(raw, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		Logger().Debug("unparseable runtime version",
			zap.String("raw", raw),
			zap.Error(err))
		return nil
	}
	return v
}
