package snapshot

import (
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/monolens/monolens/errors"
)

// Load reads and validates a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindReadFault).
			Detail("reading snapshot %s", path).
			Cause(err).
			Build()
	}
	return Parse(data)
}

// Parse decodes a snapshot document and validates every cross
// reference, so the accessor built from it can trust the records.
func Parse(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindMalformed).
			Detail("decoding snapshot document").
			Cause(err).
			Build()
	}
	if err := validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func malformed(format string, args ...any) error {
	return errors.New(errors.PhaseSnapshot, errors.KindMalformed).
		Detail(format, args...).
		Build()
}

// validate checks structural invariants: pointer size, unique class
// names, known kind and flag vocabulary, resolvable class and
// constructor references, and decodable attribute blobs.
func validate(snap *Snapshot) error {
	switch snap.Runtime.PointerSize {
	case 0, 4, 8:
	default:
		return malformed("pointer size %d, want 4 or 8", snap.Runtime.PointerSize)
	}

	classes := make(map[string]bool)
	ctors := make(map[string]bool)
	for ai := range snap.Assemblies {
		asm := &snap.Assemblies[ai]
		if asm.Name == "" {
			return malformed("assembly %d has no name", ai)
		}
		if asm.Image.Name == "" {
			return malformed("assembly %s has no image name", asm.Name)
		}
		for ci := range asm.Image.Classes {
			cls := &asm.Image.Classes[ci]
			if cls.Name == "" {
				return malformed("image %s declares a class without a name", asm.Image.Name)
			}
			full := joinName(cls.Namespace, cls.Name)
			if classes[full] {
				return malformed("duplicate class %s", full)
			}
			classes[full] = true
			for mi := range cls.Methods {
				ctors[full+"::"+cls.Methods[mi].Name] = true
			}
		}
	}

	for ai := range snap.Assemblies {
		for ci := range snap.Assemblies[ai].Image.Classes {
			cls := &snap.Assemblies[ai].Image.Classes[ci]
			if err := validateClass(cls, classes, ctors); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateClass(cls *ClassRec, classes, ctors map[string]bool) error {
	full := joinName(cls.Namespace, cls.Name)
	if cls.Parent != "" && !classes[cls.Parent] {
		return malformed("class %s parent %q is not in the snapshot", full, cls.Parent)
	}
	if _, err := parseClassFlags(cls.Flags); err != nil {
		return malformed("class %s: %v", full, err)
	}
	if cls.GenericArity < 0 {
		return malformed("class %s has negative generic arity %d", full, cls.GenericArity)
	}
	if cls.EnumUnderlying != "" {
		if _, ok := kindByName[cls.EnumUnderlying]; !ok {
			return malformed("class %s enum underlying kind %q is unknown", full, cls.EnumUnderlying)
		}
	}
	for _, iface := range cls.Interfaces {
		if !classes[iface] {
			return malformed("class %s interface %q is not in the snapshot", full, iface)
		}
	}
	if err := validateAttrs(full, cls.Attributes, ctors); err != nil {
		return err
	}

	for fi := range cls.Fields {
		fld := &cls.Fields[fi]
		if fld.Name == "" {
			return malformed("class %s declares a field without a name", full)
		}
		if err := validateType(full, fld.Type, classes); err != nil {
			return err
		}
		if err := validateAttrs(full+"."+fld.Name, fld.Attributes, ctors); err != nil {
			return err
		}
	}

	methods := make(map[string]bool, len(cls.Methods))
	for mi := range cls.Methods {
		m := &cls.Methods[mi]
		if m.Name == "" {
			return malformed("class %s declares a method without a name", full)
		}
		methods[m.Name] = true
		if m.GenericArity < 0 {
			return malformed("method %s::%s has negative generic arity %d", full, m.Name, m.GenericArity)
		}
		for _, p := range m.Params {
			if err := validateType(full, p, classes); err != nil {
				return err
			}
		}
		if err := validateType(full, m.Return, classes); err != nil {
			return err
		}
		if err := validateAttrs(full+"::"+m.Name, m.Attributes, ctors); err != nil {
			return err
		}
	}

	for pi := range cls.Properties {
		prop := &cls.Properties[pi]
		if prop.Name == "" {
			return malformed("class %s declares a property without a name", full)
		}
		if prop.Getter != "" && !methods[prop.Getter] {
			return malformed("property %s.%s getter %q is not a method of the class", full, prop.Name, prop.Getter)
		}
		if prop.Setter != "" && !methods[prop.Setter] {
			return malformed("property %s.%s setter %q is not a method of the class", full, prop.Name, prop.Setter)
		}
		if err := validateAttrs(full+"."+prop.Name, prop.Attributes, ctors); err != nil {
			return err
		}
	}
	return nil
}

func validateType(owner string, t TypeRec, classes map[string]bool) error {
	if _, ok := parseKind(t.Kind); !ok {
		return malformed("%s references unknown kind %q", owner, t.Kind)
	}
	if t.Class != "" && !classes[t.Class] {
		return malformed("%s references unknown class %q", owner, t.Class)
	}
	switch t.Kind {
	case "class", "valuetype":
		if t.Class == "" {
			return malformed("%s has a %s slot without a class reference", owner, t.Kind)
		}
	}
	return nil
}

func validateAttrs(owner string, attrs []AttrRec, ctors map[string]bool) error {
	for _, rec := range attrs {
		if !ctors[rec.Ctor] {
			return malformed("%s attribute constructor %q is not in the snapshot", owner, rec.Ctor)
		}
		if _, err := base64.StdEncoding.DecodeString(rec.Blob); err != nil {
			return malformed("%s attribute blob for %s is not valid base64: %v", owner, rec.Ctor, err)
		}
	}
	return nil
}
