package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/microsoft/go-winmd/flags"
	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/attr"
	"github.com/monolens/monolens/exports"
	"github.com/monolens/monolens/generic"
	"github.com/monolens/monolens/metadata"
	"github.com/monolens/monolens/snapshot"
)

func main() {
	var (
		snapPath    = flag.String("snapshot", "", "Path to a runtime capture file")
		className   = flag.String("class", "", "Class to inspect (Namespace.Name)")
		showAttrs   = flag.Bool("attrs", false, "Decode custom attributes; alone, dump every attribute in the capture")
		list        = flag.Bool("list", false, "List assemblies and classes and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging to stderr")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: monolens -snapshot <capture.json> [-class Namespace.Name] [-attrs]")
		fmt.Fprintln(os.Stderr, "       monolens -snapshot <capture.json> -list")
		fmt.Fprintln(os.Stderr, "       monolens -snapshot <capture.json> -attrs  (dump all attributes)")
		fmt.Fprintln(os.Stderr, "       monolens -snapshot <capture.json> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		wireLogging()
	}

	if *interactive {
		if err := runInteractive(*snapPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*snapPath, *className, *list, *showAttrs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// wireLogging routes every package logger to one development logger so
// -v surfaces fallback transitions and degraded attribute decodes.
func wireLogging() {
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	metadata.SetLogger(l)
	generic.SetLogger(l)
	exports.SetLogger(l)
	snapshot.SetLogger(l)
}

func run(path, className string, listOnly, showAttrs bool) error {
	snap, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("load capture: %w", err)
	}
	acc := snapshot.New(snap)

	fmt.Printf("Capture: %s\n", path)
	fmt.Println(exports.Probe(acc).Summary())

	if listOnly {
		fmt.Println()
		listClasses(snap)
		return nil
	}

	if className != "" {
		report, err := classReport(acc, className, showAttrs)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(report)
		return nil
	}

	if showAttrs {
		fmt.Println()
		dumpAttrs(acc, snap)
		return nil
	}

	fmt.Printf("\nAssemblies:\n")
	for _, asm := range snap.Assemblies {
		fmt.Printf("  %s (%s, %d classes)\n", asm.Name, asm.Image.Name, len(asm.Image.Classes))
	}
	fmt.Printf("\nUse -list to enumerate classes, -class to inspect one.\n")
	return nil
}

func listClasses(snap *snapshot.Snapshot) {
	for _, asm := range snap.Assemblies {
		fmt.Printf("%s (%s)\n", asm.Name, asm.Image.Name)
		names := make([]string, 0, len(asm.Image.Classes))
		for _, cls := range asm.Image.Classes {
			names = append(names, fullName(cls.Namespace, cls.Name))
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
	}
}

// dumpAttrs prints every decoded attribute in the capture grouped by
// owning class. Classes with no attributes anywhere are skipped.
func dumpAttrs(acc monolens.Accessor, snap *snapshot.Snapshot) {
	for _, asm := range snap.Assemblies {
		for _, rec := range asm.Image.Classes {
			cls, err := metadata.FindClass(acc, rec.Namespace, rec.Name)
			if err != nil {
				continue
			}
			var b strings.Builder
			if attrs, err := cls.CustomAttributes(); err == nil {
				writeAttrs(&b, "  ", attrs)
			}
			if fields, err := cls.Fields(); err == nil {
				for _, f := range fields {
					writeMemberAttrs(&b, f.Name, f.CustomAttributes)
				}
			}
			if methods, err := cls.Methods(); err == nil {
				for _, m := range methods {
					writeMemberAttrs(&b, m.Name, m.CustomAttributes)
				}
			}
			if props, err := cls.Properties(); err == nil {
				for _, p := range props {
					writeMemberAttrs(&b, p.Name, p.CustomAttributes)
				}
			}
			if b.Len() == 0 {
				continue
			}
			fmt.Printf("%s\n%s", fullName(rec.Namespace, rec.Name), b.String())
		}
	}
}

// writeMemberAttrs renders one member's attributes under its name.
// Members without attributes produce no output at all.
func writeMemberAttrs(b *strings.Builder, name func() (string, error), attrs func() ([]*attr.CustomAttribute, error)) {
	list, err := attrs()
	if err != nil || len(list) == 0 {
		return
	}
	n, err := name()
	if err != nil {
		return
	}
	fmt.Fprintf(b, "  %s:\n", n)
	writeAttrs(b, "    ", list)
}

// classReport renders one class the way it reads in source: header,
// generic shape, then members with optional decoded attributes.
func classReport(acc monolens.Accessor, className string, showAttrs bool) (string, error) {
	ns, name := splitFullName(className)
	cls, err := metadata.FindClass(acc, ns, name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	full, err := cls.FullName()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "Class: %s\n", full)

	if tok, err := cls.Token(); err == nil && tok != 0 {
		fmt.Fprintf(&b, "Token: 0x%08x\n", tok)
	}
	if fl, err := cls.Flags(); err == nil && fl != 0 {
		fmt.Fprintf(&b, "Flags: %s\n", flagsString(fl))
	}
	if parent, err := cls.Parent(); err == nil && parent != nil {
		if pname, err := parent.FullName(); err == nil {
			fmt.Fprintf(&b, "Parent: %s\n", pname)
		}
	}
	if ifaces, err := cls.Interfaces(); err == nil && len(ifaces) > 0 {
		names := make([]string, 0, len(ifaces))
		for _, iface := range ifaces {
			if n, err := iface.FullName(); err == nil {
				names = append(names, n)
			}
		}
		fmt.Fprintf(&b, "Implements: %s\n", strings.Join(names, ", "))
	}
	if isEnum, err := cls.IsEnum(); err == nil && isEnum {
		if u, err := cls.EnumUnderlying(); err == nil {
			fmt.Fprintf(&b, "Enum underlying: %s\n", typeString(u))
		}
	}
	if kind, err := generic.Classify(cls); err == nil && kind != generic.KindNone {
		arity, err := generic.Arity(cls)
		if err == nil && arity > 0 {
			fmt.Fprintf(&b, "Generic: %s, arity %d\n", kind, arity)
		} else {
			fmt.Fprintf(&b, "Generic: %s\n", kind)
		}
	}

	if showAttrs {
		attrs, err := cls.CustomAttributes()
		if err == nil {
			writeAttrs(&b, "", attrs)
		}
	}

	if fields, err := cls.Fields(); err == nil && len(fields) > 0 {
		b.WriteString("\nFields:\n")
		for _, f := range fields {
			if showAttrs {
				if attrs, err := f.CustomAttributes(); err == nil {
					writeAttrs(&b, "  ", attrs)
				}
			}
			name, err := f.Name()
			if err != nil {
				continue
			}
			line := "  " + name
			if t, err := f.Type(); err == nil {
				line += ": " + typeString(t)
			}
			if off, err := f.Offset(); err == nil && off != 0 {
				line += fmt.Sprintf(" (offset 0x%x)", off)
			}
			b.WriteString(line + "\n")
		}
	}

	if methods, err := cls.Methods(); err == nil && len(methods) > 0 {
		b.WriteString("\nMethods:\n")
		for _, m := range methods {
			if showAttrs {
				if attrs, err := m.CustomAttributes(); err == nil {
					writeAttrs(&b, "  ", attrs)
				}
			}
			name, err := m.Name()
			if err != nil {
				continue
			}
			b.WriteString("  " + name + signatureString(m) + "\n")
		}
	}

	if props, err := cls.Properties(); err == nil && len(props) > 0 {
		b.WriteString("\nProperties:\n")
		for _, p := range props {
			if showAttrs {
				if attrs, err := p.CustomAttributes(); err == nil {
					writeAttrs(&b, "  ", attrs)
				}
			}
			name, err := p.Name()
			if err != nil {
				continue
			}
			accessors := make([]string, 0, 2)
			if g, err := p.Getter(); err == nil && g != nil {
				if gname, err := g.Name(); err == nil {
					accessors = append(accessors, "get "+gname)
				}
			}
			if s, err := p.Setter(); err == nil && s != nil {
				if sname, err := s.Name(); err == nil {
					accessors = append(accessors, "set "+sname)
				}
			}
			line := "  " + name
			if len(accessors) > 0 {
				line += " { " + strings.Join(accessors, "; ") + " }"
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String(), nil
}

func writeAttrs(b *strings.Builder, indent string, attrs []*attr.CustomAttribute) {
	for _, a := range attrs {
		fmt.Fprintf(b, "%s[%s]\n", indent, a)
	}
}

func signatureString(m *metadata.Method) string {
	sig, err := m.Signature()
	if err != nil {
		return "(?)"
	}
	params := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = typeString(p)
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if sig.Return.Kind != flags.ElementType_VOID {
		out += " -> " + typeString(sig.Return)
	}
	return out
}

var kindNames = map[flags.ElementType]string{
	flags.ElementType_VOID:      "void",
	flags.ElementType_BOOLEAN:   "boolean",
	flags.ElementType_CHAR:      "char",
	flags.ElementType_I1:        "i1",
	flags.ElementType_U1:        "u1",
	flags.ElementType_I2:        "i2",
	flags.ElementType_U2:        "u2",
	flags.ElementType_I4:        "i4",
	flags.ElementType_U4:        "u4",
	flags.ElementType_I8:        "i8",
	flags.ElementType_U8:        "u8",
	flags.ElementType_R4:        "r4",
	flags.ElementType_R8:        "r8",
	flags.ElementType_STRING:    "string",
	flags.ElementType_OBJECT:    "object",
	flags.ElementType_CLASS:     "class",
	flags.ElementType_VALUETYPE: "valuetype",
	flags.ElementType_SZARRAY:   "szarray",
}

// typeString renders a type slot for display: the class full name when
// one resolved, otherwise the element mnemonic, with modifier suffixes.
func typeString(t monolens.TypeRef) string {
	name := t.FullName
	if name == "" {
		var ok bool
		if name, ok = kindNames[t.Kind]; !ok {
			name = fmt.Sprintf("kind(0x%02x)", uint8(t.Kind))
		}
	}
	if t.Array {
		name += "[]"
	}
	if t.Pointer {
		name += "*"
	}
	if t.ByRef {
		name += "&"
	}
	return name
}

var flagNames = []struct {
	bit  monolens.ClassFlags
	name string
}{
	{monolens.ClassAbstract, "abstract"},
	{monolens.ClassInterface, "interface"},
	{monolens.ClassValueType, "valuetype"},
	{monolens.ClassEnum, "enum"},
	{monolens.ClassSealed, "sealed"},
	{monolens.ClassBlittable, "blittable"},
}

func flagsString(fl monolens.ClassFlags) string {
	var names []string
	for _, f := range flagNames {
		if fl.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, ", ")
}

func fullName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

// splitFullName cuts at the last dot before any generic argument list,
// so composite names like Ns.Base`1[[System.Int32, mscorlib]] keep the
// bracket part inside the class name.
func splitFullName(full string) (ns, name string) {
	head := full
	if i := strings.IndexByte(full, '['); i >= 0 {
		head = full[:i]
	}
	if i := strings.LastIndex(head, "."); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}
