package snapshot

import (
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

// Synthesized address regions. Handles count up from 1; attribute blobs
// and export symbols live in disjoint high ranges so a handle value can
// never alias a readable address.
const (
	blobBase   = 0x5ab0_0000
	exportBase = 0x7f00_0000
	addrStep   = 16
)

type classData struct {
	name     string
	ns       string
	img      monolens.Handle
	parent   monolens.Handle
	flags    monolens.ClassFlags
	token    uint32
	arity    int
	inflated bool
	enum     *monolens.TypeRef
	ifaces   []monolens.Handle
	fields   []monolens.Handle
	methods  []monolens.Handle
	props    []monolens.Handle
}

type methodData struct {
	name  string
	cls   monolens.Handle
	token uint32
	arity int
	sig   monolens.MethodSignature
}

type fieldData struct {
	name   string
	cls    monolens.Handle
	typ    monolens.TypeRef
	offset uint32
}

type propData struct {
	name   string
	cls    monolens.Handle
	getter monolens.Handle
	setter monolens.Handle
}

// Accessor replays a validated snapshot through the full metadata
// surface. Build one with New; the zero value is not usable.
type Accessor struct {
	version string
	ptrSize int
	exports map[string]uint64

	asmList []monolens.Handle
	asms    map[monolens.Handle]string
	asmImgs map[monolens.Handle]monolens.Handle

	imgs     map[monolens.Handle]string
	imgAsms  map[monolens.Handle]monolens.Handle
	clsByImg map[monolens.Handle]map[string]monolens.Handle
	tokByImg map[monolens.Handle]map[uint32]monolens.Handle

	cls       map[monolens.Handle]*classData
	meths     map[monolens.Handle]*methodData
	flds      map[monolens.Handle]*fieldData
	props     map[monolens.Handle]*propData
	clsByFull map[string]monolens.Handle

	attrs map[monolens.Handle][]monolens.AttributeRecord
	blobs map[uint64][]byte

	nextHandle monolens.Handle
	nextBlob   uint64
}

// New builds an accessor over a snapshot that Parse or Load already
// validated. Unvalidated documents produce undefined lookups.
func New(snap *Snapshot) *Accessor {
	a := &Accessor{
		version:    snap.Runtime.Version,
		ptrSize:    snap.Runtime.PointerSize,
		exports:    make(map[string]uint64),
		asms:       make(map[monolens.Handle]string),
		asmImgs:    make(map[monolens.Handle]monolens.Handle),
		imgs:       make(map[monolens.Handle]string),
		imgAsms:    make(map[monolens.Handle]monolens.Handle),
		clsByImg:   make(map[monolens.Handle]map[string]monolens.Handle),
		tokByImg:   make(map[monolens.Handle]map[uint32]monolens.Handle),
		cls:        make(map[monolens.Handle]*classData),
		meths:      make(map[monolens.Handle]*methodData),
		flds:       make(map[monolens.Handle]*fieldData),
		props:      make(map[monolens.Handle]*propData),
		clsByFull:  make(map[string]monolens.Handle),
		attrs:      make(map[monolens.Handle][]monolens.AttributeRecord),
		blobs:      make(map[uint64][]byte),
		nextHandle: 1,
		nextBlob:   blobBase,
	}
	if a.ptrSize == 0 {
		a.ptrSize = 8
	}
	for i, name := range snap.Runtime.Exports {
		a.exports[name] = exportBase + uint64(i)*addrStep
	}

	// Identity first: every class must have a handle before any
	// reference, signature, or attribute is resolved.
	a.placeRecords(snap)
	a.fillClasses(snap)
	methByFull := a.fillMembers(snap)
	a.fillAttributes(snap, methByFull)

	Logger().Debug("snapshot accessor built",
		zap.Int("assemblies", len(a.asmList)),
		zap.Int("classes", len(a.cls)),
		zap.Int("methods", len(a.meths)),
		zap.Int("blobs", len(a.blobs)))
	return a
}

func (a *Accessor) handle() monolens.Handle {
	h := a.nextHandle
	a.nextHandle++
	return h
}

func (a *Accessor) placeRecords(snap *Snapshot) {
	for ai := range snap.Assemblies {
		asm := &snap.Assemblies[ai]
		ah := a.handle()
		ih := a.handle()
		a.asmList = append(a.asmList, ah)
		a.asms[ah] = asm.Name
		a.asmImgs[ah] = ih
		a.imgs[ih] = asm.Image.Name
		a.imgAsms[ih] = ah
		byName := make(map[string]monolens.Handle, len(asm.Image.Classes))
		byToken := make(map[uint32]monolens.Handle, len(asm.Image.Classes))
		a.clsByImg[ih] = byName
		a.tokByImg[ih] = byToken
		for ci := range asm.Image.Classes {
			cls := &asm.Image.Classes[ci]
			ch := a.handle()
			full := joinName(cls.Namespace, cls.Name)
			a.clsByFull[full] = ch
			byName[full] = ch
			if cls.Token != 0 {
				byToken[cls.Token] = ch
			}
			a.cls[ch] = &classData{
				name:     cls.Name,
				ns:       cls.Namespace,
				img:      ih,
				token:    cls.Token,
				arity:    cls.GenericArity,
				inflated: cls.Inflated,
			}
		}
	}
}

func (a *Accessor) fillClasses(snap *Snapshot) {
	for ai := range snap.Assemblies {
		for ci := range snap.Assemblies[ai].Image.Classes {
			cls := &snap.Assemblies[ai].Image.Classes[ci]
			data := a.cls[a.clsByFull[joinName(cls.Namespace, cls.Name)]]
			data.flags, _ = parseClassFlags(cls.Flags)
			if cls.Parent != "" {
				data.parent = a.clsByFull[cls.Parent]
			}
			if cls.EnumUnderlying != "" {
				kind, _ := parseKind(cls.EnumUnderlying)
				ref := monolens.PrimitiveType(kind)
				data.enum = &ref
			}
			for _, iface := range cls.Interfaces {
				data.ifaces = append(data.ifaces, a.clsByFull[iface])
			}
		}
	}
}

func (a *Accessor) fillMembers(snap *Snapshot) map[string]monolens.Handle {
	methByFull := make(map[string]monolens.Handle)
	for ai := range snap.Assemblies {
		for ci := range snap.Assemblies[ai].Image.Classes {
			cls := &snap.Assemblies[ai].Image.Classes[ci]
			full := joinName(cls.Namespace, cls.Name)
			ch := a.clsByFull[full]
			data := a.cls[ch]

			byName := make(map[string]monolens.Handle, len(cls.Methods))
			for mi := range cls.Methods {
				m := &cls.Methods[mi]
				mh := a.handle()
				data.methods = append(data.methods, mh)
				byName[m.Name] = mh
				methByFull[full+"::"+m.Name] = mh
				a.meths[mh] = &methodData{
					name:  m.Name,
					cls:   ch,
					token: m.Token,
					arity: m.GenericArity,
					sig:   a.signature(m),
				}
			}
			for fi := range cls.Fields {
				fld := &cls.Fields[fi]
				fh := a.handle()
				data.fields = append(data.fields, fh)
				a.flds[fh] = &fieldData{
					name:   fld.Name,
					cls:    ch,
					typ:    a.typeRef(fld.Type),
					offset: fld.Offset,
				}
			}
			for pi := range cls.Properties {
				prop := &cls.Properties[pi]
				ph := a.handle()
				data.props = append(data.props, ph)
				a.props[ph] = &propData{
					name:   prop.Name,
					cls:    ch,
					getter: byName[prop.Getter],
					setter: byName[prop.Setter],
				}
			}
		}
	}
	return methByFull
}

func (a *Accessor) fillAttributes(snap *Snapshot, methByFull map[string]monolens.Handle) {
	for ai := range snap.Assemblies {
		for ci := range snap.Assemblies[ai].Image.Classes {
			cls := &snap.Assemblies[ai].Image.Classes[ci]
			full := joinName(cls.Namespace, cls.Name)
			ch := a.clsByFull[full]
			data := a.cls[ch]
			a.placeAttrs(ch, cls.Attributes, methByFull)
			for fi := range cls.Fields {
				a.placeAttrs(data.fields[fi], cls.Fields[fi].Attributes, methByFull)
			}
			for mi := range cls.Methods {
				a.placeAttrs(data.methods[mi], cls.Methods[mi].Attributes, methByFull)
			}
			for pi := range cls.Properties {
				a.placeAttrs(data.props[pi], cls.Properties[pi].Attributes, methByFull)
			}
		}
	}
}

func (a *Accessor) placeAttrs(target monolens.Handle, recs []AttrRec, methByFull map[string]monolens.Handle) {
	for _, rec := range recs {
		blob, _ := base64.StdEncoding.DecodeString(rec.Blob)
		addr := a.nextBlob
		span := uint64(len(blob))
		if span == 0 {
			span = 1
		}
		a.nextBlob += (span + addrStep - 1) / addrStep * addrStep
		a.blobs[addr] = blob
		a.attrs[target] = append(a.attrs[target], monolens.AttributeRecord{
			Ctor:     methByFull[rec.Ctor],
			DataAddr: addr,
			DataLen:  uint32(len(blob)),
		})
	}
}

// typeRef resolves a recorded type slot, pulling enum underlying info
// and value-type flags from the referenced class so attribute decoding
// sees the same shape a live resolver would produce.
func (a *Accessor) typeRef(rec TypeRec) monolens.TypeRef {
	kind, _ := parseKind(rec.Kind)
	ref := monolens.TypeRef{
		Kind:    kind,
		ByRef:   rec.ByRef,
		Pointer: rec.Pointer,
		Array:   rec.Array,
	}
	if rec.Class == "" {
		return ref
	}
	ref.FullName = rec.Class
	h := a.clsByFull[rec.Class]
	ref.Class = h
	if data := a.cls[h]; data != nil {
		ref.IsValueType = data.flags.Has(monolens.ClassValueType)
		if data.enum != nil {
			u := *data.enum
			ref.Underlying = &u
		}
	}
	return ref
}

func (a *Accessor) signature(m *MethodRec) monolens.MethodSignature {
	sig := monolens.MethodSignature{Return: a.typeRef(m.Return)}
	for _, p := range m.Params {
		sig.Params = append(sig.Params, a.typeRef(p))
	}
	return sig
}

func unknownRecord(what string, h monolens.Handle) error {
	return errors.ReadFault(errors.PhaseSnapshot, nil,
		fmt.Sprintf("no recorded %s at handle %s", what, h))
}

// PointerSize returns the captured pointer width in bytes.
func (a *Accessor) PointerSize() int { return a.ptrSize }

// ReadBytes serves attribute blob reads from the synthesized address
// map. Only exact record base addresses are readable; a read longer
// than the record faults like an unmapped page would.
func (a *Accessor) ReadBytes(addr uint64, n uint32) ([]byte, error) {
	blob, ok := a.blobs[addr]
	if !ok {
		return nil, errors.ReadFault(errors.PhaseSnapshot, nil,
			fmt.Sprintf("no recorded bytes at 0x%x", addr))
	}
	if int(n) > len(blob) {
		return nil, errors.ReadFault(errors.PhaseSnapshot, nil,
			fmt.Sprintf("read of %d bytes at 0x%x exceeds the %d-byte record", n, addr, len(blob)))
	}
	out := make([]byte, n)
	copy(out, blob[:n])
	return out, nil
}

func (a *Accessor) Assemblies() ([]monolens.Handle, error) {
	out := make([]monolens.Handle, len(a.asmList))
	copy(out, a.asmList)
	return out, nil
}

func (a *Accessor) AssemblyName(asm monolens.Handle) (string, error) {
	name, ok := a.asms[asm]
	if !ok {
		return "", unknownRecord("assembly", asm)
	}
	return name, nil
}

func (a *Accessor) AssemblyImage(asm monolens.Handle) (monolens.Handle, error) {
	img, ok := a.asmImgs[asm]
	if !ok {
		return 0, unknownRecord("assembly", asm)
	}
	return img, nil
}

func (a *Accessor) ImageName(img monolens.Handle) (string, error) {
	name, ok := a.imgs[img]
	if !ok {
		return "", unknownRecord("image", img)
	}
	return name, nil
}

func (a *Accessor) ImageAssembly(img monolens.Handle) (monolens.Handle, error) {
	asm, ok := a.imgAsms[img]
	if !ok {
		return 0, unknownRecord("image", img)
	}
	return asm, nil
}

func (a *Accessor) ClassByToken(img monolens.Handle, token uint32) (monolens.Handle, error) {
	byToken, ok := a.tokByImg[img]
	if !ok {
		return 0, unknownRecord("image", img)
	}
	return byToken[token], nil
}

func (a *Accessor) ClassByName(img monolens.Handle, namespace, name string) (monolens.Handle, error) {
	byName, ok := a.clsByImg[img]
	if !ok {
		return 0, unknownRecord("image", img)
	}
	return byName[joinName(namespace, name)], nil
}

func (a *Accessor) classData(cls monolens.Handle) (*classData, error) {
	data, ok := a.cls[cls]
	if !ok {
		return nil, unknownRecord("class", cls)
	}
	return data, nil
}

func (a *Accessor) ClassName(cls monolens.Handle) (string, error) {
	data, err := a.classData(cls)
	if err != nil {
		return "", err
	}
	return data.name, nil
}

func (a *Accessor) ClassNamespace(cls monolens.Handle) (string, error) {
	data, err := a.classData(cls)
	if err != nil {
		return "", err
	}
	return data.ns, nil
}

func (a *Accessor) ClassImage(cls monolens.Handle) (monolens.Handle, error) {
	data, err := a.classData(cls)
	if err != nil {
		return 0, err
	}
	return data.img, nil
}

func (a *Accessor) ClassParent(cls monolens.Handle) (monolens.Handle, error) {
	data, err := a.classData(cls)
	if err != nil {
		return 0, err
	}
	return data.parent, nil
}

func (a *Accessor) ClassFlags(cls monolens.Handle) (monolens.ClassFlags, error) {
	data, err := a.classData(cls)
	if err != nil {
		return 0, err
	}
	return data.flags, nil
}

func (a *Accessor) ClassToken(cls monolens.Handle) (uint32, error) {
	data, err := a.classData(cls)
	if err != nil {
		return 0, err
	}
	return data.token, nil
}

func (a *Accessor) ClassInterfaces(cls monolens.Handle) ([]monolens.Handle, error) {
	data, err := a.classData(cls)
	if err != nil {
		return nil, err
	}
	return data.ifaces, nil
}

func (a *Accessor) ClassMethods(cls monolens.Handle) ([]monolens.Handle, error) {
	data, err := a.classData(cls)
	if err != nil {
		return nil, err
	}
	return data.methods, nil
}

func (a *Accessor) ClassFields(cls monolens.Handle) ([]monolens.Handle, error) {
	data, err := a.classData(cls)
	if err != nil {
		return nil, err
	}
	return data.fields, nil
}

func (a *Accessor) ClassProperties(cls monolens.Handle) ([]monolens.Handle, error) {
	data, err := a.classData(cls)
	if err != nil {
		return nil, err
	}
	return data.props, nil
}

func (a *Accessor) EnumUnderlyingType(cls monolens.Handle) (monolens.TypeRef, error) {
	data, err := a.classData(cls)
	if err != nil {
		return monolens.TypeRef{}, err
	}
	if data.enum == nil {
		return monolens.TypeRef{}, errors.ReadFault(errors.PhaseSnapshot, nil,
			fmt.Sprintf("class %s records no enum underlying type", joinName(data.ns, data.name)))
	}
	return *data.enum, nil
}

func (a *Accessor) methodData(m monolens.Handle) (*methodData, error) {
	data, ok := a.meths[m]
	if !ok {
		return nil, unknownRecord("method", m)
	}
	return data, nil
}

func (a *Accessor) MethodName(m monolens.Handle) (string, error) {
	data, err := a.methodData(m)
	if err != nil {
		return "", err
	}
	return data.name, nil
}

func (a *Accessor) MethodClass(m monolens.Handle) (monolens.Handle, error) {
	data, err := a.methodData(m)
	if err != nil {
		return 0, err
	}
	return data.cls, nil
}

func (a *Accessor) MethodToken(m monolens.Handle) (uint32, error) {
	data, err := a.methodData(m)
	if err != nil {
		return 0, err
	}
	return data.token, nil
}

func (a *Accessor) MethodSignature(m monolens.Handle) (monolens.MethodSignature, error) {
	data, err := a.methodData(m)
	if err != nil {
		return monolens.MethodSignature{}, err
	}
	return data.sig, nil
}

func (a *Accessor) fieldData(f monolens.Handle) (*fieldData, error) {
	data, ok := a.flds[f]
	if !ok {
		return nil, unknownRecord("field", f)
	}
	return data, nil
}

func (a *Accessor) FieldName(f monolens.Handle) (string, error) {
	data, err := a.fieldData(f)
	if err != nil {
		return "", err
	}
	return data.name, nil
}

func (a *Accessor) FieldType(f monolens.Handle) (monolens.TypeRef, error) {
	data, err := a.fieldData(f)
	if err != nil {
		return monolens.TypeRef{}, err
	}
	return data.typ, nil
}

func (a *Accessor) FieldOffset(f monolens.Handle) (uint32, error) {
	data, err := a.fieldData(f)
	if err != nil {
		return 0, err
	}
	return data.offset, nil
}

func (a *Accessor) propertyData(p monolens.Handle) (*propData, error) {
	data, ok := a.props[p]
	if !ok {
		return nil, unknownRecord("property", p)
	}
	return data, nil
}

func (a *Accessor) PropertyName(p monolens.Handle) (string, error) {
	data, err := a.propertyData(p)
	if err != nil {
		return "", err
	}
	return data.name, nil
}

func (a *Accessor) PropertyGetter(p monolens.Handle) (monolens.Handle, error) {
	data, err := a.propertyData(p)
	if err != nil {
		return 0, err
	}
	return data.getter, nil
}

func (a *Accessor) PropertySetter(p monolens.Handle) (monolens.Handle, error) {
	data, err := a.propertyData(p)
	if err != nil {
		return 0, err
	}
	return data.setter, nil
}

func (a *Accessor) AttributeRecords(target monolens.Handle) ([]monolens.AttributeRecord, error) {
	if !a.knownHandle(target) {
		return nil, unknownRecord("attribute target", target)
	}
	return a.attrs[target], nil
}

func (a *Accessor) knownHandle(h monolens.Handle) bool {
	if _, ok := a.cls[h]; ok {
		return true
	}
	if _, ok := a.meths[h]; ok {
		return true
	}
	if _, ok := a.flds[h]; ok {
		return true
	}
	if _, ok := a.props[h]; ok {
		return true
	}
	_, ok := a.asms[h]
	return ok
}

// IsGenericDefinition treats any non-inflated class with recorded arity
// as an open definition.
func (a *Accessor) IsGenericDefinition(cls monolens.Handle) (bool, error) {
	data, err := a.classData(cls)
	if err != nil {
		return false, err
	}
	return data.arity > 0 && !data.inflated, nil
}

func (a *Accessor) IsInflated(cls monolens.Handle) (bool, error) {
	data, err := a.classData(cls)
	if err != nil {
		return false, err
	}
	return data.inflated, nil
}

func (a *Accessor) GenericParamCount(cls monolens.Handle) (int, error) {
	data, err := a.classData(cls)
	if err != nil {
		return 0, err
	}
	return data.arity, nil
}

// GenericArguments is unavailable: a snapshot records instantiations as
// named classes, not as argument lists.
func (a *Accessor) GenericArguments(cls monolens.Handle) ([]monolens.Handle, error) {
	if _, err := a.classData(cls); err != nil {
		return nil, err
	}
	return nil, errors.Unavailable(errors.PhaseSnapshot, "generic argument enumeration")
}

func (a *Accessor) MethodGenericParamCount(m monolens.Handle) (int, error) {
	data, err := a.methodData(m)
	if err != nil {
		return 0, err
	}
	return data.arity, nil
}

// MethodIsInflated is always false: snapshots record declared methods,
// never constructed ones.
func (a *Accessor) MethodIsInflated(m monolens.Handle) (bool, error) {
	if _, err := a.methodData(m); err != nil {
		return false, err
	}
	return false, nil
}

// TypeByName resolves a recorded full name, including composite
// instantiation names when the capture recorded the constructed class
// under that name. Recorded full names are unique across the snapshot,
// so the image hint does not narrow the search.
func (a *Accessor) TypeByName(name string, img monolens.Handle) (monolens.Handle, error) {
	return a.clsByFull[name], nil
}

func (a *Accessor) ResolveExport(name string) (uint64, bool) {
	addr, ok := a.exports[name]
	return addr, ok
}

func (a *Accessor) RuntimeVersion() string { return a.version }

var (
	_ monolens.Accessor         = (*Accessor)(nil)
	_ monolens.GenericQuerier   = (*Accessor)(nil)
	_ monolens.TypeNameResolver = (*Accessor)(nil)
	_ monolens.ExportTable      = (*Accessor)(nil)
	_ monolens.VersionReporter  = (*Accessor)(nil)
)
