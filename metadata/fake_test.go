package metadata

import (
	"fmt"

	"github.com/microsoft/go-winmd/flags"

	monolens "github.com/monolens/monolens"
)

// Handle layout of the test world: assemblies 0x1xx, images 0x2xx,
// classes 0x3xx, methods 0x4xx, fields 0x5xx, properties 0x6xx.
const (
	hAsmGame   monolens.Handle = 0x100
	hAsmCorlib monolens.Handle = 0x101

	hImgGame   monolens.Handle = 0x200
	hImgCorlib monolens.Handle = 0x201

	hClsBoss       monolens.Handle = 0x300
	hClsEnemy      monolens.Handle = 0x301
	hClsObject     monolens.Handle = 0x302
	hClsDamageable monolens.Handle = 0x303
	hClsDifficulty monolens.Handle = 0x304
	hClsSpawnAttr  monolens.Handle = 0x305
	hClsCycleA     monolens.Handle = 0x310
	hClsCycleB     monolens.Handle = 0x311

	hMethAttack2    monolens.Handle = 0x400
	hMethAttack0    monolens.Handle = 0x401
	hMethTakeDamage monolens.Handle = 0x402
	hMethGetHealth  monolens.Handle = 0x403
	hCtorSpawnInt   monolens.Handle = 0x404
	hCtorSpawnBare  monolens.Handle = 0x405

	hFldHealth monolens.Handle = 0x500
	hFldName   monolens.Handle = 0x501

	hPropHealth monolens.Handle = 0x600
)

type fakeClass struct {
	ns, name   string
	token      uint32
	image      monolens.Handle
	parent     monolens.Handle
	flags      monolens.ClassFlags
	interfaces []monolens.Handle
	methods    []monolens.Handle
	fields     []monolens.Handle
	properties []monolens.Handle
}

type fakeMethod struct {
	name  string
	class monolens.Handle
	token uint32
	sig   monolens.MethodSignature
}

type fakeField struct {
	name   string
	typ    monolens.TypeRef
	offset uint32
}

type fakeProp struct {
	name           string
	getter, setter monolens.Handle
}

type classKey struct {
	img      monolens.Handle
	ns, name string
}

type fakeAccessor struct {
	assemblies []monolens.Handle
	asmNames   map[monolens.Handle]string
	asmImages  map[monolens.Handle]monolens.Handle
	imgNames   map[monolens.Handle]string
	imgAsms    map[monolens.Handle]monolens.Handle
	classes    map[monolens.Handle]*fakeClass
	byName     map[classKey]monolens.Handle
	byToken    map[uint32]monolens.Handle
	enums      map[monolens.Handle]monolens.TypeRef
	methods    map[monolens.Handle]*fakeMethod
	fields     map[monolens.Handle]*fakeField
	props      map[monolens.Handle]*fakeProp
	attrs      map[monolens.Handle][]monolens.AttributeRecord
	memory     map[uint64][]byte

	calls map[string]int
	fail  map[string]error
}

// step counts the call and returns a forced failure when one is set.
func (f *fakeAccessor) step(method string) error {
	f.calls[method]++
	return f.fail[method]
}

func newWorld() *fakeAccessor {
	i4 := monolens.PrimitiveType(flags.ElementType_I4)
	str := monolens.PrimitiveType(flags.ElementType_STRING)

	f := &fakeAccessor{
		assemblies: []monolens.Handle{hAsmGame, hAsmCorlib},
		asmNames: map[monolens.Handle]string{
			hAsmGame:   "Game",
			hAsmCorlib: "mscorlib",
		},
		asmImages: map[monolens.Handle]monolens.Handle{
			hAsmGame:   hImgGame,
			hAsmCorlib: hImgCorlib,
		},
		imgNames: map[monolens.Handle]string{
			hImgGame:   "Game.dll",
			hImgCorlib: "mscorlib.dll",
		},
		imgAsms: map[monolens.Handle]monolens.Handle{
			hImgGame:   hAsmGame,
			hImgCorlib: hAsmCorlib,
		},
		classes: map[monolens.Handle]*fakeClass{
			hClsBoss: {
				ns: "Game", name: "Boss", token: 0x02000010,
				image:      hImgGame,
				parent:     hClsEnemy,
				flags:      monolens.ClassSealed,
				methods:    []monolens.Handle{hMethAttack2, hMethAttack0, hMethTakeDamage, hMethGetHealth},
				fields:     []monolens.Handle{hFldHealth, hFldName},
				properties: []monolens.Handle{hPropHealth},
			},
			hClsEnemy: {
				ns: "Game", name: "Enemy", token: 0x02000011,
				image:      hImgGame,
				parent:     hClsObject,
				flags:      monolens.ClassAbstract,
				interfaces: []monolens.Handle{hClsDamageable},
			},
			hClsObject: {
				ns: "System", name: "Object", token: 0x02000002,
				image: hImgCorlib,
			},
			hClsDamageable: {
				ns: "Game", name: "IDamageable", token: 0x02000012,
				image: hImgGame,
				flags: monolens.ClassInterface | monolens.ClassAbstract,
			},
			hClsDifficulty: {
				ns: "Game", name: "Difficulty", token: 0x02000013,
				image:  hImgGame,
				parent: hClsObject,
				flags:  monolens.ClassEnum | monolens.ClassValueType,
			},
			hClsSpawnAttr: {
				ns: "Game", name: "SpawnAttribute", token: 0x02000014,
				image:   hImgGame,
				parent:  hClsObject,
				methods: []monolens.Handle{hCtorSpawnInt, hCtorSpawnBare},
			},
			hClsCycleA: {
				ns: "Weird", name: "A", token: 0x02000020,
				image: hImgGame, parent: hClsCycleB,
			},
			hClsCycleB: {
				ns: "Weird", name: "B", token: 0x02000021,
				image: hImgGame, parent: hClsCycleA,
			},
		},
		enums: map[monolens.Handle]monolens.TypeRef{
			hClsDifficulty: monolens.PrimitiveType(flags.ElementType_U1),
		},
		methods: map[monolens.Handle]*fakeMethod{
			hMethAttack2: {
				name: "Attack", class: hClsBoss, token: 0x06000030,
				sig: monolens.MethodSignature{Params: []monolens.TypeRef{i4, str}},
			},
			hMethAttack0: {
				name: "Attack", class: hClsBoss, token: 0x06000031,
			},
			hMethTakeDamage: {
				name: "TakeDamage", class: hClsBoss, token: 0x06000032,
				sig: monolens.MethodSignature{Params: []monolens.TypeRef{i4}},
			},
			hMethGetHealth: {
				name: "get_Health", class: hClsBoss, token: 0x06000033,
				sig: monolens.MethodSignature{Return: i4},
			},
			hCtorSpawnInt: {
				name: ".ctor", class: hClsSpawnAttr, token: 0x06000034,
				sig: monolens.MethodSignature{Params: []monolens.TypeRef{i4}},
			},
			hCtorSpawnBare: {
				name: ".ctor", class: hClsSpawnAttr, token: 0x06000035,
			},
		},
		fields: map[monolens.Handle]*fakeField{
			hFldHealth: {name: "health", typ: i4, offset: 0x10},
			hFldName:   {name: "name", typ: str, offset: 0x18},
		},
		props: map[monolens.Handle]*fakeProp{
			hPropHealth: {name: "Health", getter: hMethGetHealth},
		},
		attrs: map[monolens.Handle][]monolens.AttributeRecord{
			hClsBoss: {
				{Ctor: hCtorSpawnInt, DataAddr: 0x9000, DataLen: 8},
			},
			hClsEnemy: {
				{Ctor: hCtorSpawnBare, DataAddr: 0x9100, DataLen: 34},
			},
		},
		memory: map[uint64][]byte{
			// SpawnAttribute(42)
			0x9000: {0x01, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x00},
			// SpawnAttribute(difficulty = Game.Difficulty(2))
			0x9100: buildEnumNamedArgBlob(),
		},
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}

	f.byName = make(map[classKey]monolens.Handle, len(f.classes))
	f.byToken = make(map[uint32]monolens.Handle, len(f.classes))
	for h, c := range f.classes {
		f.byName[classKey{c.image, c.ns, c.name}] = h
		f.byToken[c.token] = h
	}
	return f
}

// buildEnumNamedArgBlob encodes: prolog, no fixed args, one FIELD named
// argument "difficulty" of enum type Game.Difficulty with value 2. The
// underlying type is u1, so the value is a single byte.
func buildEnumNamedArgBlob() []byte {
	b := []byte{0x01, 0x00, 0x01, 0x00, 0x53, 0x55, 0x0F}
	b = append(b, "Game.Difficulty"...)
	b = append(b, 0x0A)
	b = append(b, "difficulty"...)
	b = append(b, 0x02)
	return b
}

func (f *fakeAccessor) ReadBytes(addr uint64, n uint32) ([]byte, error) {
	if err := f.step("ReadBytes"); err != nil {
		return nil, err
	}
	b, ok := f.memory[addr]
	if !ok {
		return nil, fmt.Errorf("unmapped address 0x%x", addr)
	}
	if uint32(len(b)) > n {
		b = b[:n]
	}
	return b, nil
}

func (f *fakeAccessor) Assemblies() ([]monolens.Handle, error) {
	if err := f.step("Assemblies"); err != nil {
		return nil, err
	}
	return f.assemblies, nil
}

func (f *fakeAccessor) AssemblyName(asm monolens.Handle) (string, error) {
	if err := f.step("AssemblyName"); err != nil {
		return "", err
	}
	name, ok := f.asmNames[asm]
	if !ok {
		return "", fmt.Errorf("unknown assembly %v", asm)
	}
	return name, nil
}

func (f *fakeAccessor) AssemblyImage(asm monolens.Handle) (monolens.Handle, error) {
	if err := f.step("AssemblyImage"); err != nil {
		return 0, err
	}
	img, ok := f.asmImages[asm]
	if !ok {
		return 0, fmt.Errorf("unknown assembly %v", asm)
	}
	return img, nil
}

func (f *fakeAccessor) ImageName(img monolens.Handle) (string, error) {
	if err := f.step("ImageName"); err != nil {
		return "", err
	}
	name, ok := f.imgNames[img]
	if !ok {
		return "", fmt.Errorf("unknown image %v", img)
	}
	return name, nil
}

func (f *fakeAccessor) ImageAssembly(img monolens.Handle) (monolens.Handle, error) {
	if err := f.step("ImageAssembly"); err != nil {
		return 0, err
	}
	asm, ok := f.imgAsms[img]
	if !ok {
		return 0, fmt.Errorf("unknown image %v", img)
	}
	return asm, nil
}

func (f *fakeAccessor) ClassByToken(img monolens.Handle, token uint32) (monolens.Handle, error) {
	if err := f.step("ClassByToken"); err != nil {
		return 0, err
	}
	h := f.byToken[token]
	if h != 0 && f.classes[h].image != img {
		return 0, nil
	}
	return h, nil
}

func (f *fakeAccessor) ClassByName(img monolens.Handle, namespace, name string) (monolens.Handle, error) {
	if err := f.step("ClassByName"); err != nil {
		return 0, err
	}
	return f.byName[classKey{img, namespace, name}], nil
}

func (f *fakeAccessor) class(h monolens.Handle) (*fakeClass, error) {
	c, ok := f.classes[h]
	if !ok {
		return nil, fmt.Errorf("unknown class %v", h)
	}
	return c, nil
}

func (f *fakeAccessor) ClassName(cls monolens.Handle) (string, error) {
	if err := f.step("ClassName"); err != nil {
		return "", err
	}
	c, err := f.class(cls)
	if err != nil {
		return "", err
	}
	return c.name, nil
}

func (f *fakeAccessor) ClassNamespace(cls monolens.Handle) (string, error) {
	if err := f.step("ClassNamespace"); err != nil {
		return "", err
	}
	c, err := f.class(cls)
	if err != nil {
		return "", err
	}
	return c.ns, nil
}

func (f *fakeAccessor) ClassImage(cls monolens.Handle) (monolens.Handle, error) {
	if err := f.step("ClassImage"); err != nil {
		return 0, err
	}
	c, err := f.class(cls)
	if err != nil {
		return 0, err
	}
	return c.image, nil
}

func (f *fakeAccessor) ClassParent(cls monolens.Handle) (monolens.Handle, error) {
	if err := f.step("ClassParent"); err != nil {
		return 0, err
	}
	c, err := f.class(cls)
	if err != nil {
		return 0, err
	}
	return c.parent, nil
}

func (f *fakeAccessor) ClassFlags(cls monolens.Handle) (monolens.ClassFlags, error) {
	if err := f.step("ClassFlags"); err != nil {
		return 0, err
	}
	c, err := f.class(cls)
	if err != nil {
		return 0, err
	}
	return c.flags, nil
}

func (f *fakeAccessor) ClassToken(cls monolens.Handle) (uint32, error) {
	if err := f.step("ClassToken"); err != nil {
		return 0, err
	}
	c, err := f.class(cls)
	if err != nil {
		return 0, err
	}
	return c.token, nil
}

func (f *fakeAccessor) ClassInterfaces(cls monolens.Handle) ([]monolens.Handle, error) {
	if err := f.step("ClassInterfaces"); err != nil {
		return nil, err
	}
	c, err := f.class(cls)
	if err != nil {
		return nil, err
	}
	return c.interfaces, nil
}

func (f *fakeAccessor) ClassMethods(cls monolens.Handle) ([]monolens.Handle, error) {
	if err := f.step("ClassMethods"); err != nil {
		return nil, err
	}
	c, err := f.class(cls)
	if err != nil {
		return nil, err
	}
	return c.methods, nil
}

func (f *fakeAccessor) ClassFields(cls monolens.Handle) ([]monolens.Handle, error) {
	if err := f.step("ClassFields"); err != nil {
		return nil, err
	}
	c, err := f.class(cls)
	if err != nil {
		return nil, err
	}
	return c.fields, nil
}

func (f *fakeAccessor) ClassProperties(cls monolens.Handle) ([]monolens.Handle, error) {
	if err := f.step("ClassProperties"); err != nil {
		return nil, err
	}
	c, err := f.class(cls)
	if err != nil {
		return nil, err
	}
	return c.properties, nil
}

func (f *fakeAccessor) EnumUnderlyingType(cls monolens.Handle) (monolens.TypeRef, error) {
	if err := f.step("EnumUnderlyingType"); err != nil {
		return monolens.TypeRef{}, err
	}
	t, ok := f.enums[cls]
	if !ok {
		return monolens.TypeRef{}, fmt.Errorf("class %v is not an enum", cls)
	}
	return t, nil
}

func (f *fakeAccessor) method(h monolens.Handle) (*fakeMethod, error) {
	m, ok := f.methods[h]
	if !ok {
		return nil, fmt.Errorf("unknown method %v", h)
	}
	return m, nil
}

func (f *fakeAccessor) MethodName(h monolens.Handle) (string, error) {
	if err := f.step("MethodName"); err != nil {
		return "", err
	}
	m, err := f.method(h)
	if err != nil {
		return "", err
	}
	return m.name, nil
}

func (f *fakeAccessor) MethodClass(h monolens.Handle) (monolens.Handle, error) {
	if err := f.step("MethodClass"); err != nil {
		return 0, err
	}
	m, err := f.method(h)
	if err != nil {
		return 0, err
	}
	return m.class, nil
}

func (f *fakeAccessor) MethodToken(h monolens.Handle) (uint32, error) {
	if err := f.step("MethodToken"); err != nil {
		return 0, err
	}
	m, err := f.method(h)
	if err != nil {
		return 0, err
	}
	return m.token, nil
}

func (f *fakeAccessor) MethodSignature(h monolens.Handle) (monolens.MethodSignature, error) {
	if err := f.step("MethodSignature"); err != nil {
		return monolens.MethodSignature{}, err
	}
	m, err := f.method(h)
	if err != nil {
		return monolens.MethodSignature{}, err
	}
	return m.sig, nil
}

func (f *fakeAccessor) field(h monolens.Handle) (*fakeField, error) {
	fl, ok := f.fields[h]
	if !ok {
		return nil, fmt.Errorf("unknown field %v", h)
	}
	return fl, nil
}

func (f *fakeAccessor) FieldName(h monolens.Handle) (string, error) {
	if err := f.step("FieldName"); err != nil {
		return "", err
	}
	fl, err := f.field(h)
	if err != nil {
		return "", err
	}
	return fl.name, nil
}

func (f *fakeAccessor) FieldType(h monolens.Handle) (monolens.TypeRef, error) {
	if err := f.step("FieldType"); err != nil {
		return monolens.TypeRef{}, err
	}
	fl, err := f.field(h)
	if err != nil {
		return monolens.TypeRef{}, err
	}
	return fl.typ, nil
}

func (f *fakeAccessor) FieldOffset(h monolens.Handle) (uint32, error) {
	if err := f.step("FieldOffset"); err != nil {
		return 0, err
	}
	fl, err := f.field(h)
	if err != nil {
		return 0, err
	}
	return fl.offset, nil
}

func (f *fakeAccessor) prop(h monolens.Handle) (*fakeProp, error) {
	p, ok := f.props[h]
	if !ok {
		return nil, fmt.Errorf("unknown property %v", h)
	}
	return p, nil
}

func (f *fakeAccessor) PropertyName(h monolens.Handle) (string, error) {
	if err := f.step("PropertyName"); err != nil {
		return "", err
	}
	p, err := f.prop(h)
	if err != nil {
		return "", err
	}
	return p.name, nil
}

func (f *fakeAccessor) PropertyGetter(h monolens.Handle) (monolens.Handle, error) {
	if err := f.step("PropertyGetter"); err != nil {
		return 0, err
	}
	p, err := f.prop(h)
	if err != nil {
		return 0, err
	}
	return p.getter, nil
}

func (f *fakeAccessor) PropertySetter(h monolens.Handle) (monolens.Handle, error) {
	if err := f.step("PropertySetter"); err != nil {
		return 0, err
	}
	p, err := f.prop(h)
	if err != nil {
		return 0, err
	}
	return p.setter, nil
}

func (f *fakeAccessor) AttributeRecords(target monolens.Handle) ([]monolens.AttributeRecord, error) {
	if err := f.step("AttributeRecords"); err != nil {
		return nil, err
	}
	return f.attrs[target], nil
}
