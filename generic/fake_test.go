package generic

import (
	stderrors "errors"
	"testing"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
	"github.com/monolens/monolens/metadata"
)

// Fixture handles. Dictionary`2 and List`1 are open definitions in the
// core image, Boss is a plain game class, and hClosed is a recorded
// constructed instantiation of Dictionary`2.
const (
	hAsmCore monolens.Handle = 0x10
	hAsmGame monolens.Handle = 0x11
	hImgCore monolens.Handle = 0x20
	hImgGame monolens.Handle = 0x21

	hDict   monolens.Handle = 0x30
	hList   monolens.Handle = 0x31
	hBoss   monolens.Handle = 0x32
	hInt    monolens.Handle = 0x33
	hStr    monolens.Handle = 0x34
	hClosed monolens.Handle = 0x40

	hMethGeneric  monolens.Handle = 0x50
	hMethPlain    monolens.Handle = 0x51
	hMethInflated monolens.Handle = 0x52
	hMethClosed   monolens.Handle = 0x53
)

var errUnwired = stderrors.New("not wired in this fake")

// fakeAccessor answers the metadata reads the engine needs to build
// composite names and nothing else. It also collects the construction
// calls (resolver, binder, reflector) the capability fakes record, so
// tests can assert strategy ordering.
type fakeAccessor struct {
	names      map[monolens.Handle]string
	namespaces map[monolens.Handle]string
	classImgs  map[monolens.Handle]monolens.Handle
	imageAsms  map[monolens.Handle]monolens.Handle
	asmNames   map[monolens.Handle]string

	events []string
}

func newFake() *fakeAccessor {
	return &fakeAccessor{
		names: map[monolens.Handle]string{
			hDict:   "Dictionary`2",
			hList:   "List`1",
			hBoss:   "Boss",
			hInt:    "Int32",
			hStr:    "String",
			hClosed: "Dictionary`2",
		},
		namespaces: map[monolens.Handle]string{
			hDict:   "System.Collections.Generic",
			hList:   "System.Collections.Generic",
			hBoss:   "Game",
			hInt:    "System",
			hStr:    "System",
			hClosed: "System.Collections.Generic",
		},
		classImgs: map[monolens.Handle]monolens.Handle{
			hDict:   hImgCore,
			hList:   hImgCore,
			hInt:    hImgCore,
			hStr:    hImgCore,
			hClosed: hImgCore,
			hBoss:   hImgGame,
		},
		imageAsms: map[monolens.Handle]monolens.Handle{
			hImgCore: hAsmCore,
			hImgGame: hAsmGame,
		},
		asmNames: map[monolens.Handle]string{
			hAsmCore: "mscorlib",
			hAsmGame: "Game",
		},
	}
}

func (f *fakeAccessor) record(ev string) { f.events = append(f.events, ev) }

func (f *fakeAccessor) ClassName(cls monolens.Handle) (string, error) {
	if name, ok := f.names[cls]; ok {
		return name, nil
	}
	return "", errUnwired
}

func (f *fakeAccessor) ClassNamespace(cls monolens.Handle) (string, error) {
	if ns, ok := f.namespaces[cls]; ok {
		return ns, nil
	}
	return "", errUnwired
}

func (f *fakeAccessor) ClassImage(cls monolens.Handle) (monolens.Handle, error) {
	if img, ok := f.classImgs[cls]; ok {
		return img, nil
	}
	return 0, errUnwired
}

func (f *fakeAccessor) ImageAssembly(img monolens.Handle) (monolens.Handle, error) {
	if asm, ok := f.imageAsms[img]; ok {
		return asm, nil
	}
	return 0, errUnwired
}

func (f *fakeAccessor) AssemblyName(asm monolens.Handle) (string, error) {
	if name, ok := f.asmNames[asm]; ok {
		return name, nil
	}
	return "", errUnwired
}

func (f *fakeAccessor) ReadBytes(uint64, uint32) ([]byte, error) { return nil, errUnwired }

func (f *fakeAccessor) Assemblies() ([]monolens.Handle, error) { return nil, errUnwired }

func (f *fakeAccessor) AssemblyImage(monolens.Handle) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) ImageName(monolens.Handle) (string, error) { return "", errUnwired }

func (f *fakeAccessor) ClassByToken(monolens.Handle, uint32) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) ClassByName(monolens.Handle, string, string) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) ClassParent(monolens.Handle) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) ClassFlags(monolens.Handle) (monolens.ClassFlags, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) ClassToken(monolens.Handle) (uint32, error) { return 0, errUnwired }

func (f *fakeAccessor) ClassInterfaces(monolens.Handle) ([]monolens.Handle, error) {
	return nil, errUnwired
}

func (f *fakeAccessor) ClassMethods(monolens.Handle) ([]monolens.Handle, error) {
	return nil, errUnwired
}

func (f *fakeAccessor) ClassFields(monolens.Handle) ([]monolens.Handle, error) {
	return nil, errUnwired
}

func (f *fakeAccessor) ClassProperties(monolens.Handle) ([]monolens.Handle, error) {
	return nil, errUnwired
}

func (f *fakeAccessor) EnumUnderlyingType(monolens.Handle) (monolens.TypeRef, error) {
	return monolens.TypeRef{}, errUnwired
}

func (f *fakeAccessor) MethodName(monolens.Handle) (string, error) { return "", errUnwired }

func (f *fakeAccessor) MethodClass(monolens.Handle) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) MethodToken(monolens.Handle) (uint32, error) { return 0, errUnwired }

func (f *fakeAccessor) MethodSignature(monolens.Handle) (monolens.MethodSignature, error) {
	return monolens.MethodSignature{}, errUnwired
}

func (f *fakeAccessor) FieldName(monolens.Handle) (string, error) { return "", errUnwired }

func (f *fakeAccessor) FieldType(monolens.Handle) (monolens.TypeRef, error) {
	return monolens.TypeRef{}, errUnwired
}

func (f *fakeAccessor) FieldOffset(monolens.Handle) (uint32, error) { return 0, errUnwired }

func (f *fakeAccessor) PropertyName(monolens.Handle) (string, error) { return "", errUnwired }

func (f *fakeAccessor) PropertyGetter(monolens.Handle) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) PropertySetter(monolens.Handle) (monolens.Handle, error) {
	return 0, errUnwired
}

func (f *fakeAccessor) AttributeRecords(monolens.Handle) ([]monolens.AttributeRecord, error) {
	return nil, errUnwired
}

// querierFake adds native generic queries over the fixture. queryErr,
// when set, is returned by every query so tests can simulate reduced
// runtime builds and read faults.
type querierFake struct {
	*fakeAccessor
	defs        map[monolens.Handle]bool
	inflated    map[monolens.Handle]bool
	arity       map[monolens.Handle]int
	genArgs     map[monolens.Handle][]monolens.Handle
	methodArity map[monolens.Handle]int
	methodInfl  map[monolens.Handle]bool
	queryErr    error
}

func newQuerier() *querierFake {
	return &querierFake{
		fakeAccessor: newFake(),
		defs:         map[monolens.Handle]bool{hDict: true, hList: true},
		inflated:     map[monolens.Handle]bool{hClosed: true},
		arity:        map[monolens.Handle]int{hDict: 2, hList: 1},
		genArgs:      map[monolens.Handle][]monolens.Handle{hClosed: {hInt, hStr}},
		methodArity:  map[monolens.Handle]int{hMethGeneric: 1, hMethInflated: 1},
		methodInfl:   map[monolens.Handle]bool{hMethInflated: true},
	}
}

func (q *querierFake) IsGenericDefinition(cls monolens.Handle) (bool, error) {
	if q.queryErr != nil {
		return false, q.queryErr
	}
	return q.defs[cls], nil
}

func (q *querierFake) IsInflated(cls monolens.Handle) (bool, error) {
	if q.queryErr != nil {
		return false, q.queryErr
	}
	return q.inflated[cls], nil
}

func (q *querierFake) GenericParamCount(cls monolens.Handle) (int, error) {
	if q.queryErr != nil {
		return 0, q.queryErr
	}
	return q.arity[cls], nil
}

func (q *querierFake) GenericArguments(cls monolens.Handle) ([]monolens.Handle, error) {
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return q.genArgs[cls], nil
}

func (q *querierFake) MethodGenericParamCount(m monolens.Handle) (int, error) {
	if q.queryErr != nil {
		return 0, q.queryErr
	}
	return q.methodArity[m], nil
}

func (q *querierFake) MethodIsInflated(m monolens.Handle) (bool, error) {
	if q.queryErr != nil {
		return false, q.queryErr
	}
	return q.methodInfl[m], nil
}

// resolverFake adds type-by-name resolution on top of the querier.
type resolverFake struct {
	*querierFake
	byName  map[string]monolens.Handle
	lastImg monolens.Handle
}

func newResolver() *resolverFake {
	return &resolverFake{
		querierFake: newQuerier(),
		byName:      map[string]monolens.Handle{},
	}
}

func (r *resolverFake) TypeByName(name string, img monolens.Handle) (monolens.Handle, error) {
	r.record("TypeByName " + name)
	r.lastImg = img
	return r.byName[name], nil
}

// binderFake adds descriptor binding on top of the querier, with no
// name resolution capability.
type binderFake struct {
	*querierFake
	bound    map[monolens.Handle]monolens.Handle
	bindErr  error
	lastDesc []byte
}

func newBinder() *binderFake {
	return &binderFake{
		querierFake: newQuerier(),
		bound:       map[monolens.Handle]monolens.Handle{},
	}
}

func (b *binderFake) BindGenericInst(def monolens.Handle, descriptor []byte) (monolens.Handle, error) {
	b.record("BindGenericInst")
	if b.bindErr != nil {
		return 0, b.bindErr
	}
	b.lastDesc = append([]byte(nil), descriptor...)
	return b.bound[def], nil
}

func (b *binderFake) BindGenericMethodInst(m monolens.Handle, descriptor []byte) (monolens.Handle, error) {
	b.record("BindGenericMethodInst")
	if b.bindErr != nil {
		return 0, b.bindErr
	}
	b.lastDesc = append([]byte(nil), descriptor...)
	return b.bound[m], nil
}

// fullFake carries querier, resolver and binder together.
type fullFake struct {
	*resolverFake
	bound    map[monolens.Handle]monolens.Handle
	lastDesc []byte
}

func newFull() *fullFake {
	return &fullFake{
		resolverFake: newResolver(),
		bound:        map[monolens.Handle]monolens.Handle{},
	}
}

func (f *fullFake) BindGenericInst(def monolens.Handle, descriptor []byte) (monolens.Handle, error) {
	f.record("BindGenericInst")
	f.lastDesc = append([]byte(nil), descriptor...)
	return f.bound[def], nil
}

func (f *fullFake) BindGenericMethodInst(m monolens.Handle, descriptor []byte) (monolens.Handle, error) {
	f.record("BindGenericMethodInst")
	f.lastDesc = append([]byte(nil), descriptor...)
	return f.bound[m], nil
}

// reflectorFake exposes only the managed reflection fallback besides
// the querier.
type reflectorFake struct {
	*querierFake
	made map[monolens.Handle]monolens.Handle
}

func newReflector() *reflectorFake {
	return &reflectorFake{
		querierFake: newQuerier(),
		made:        map[monolens.Handle]monolens.Handle{},
	}
}

func (r *reflectorFake) MakeGenericMethod(m monolens.Handle, typeArgs []monolens.Handle) (monolens.Handle, error) {
	r.record("MakeGenericMethod")
	return r.made[m], nil
}

// bareReflector has a reflector but no querier, modeling the most
// reduced build the method path still works on.
type bareReflector struct {
	*fakeAccessor
	made map[monolens.Handle]monolens.Handle
}

func newBareReflector() *bareReflector {
	return &bareReflector{
		fakeAccessor: newFake(),
		made:         map[monolens.Handle]monolens.Handle{},
	}
}

func (r *bareReflector) MakeGenericMethod(m monolens.Handle, typeArgs []monolens.Handle) (monolens.Handle, error) {
	r.record("MakeGenericMethod")
	return r.made[m], nil
}

func mustClass(t *testing.T, acc monolens.Accessor, h monolens.Handle) *metadata.Class {
	t.Helper()
	cls, err := metadata.NewClass(acc, h)
	if err != nil {
		t.Fatalf("NewClass(%s) error = %v", h, err)
	}
	return cls
}

func mustMethod(t *testing.T, acc monolens.Accessor, h monolens.Handle) *metadata.Method {
	t.Helper()
	m, err := metadata.NewMethod(acc, h)
	if err != nil {
		t.Fatalf("NewMethod(%s) error = %v", h, err)
	}
	return m
}

func mustEngine(t *testing.T, acc monolens.Accessor) *Engine {
	t.Helper()
	eng, err := NewEngine(acc, EngineConfig{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return eng
}

func unavailableErr() error {
	return errors.Unavailable(errors.PhaseResolve, "generic queries")
}
