package generic

import (
	"encoding/binary"
	"math"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

// Wire layout of a native instantiation descriptor: one little-endian
// header word, then one pointer-wide little-endian slot per argument
// handle. The header packs the argument count into bits 0-21 and the
// open flag into bit 22; bits 23-31 stay zero.
const (
	headerSize = 4
	// maxInstArgs is the largest argument count the 22-bit header
	// field can carry.
	maxInstArgs = 1<<22 - 1
	// isOpenBit marks an instantiation that still contains unbound
	// formal parameters.
	isOpenBit = 1 << 22
)

// reservedMask covers the header bits that must stay zero.
const reservedMask = ^uint32(1<<23 - 1)

// InstDescriptor models the runtime's generic instantiation record:
// the concrete type-argument handles and whether any slot is still an
// unbound formal parameter. Engine encodes it for GenericBinder; the
// format never leaks past this package.
type InstDescriptor struct {
	Args   []monolens.Handle
	IsOpen bool
}

// PackHeader builds the descriptor's header word. Argument counts
// beyond the 22-bit field are rejected by Encode before packing.
func (d InstDescriptor) PackHeader() uint32 {
	h := uint32(len(d.Args)) & maxInstArgs
	if d.IsOpen {
		h |= isOpenBit
	}
	return h
}

// Encode serializes the descriptor for binding. ptrSize is the
// inspected runtime's pointer width in bytes, 4 or 8; zero means 8.
func (d InstDescriptor) Encode(ptrSize int) ([]byte, error) {
	if len(d.Args) > maxInstArgs {
		return nil, errors.InvalidInput(errors.PhaseInstantiate,
			"%d type arguments exceed the %d-argument descriptor limit", len(d.Args), maxInstArgs)
	}
	ptrSize, err := normalizePtrSize(ptrSize)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerSize+ptrSize*len(d.Args))
	binary.LittleEndian.PutUint32(buf, d.PackHeader())
	off := headerSize
	for _, arg := range d.Args {
		if ptrSize == 4 {
			if uint64(arg) > math.MaxUint32 {
				return nil, errors.InvalidInput(errors.PhaseInstantiate,
					"handle %s does not fit a 4-byte pointer slot", arg)
			}
			binary.LittleEndian.PutUint32(buf[off:], uint32(arg))
		} else {
			binary.LittleEndian.PutUint64(buf[off:], uint64(arg))
		}
		off += ptrSize
	}
	return buf, nil
}

// DecodeInstDescriptor parses a descriptor produced by Encode. It is
// the inspection counterpart used by tests and diagnostics; the live
// runtime only ever consumes descriptors, it does not emit them.
func DecodeInstDescriptor(b []byte, ptrSize int) (InstDescriptor, error) {
	ptrSize, err := normalizePtrSize(ptrSize)
	if err != nil {
		return InstDescriptor{}, err
	}
	if len(b) < headerSize {
		return InstDescriptor{}, errors.Truncated(0, headerSize, len(b))
	}
	header := binary.LittleEndian.Uint32(b)
	if header&reservedMask != 0 {
		return InstDescriptor{}, errors.Malformed(0, "reserved header bits 0x%08x set", header&reservedMask)
	}
	argc := int(header & maxInstArgs)
	want := headerSize + argc*ptrSize
	if len(b) < want {
		return InstDescriptor{}, errors.Truncated(len(b), want, len(b))
	}
	if len(b) > want {
		return InstDescriptor{}, errors.Malformed(want, "%d trailing bytes after %d argument slots", len(b)-want, argc)
	}
	d := InstDescriptor{IsOpen: header&isOpenBit != 0}
	if argc > 0 {
		d.Args = make([]monolens.Handle, argc)
	}
	off := headerSize
	for i := range d.Args {
		if ptrSize == 4 {
			d.Args[i] = monolens.Handle(binary.LittleEndian.Uint32(b[off:]))
		} else {
			d.Args[i] = monolens.Handle(binary.LittleEndian.Uint64(b[off:]))
		}
		off += ptrSize
	}
	return d, nil
}

func normalizePtrSize(ptrSize int) (int, error) {
	switch ptrSize {
	case 0:
		return 8, nil
	case 4, 8:
		return ptrSize, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseInstantiate,
			"pointer size %d, want 4 or 8", ptrSize)
	}
}
