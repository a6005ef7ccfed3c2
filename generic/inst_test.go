package generic

import (
	"bytes"
	"reflect"
	"testing"

	monolens "github.com/monolens/monolens"
	"github.com/monolens/monolens/errors"
)

func TestPackHeader(t *testing.T) {
	tests := []struct {
		name string
		desc InstDescriptor
		want uint32
	}{
		{"empty closed", InstDescriptor{}, 0},
		{"two args closed", InstDescriptor{Args: make([]monolens.Handle, 2)}, 2},
		{"two args open", InstDescriptor{Args: make([]monolens.Handle, 2), IsOpen: true}, 1<<22 | 2},
		{"open only", InstDescriptor{IsOpen: true}, 1 << 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.PackHeader(); got != tt.want {
				t.Errorf("PackHeader() = 0x%08x, want 0x%08x", got, tt.want)
			}
		})
	}
}

func TestInstDescriptorEncodeLayout(t *testing.T) {
	desc := InstDescriptor{Args: []monolens.Handle{0x11223344}, IsOpen: true}

	got, err := desc.Encode(4)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := []byte{
		0x01, 0x00, 0x40, 0x00, // header: argc 1, open flag at bit 22
		0x44, 0x33, 0x22, 0x11, // one 4-byte little-endian slot
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestInstDescriptorRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		desc    InstDescriptor
		ptrSize int
	}{
		{"eight byte slots", InstDescriptor{Args: []monolens.Handle{0x1000, 0x2_0000_0000}}, 8},
		{"four byte slots", InstDescriptor{Args: []monolens.Handle{0x1000, 0x2000}, IsOpen: true}, 4},
		{"default pointer size", InstDescriptor{Args: []monolens.Handle{0x42}}, 0},
		{"no args", InstDescriptor{}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.desc.Encode(tt.ptrSize)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, err := DecodeInstDescriptor(encoded, tt.ptrSize)
			if err != nil {
				t.Fatalf("DecodeInstDescriptor() error = %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.desc) {
				t.Errorf("round trip = %+v, want %+v", decoded, tt.desc)
			}
		})
	}
}

func TestInstDescriptorEncodeRejectsOversizedHandle(t *testing.T) {
	desc := InstDescriptor{Args: []monolens.Handle{1 << 32}}

	if _, err := desc.Encode(4); err == nil {
		t.Error("Encode(4) expected error for a handle beyond 32 bits")
	}
	if _, err := desc.Encode(8); err != nil {
		t.Errorf("Encode(8) error = %v", err)
	}
}

func TestInstDescriptorEncodeRejectsBadPointerSize(t *testing.T) {
	desc := InstDescriptor{Args: []monolens.Handle{1}}

	if _, err := desc.Encode(3); err == nil {
		t.Error("Encode(3) expected error")
	}
}

func TestInstDescriptorEncodeRejectsTooManyArgs(t *testing.T) {
	desc := InstDescriptor{Args: make([]monolens.Handle, maxInstArgs+1)}

	if _, err := desc.Encode(8); err == nil {
		t.Error("Encode() expected error beyond the 22-bit argument count")
	}
}

func TestDecodeInstDescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{0x01, 0x00}},
		{"reserved bits set", []byte{0x00, 0x00, 0x80, 0x00}},
		{"missing slots", []byte{0x02, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}},
		{"trailing bytes", []byte{0x00, 0x00, 0x00, 0x00, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInstDescriptor(tt.data, 8)
			if !errors.IsMalformed(err) {
				t.Errorf("DecodeInstDescriptor() error = %v, want malformed", err)
			}
		})
	}
}
