//go:build linux

package wire

import (
	"bytes"
	"testing"
)

func TestFixedConversion(t *testing.T) {
	tests := []struct {
		name  string
		float float64
	}{
		{"zero", 0.0},
		{"positive integer", 42.0},
		{"negative integer", -42.0},
		{"positive fraction", 3.5},
		{"negative fraction", -3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FixedFromFloat(tt.float).Float()
			const epsilon = 0.004
			if diff := got - tt.float; diff < -epsilon || diff > epsilon {
				t.Errorf("FixedFromFloat(%v).Float() = %v, want %v", tt.float, got, tt.float)
			}
		})
	}
}

func TestFixedFromInt(t *testing.T) {
	for _, v := range []int32{0, 42, -42, 8388607, -8388608} {
		if got := FixedFromInt(v).Int(); got != v {
			t.Errorf("FixedFromInt(%d).Int() = %d, want %d", v, got, v)
		}
	}
}

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	builder := NewMessageBuilder()
	builder.PutUint32(7).PutString("wl_compositor").PutUint32(4)
	msg := builder.BuildMessage(1, Opcode(0))

	encoded, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}

	decoder := NewDecoder(encoded)
	decoded, err := decoder.DecodeMessage()
	if err != nil {
		t.Fatalf("DecodeMessage() error = %v", err)
	}
	if decoded.ObjectID != 1 || decoded.Opcode != 0 {
		t.Errorf("decoded header = (%d, %d), want (1, 0)", decoded.ObjectID, decoded.Opcode)
	}

	argDecoder := NewDecoder(decoded.Args)
	name, _ := argDecoder.Uint32()
	iface, _ := argDecoder.String()
	version, _ := argDecoder.Uint32()
	if name != 7 || iface != "wl_compositor" || version != 4 {
		t.Errorf("decoded args = (%d, %q, %d), want (7, wl_compositor, 4)", name, iface, version)
	}
}

func TestStringPaddingIs4ByteAligned(t *testing.T) {
	enc := NewEncoder(32)
	enc.PutString("ab") // length 3 (incl. NUL) -> 1 byte pad to reach 4-byte boundary
	// 4 (len) + 3 (data+NUL) + 1 (pad) = 8
	if len(enc.Bytes()) != 8 {
		t.Errorf("encoded length = %d, want 8", len(enc.Bytes()))
	}
}

func TestDecoderUnexpectedEOF(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	if _, err := d.Uint32(); err != ErrUnexpectedEOF {
		t.Errorf("Uint32() on short buffer error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestMessageTooLargeRejected(t *testing.T) {
	enc := NewEncoder(0)
	_, err := enc.EncodeMessage(1, 0, make([]byte, maxMessageSize))
	if err != ErrMessageTooLarge {
		t.Errorf("EncodeMessage() error = %v, want ErrMessageTooLarge", err)
	}
}

func TestPutArrayRoundTrip(t *testing.T) {
	enc := NewEncoder(32)
	enc.PutArray([]byte{1, 2, 3})
	dec := NewDecoder(enc.Bytes())
	data, err := dec.Array()
	if err != nil {
		t.Fatalf("Array() error = %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("Array() = %v, want [1 2 3]", data)
	}
}
