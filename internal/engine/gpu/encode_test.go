package gpu

import (
	"bytes"
	"testing"
)

func TestAppendFloat32s(t *testing.T) {
	got := AppendFloat32s([]byte{0xff}, 1, -2)
	want := []byte{0xff, 0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xc0}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAppendUint32s(t *testing.T) {
	got := AppendUint32s(nil, 1, 0x01020304)
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestBufferKindString(t *testing.T) {
	tests := []struct {
		kind BufferKind
		want string
	}{
		{BufferVertex, "vertex"},
		{BufferIndex, "index"},
		{BufferInstance, "instance"},
		{BufferUniform, "uniform"},
		{BufferKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("BufferKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
