package gpu

import (
	"encoding/binary"
	"math"
)

// AppendFloat32s appends little-endian float32 values to dst.
func AppendFloat32s(dst []byte, vals ...float32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// AppendUint32s appends little-endian uint32 values to dst.
func AppendUint32s(dst []byte, vals ...uint32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}
