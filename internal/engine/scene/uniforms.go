package scene

import (
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/engine/material"
	"github.com/Faultbox/umapview/pkg/math"
)

// encodeCamera lays out the camera block: projection, view, front (std140).
func encodeCamera(c cameraState) []byte {
	buf := make([]byte, 0, gpu.CameraUniformSize)
	buf = gpu.AppendFloat32s(buf, c.projection[:]...)
	buf = gpu.AppendFloat32s(buf, c.view[:]...)
	return gpu.AppendFloat32s(buf, c.front[:]...)
}

// encodeMasks lays out one vec4 channel mask per slot.
func encodeMasks(masks [material.SlotCount]math.Vec4) []byte {
	buf := make([]byte, 0, gpu.MasksUniformSize)
	for _, m := range masks {
		buf = gpu.AppendFloat32s(buf, m[:]...)
	}
	return buf
}
