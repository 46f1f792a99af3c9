package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation lives in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30).Mul(Scale(2, 2, 2))
	got := m.TransformPoint(Vec3{1, 2, 3})
	want := Vec3{12, 24, 36}
	if got != want {
		t.Errorf("TransformPoint: got %v, want %v", got, want)
	}
}

func TestMulMatchesMathgl(t *testing.T) {
	a := Translate(1, 2, 3).Mul(RotateAxis(Vec3{0, 1, 0}, 0.7))
	b := Scale(2, -1, 0.5)

	ga := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3D(0.7, mgl32.Vec3{0, 1, 0}))
	gb := mgl32.Scale3D(2, -1, 0.5)

	assertMat(t, "a", a, ga)
	assertMat(t, "a*b", a.Mul(b), ga.Mul4(gb))
}

func TestLookAtMatchesMathgl(t *testing.T) {
	tests := []struct {
		name            string
		eye, center, up Vec3
	}{
		{"down -z", Vec3{0, 0, 5}, Vec3{0, 0, 0}, Vec3{0, 1, 0}},
		{"oblique", Vec3{10, 4, -3}, Vec3{-2, 1, 7}, Vec3{0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LookAt(tt.eye, tt.center, tt.up)
			want := mgl32.LookAtV(
				mgl32.Vec3{tt.eye.X, tt.eye.Y, tt.eye.Z},
				mgl32.Vec3{tt.center.X, tt.center.Y, tt.center.Z},
				mgl32.Vec3{tt.up.X, tt.up.Y, tt.up.Z},
			)
			assertMat(t, tt.name, got, want)
		})
	}
}

func TestPerspectiveFovDepthRange(t *testing.T) {
	near, far := float32(10), float32(100000)
	m := PerspectiveFov(float32(math.Pi/2), 16.0/9.0, near, far)

	if m[11] != -1 {
		t.Errorf("PerspectiveFov [11]: got %f, want -1", m[11])
	}
	if m[15] != 0 {
		t.Errorf("PerspectiveFov [15]: got %f, want 0", m[15])
	}

	tests := []struct {
		name  string
		z     float32
		depth float32
	}{
		{"near", -near, 0},
		{"far", -far, 1},
	}
	for _, tt := range tests {
		clip := m.MulVec4(Vec4{0, 0, tt.z, 1})
		if got := clip[2] / clip[3]; !ApproxEqual(got, tt.depth, 1e-4) {
			t.Errorf("%s depth: got %f, want %f", tt.name, got, tt.depth)
		}
	}
}

func TestRow(t *testing.T) {
	m := Translate(7, 8, 9)
	got := m.Row(0)
	want := Vec4{1, 0, 0, 7}
	if got != want {
		t.Errorf("Row(0): got %v, want %v", got, want)
	}
}

func assertMat(t *testing.T, name string, got Mat4, want mgl32.Mat4) {
	t.Helper()
	for i := 0; i < 16; i++ {
		if !ApproxEqual(got[i], want[i], 1e-4) {
			t.Errorf("%s element %d: got %f, want %f", name, i, got[i], want[i])
		}
	}
}
