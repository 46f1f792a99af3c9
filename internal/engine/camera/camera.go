// Package camera provides the fly camera used to move through a scene.
package camera

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/pkg/math"
)

const (
	// MinFOV and MaxFOV bound zooming, in degrees.
	MinFOV = 25
	MaxFOV = 120

	// zoomRate is the FOV change per second of held zoom, in degrees.
	zoomRate = 30
	// lookRate converts mouse pixels to radians before MouseSpeed.
	lookRate = 0.01

	maxPitch = 89 * math32.Pi / 180
)

// Config holds the camera settings. FOV is in degrees, speeds in units per
// second.
type Config struct {
	FOV        float32
	Near       float32
	Far        float32
	FlySpeed   float32
	BoostSpeed float32
	MouseSpeed float32
}

// Controls is one frame of camera input. Axis values are in -1..1.
type Controls struct {
	Forward float32
	Right   float32
	Up      float32
	Boost   bool

	// LookX and LookY are mouse movement in pixels.
	LookX, LookY float32

	// Zoom narrows the field of view when positive.
	Zoom float32
}

// FlyCamera is a free-flying camera in render space (Y up).
type FlyCamera struct {
	Position math.Vec3
	Yaw      float32 // radians, 0 looks along +X
	Pitch    float32 // radians, positive looks up
	FOV      float32 // degrees
	Aspect   float32

	cfg Config
}

// New creates a camera at the origin looking along -Z.
func New(cfg Config, aspect float32) *FlyCamera {
	return &FlyCamera{
		Yaw:    -math32.Pi / 2,
		FOV:    clampFOV(cfg.FOV),
		Aspect: aspect,
		cfg:    cfg,
	}
}

// Place moves the camera to an asset-space pose.
func (c *FlyCamera) Place(start assets.CameraStart) {
	c.Position = start.Position.SwapYZ()
	c.Yaw = start.Yaw * math32.Pi / 180
	c.Pitch = clampPitch(start.Pitch * math32.Pi / 180)
}

// Resize updates the aspect ratio.
func (c *FlyCamera) Resize(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// Update applies one frame of input.
func (c *FlyCamera) Update(dt time.Duration, in Controls) {
	c.Yaw += in.LookX * lookRate * c.cfg.MouseSpeed
	c.Pitch = clampPitch(c.Pitch - in.LookY*lookRate*c.cfg.MouseSpeed)

	speed := c.cfg.FlySpeed
	if in.Boost {
		speed = c.cfg.BoostSpeed
	}
	step := speed * float32(dt.Seconds())

	front := c.Front()
	right := c.Right()
	move := front.Scale(in.Forward).
		Add(right.Scale(in.Right)).
		Add(math.Vec3{Y: in.Up})
	c.Position = c.Position.Add(move.Scale(step))

	if in.Zoom != 0 {
		c.FOV = clampFOV(c.FOV - in.Zoom*zoomRate*float32(dt.Seconds()))
	}
}

// Front returns the unit view direction.
func (c *FlyCamera) Front() math.Vec3 {
	cp := math32.Cos(c.Pitch)
	return math.Vec3{
		X: cp * math32.Cos(c.Yaw),
		Y: math32.Sin(c.Pitch),
		Z: cp * math32.Sin(c.Yaw),
	}
}

// Right returns the unit direction to the right of the view, on the
// horizontal plane.
func (c *FlyCamera) Right() math.Vec3 {
	return c.Front().Cross(math.Vec3{Y: 1}).Normalize()
}

// ViewMatrix returns the world-to-view matrix.
func (c *FlyCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Position.Add(c.Front()), math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection.
func (c *FlyCamera) ProjectionMatrix() math.Mat4 {
	return math.PerspectiveFov(c.FOV*math32.Pi/180, c.Aspect, c.cfg.Near, c.cfg.Far)
}

// Uniform returns projection, view and front direction in the form the
// scene renderer takes them.
func (c *FlyCamera) Uniform() (projection, view math.Mat4, front math.Vec4) {
	return c.ProjectionMatrix(), c.ViewMatrix(), c.Front().Vec4(0)
}

func clampPitch(p float32) float32 {
	return math32.Max(-maxPitch, math32.Min(maxPitch, p))
}

func clampFOV(fov float32) float32 {
	return math32.Max(MinFOV, math32.Min(MaxFOV, fov))
}
