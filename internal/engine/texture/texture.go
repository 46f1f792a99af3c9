// Package texture uploads material textures: decoded bitmaps at their own
// size, or 1x1 constant-colour fallbacks.
package texture

import (
	"errors"
	"image"
	"sync"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Faultbox/umapview/internal/assets"
	"github.com/Faultbox/umapview/internal/engine/gpu"
	"github.com/Faultbox/umapview/internal/logger"
	"github.com/Faultbox/umapview/pkg/math"
)

var errEmptyImage = errors.New("decoded image is empty")

// Color is a linear RGBA colour with components in [0, 1].
type Color = math.Vec4

// Texture is an uploaded 2D image. It is shared through the resource cache.
type Texture struct {
	Handle gpu.Texture
	Width  int
	Height int
	Format gpu.Format

	dev  gpu.Device
	once sync.Once
}

// Release frees the GPU image. Later calls do nothing.
func (t *Texture) Release() {
	t.once.Do(func() {
		t.dev.ReleaseTexture(t.Handle)
	})
}

// Binder turns bitmaps into textures. It does not cache; callers go through
// the resource cache.
type Binder struct {
	dev gpu.Device
	log *zap.Logger
}

// NewBinder creates a binder uploading to dev.
func NewBinder(dev gpu.Device) *Binder {
	return &Binder{dev: dev, log: logger.Named("texture")}
}

// Resolve uploads bitmap, or a 1x1 texture of fallback when bitmap is nil or
// cannot be decoded. Only GPU allocation failures are returned.
func (b *Binder) Resolve(bitmap assets.Bitmap, fallback Color) (*Texture, error) {
	if bitmap != nil {
		img, err := bitmap.Decode()
		if err == nil && img.Bounds().Empty() {
			err = errEmptyImage
		}
		if err == nil {
			return b.upload(ToRGBA(img), bitmap.SRGB())
		}
		b.log.Debug("bitmap decode failed, using fallback colour",
			zap.String("bitmap", bitmap.Identity()), zap.Error(err))
	}
	return b.Solid(fallback)
}

// Solid uploads a 1x1 linear texture of c.
func (b *Binder) Solid(c Color) (*Texture, error) {
	px := Quantize(c)
	return b.create(gpu.TextureDesc{Width: 1, Height: 1, Format: gpu.FormatRGBA8, MipLevels: 1}, px[:])
}

func (b *Binder) upload(img *image.RGBA, srgb bool) (*Texture, error) {
	format := gpu.FormatRGBA8
	if srgb {
		format = gpu.FormatRGBA8SRGB
	}
	return b.create(gpu.TextureDesc{Width: img.Rect.Dx(), Height: img.Rect.Dy(), Format: format, MipLevels: 1}, img.Pix)
}

func (b *Binder) create(desc gpu.TextureDesc, pixels []byte) (*Texture, error) {
	h, err := b.dev.CreateTexture(desc, pixels)
	if err != nil {
		return nil, err
	}
	return &Texture{Handle: h, Width: desc.Width, Height: desc.Height, Format: desc.Format, dev: b.dev}, nil
}

// Quantize converts c to 8-bit channels, rounding to nearest and clamping to
// [0, 255].
func Quantize(c Color) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		out[i] = uint8(math32.Round(math32.Max(0, math32.Min(1, v)) * 255))
	}
	return out
}

// ToRGBA returns img as tightly packed RGBA rows starting at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	return rgba
}
