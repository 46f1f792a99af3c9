package assets

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Bitmap is a texture's source image.
type Bitmap interface {
	// Identity is a stable key for the image data.
	Identity() string
	// SRGB reports whether the pixels are sRGB encoded.
	SRGB() bool
	Decode() (image.Image, error)
}

// FileBitmap decodes an image file read through a Manager.
type FileBitmap struct {
	Files  *Manager
	Path   string
	IsSRGB bool
}

func (b *FileBitmap) Identity() string { return b.Path }

func (b *FileBitmap) SRGB() bool { return b.IsSRGB }

// Decode reads and decodes the file. TGA is picked by extension since the
// format has no signature; everything else goes through image.Decode.
func (b *FileBitmap) Decode() (image.Image, error) {
	data, err := b.Files.Load(b.Path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(path.Ext(b.Path), ".tga") {
		img, err := DecodeTGA(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", b.Path, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", b.Path, err)
	}
	return img, nil
}

// ImageBitmap wraps an already decoded image. Err, when set, is returned by
// Decode instead of the image.
type ImageBitmap struct {
	ID     string
	Image  image.Image
	IsSRGB bool
	Err    error
}

func (b *ImageBitmap) Identity() string { return b.ID }

func (b *ImageBitmap) SRGB() bool { return b.IsSRGB }

func (b *ImageBitmap) Decode() (image.Image, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Image == nil {
		return nil, fmt.Errorf("bitmap %s has no image", b.ID)
	}
	return b.Image, nil
}
