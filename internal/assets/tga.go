package assets

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image types.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

var errTGATruncated = errors.New("tga: data truncated")

// DecodeTGA decodes uncompressed and RLE true-color (24/32 bit) and
// grayscale (8 bit) TGA images.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, errTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("tga: color-mapped images not supported")
	}
	gray := imageType == tgaGray || imageType == tgaGrayRLE
	switch {
	case imageType != tgaTrueColor && imageType != tgaTrueColorRLE && !gray:
		return nil, fmt.Errorf("tga: unsupported image type %d", imageType)
	case gray && bpp != 8:
		return nil, fmt.Errorf("tga: unsupported grayscale depth %d", bpp)
	case !gray && bpp != 24 && bpp != 32:
		return nil, fmt.Errorf("tga: unsupported bit depth %d", bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}

	d := tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		src:         data[offset:],
		width:       width,
		height:      height,
		stride:      bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}
	var err error
	if imageType == tgaTrueColorRLE || imageType == tgaGrayRLE {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	img           *image.RGBA
	src           []byte
	pos           int
	width, height int
	stride        int
	topToBottom   bool
}

// next reads one pixel stored as BGR(A) or gray.
func (d *tgaDecoder) next() (color.RGBA, bool) {
	if d.pos+d.stride > len(d.src) {
		return color.RGBA{}, false
	}
	p := d.src[d.pos : d.pos+d.stride]
	d.pos += d.stride
	switch d.stride {
	case 1:
		return color.RGBA{R: p[0], G: p[0], B: p[0], A: 255}, true
	case 3:
		return color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}, true
	default:
		return color.RGBA{R: p[2], G: p[1], B: p[0], A: p[3]}, true
	}
}

// set writes pixel i in file order. Files are bottom-up unless the
// descriptor says otherwise.
func (d *tgaDecoder) set(i int, c color.RGBA) {
	x, y := i%d.width, i/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
}

func (d *tgaDecoder) decodeRaw() error {
	n := d.width * d.height
	for i := 0; i < n; i++ {
		c, ok := d.next()
		if !ok {
			return errTGATruncated
		}
		d.set(i, c)
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	n := d.width * d.height
	for i := 0; i < n; {
		if d.pos >= len(d.src) {
			return errTGATruncated
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			c, ok := d.next()
			if !ok {
				return errTGATruncated
			}
			for ; count > 0 && i < n; count-- {
				d.set(i, c)
				i++
			}
			continue
		}
		for ; count > 0 && i < n; count-- {
			c, ok := d.next()
			if !ok {
				return errTGATruncated
			}
			d.set(i, c)
			i++
		}
	}
	return nil
}
