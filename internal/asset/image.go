package asset

import (
	"fmt"
	"image"
	"io"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/sprite"
)

// LoadImage opens and decodes an image file into tightly packed RGBA8.
// Any failure is reported as sprite.ErrResourceLoad.
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sprite.ErrResourceLoad, err)
	}
	defer f.Close()

	img, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// DecodeImage decodes any registered format into RGBA8 with origin (0, 0).
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", sprite.ErrResourceLoad, err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s image is empty", sprite.ErrResourceLoad, format)
	}
	return ToRGBA(src), nil
}

// ToRGBA returns src as tightly packed RGBA8 with origin (0, 0), copying
// only when src is not already in that form.
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

// FitImage scales img down, preserving aspect, so neither side exceeds
// maxSize. Images that already fit are returned unchanged.
func FitImage(img *image.RGBA, maxSize int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	nw, nh := maxSize, maxSize
	if w > h {
		nh = max(1, h*maxSize/w)
	} else {
		nw = max(1, w*maxSize/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
