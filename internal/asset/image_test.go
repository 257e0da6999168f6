package asset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/gogpu/sprite"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestDecodeImagePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, checker(5, 3)); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 5, 3) {
		t.Errorf("expected 5x3, got %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("expected red at (0,0), got %v", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("expected blue at (1,0), got %v", got)
	}
	if img.Stride != 5*4 {
		t.Errorf("expected tight stride 20, got %d", img.Stride)
	}
}

func TestDecodeImageBMP(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, checker(4, 4)); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("expected 4x4, got %v", img.Bounds())
	}
}

func TestDecodeImageGarbage(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, sprite.ErrResourceLoad) {
		t.Errorf("expected ErrResourceLoad, got %v", err)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, checker(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadImage(path); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if _, err := LoadImage(filepath.Join(dir, "missing.png")); !errors.Is(err, sprite.ErrResourceLoad) {
		t.Errorf("expected ErrResourceLoad for missing file, got %v", err)
	}
}

func TestFitImage(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{10, 10, 16, 10, 10},
		{64, 32, 16, 16, 8},
		{32, 64, 16, 8, 16},
		{100, 1, 10, 10, 1},
		{8, 8, 0, 8, 8},
	}
	for _, tt := range tests {
		img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
		got := FitImage(img, tt.max).Bounds()
		if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
			t.Errorf("%dx%d max %d: expected %dx%d, got %dx%d",
				tt.w, tt.h, tt.max, tt.wantW, tt.wantH, got.Dx(), got.Dy())
		}
	}
}
