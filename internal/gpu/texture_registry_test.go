//go:build !nogpu

package gpu

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/sprite"
)

func TestTextureRegistryHandlesIncrease(t *testing.T) {
	device, queue := newNoopDevice(t)
	reg := NewTextureRegistry(device, queue)
	defer reg.Destroy()

	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a.png", 4, 4),
		writePNG(t, dir, "b.png", 8, 2),
		writePNG(t, dir, "c.png", 1, 1),
	}
	for i, p := range paths {
		h, err := reg.Load(p)
		if err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
		if h != sprite.TextureHandle(i) {
			t.Errorf("expected handle %d, got %v", i, h)
		}
	}
	if reg.Len() != len(paths) {
		t.Errorf("expected %d textures, got %d", len(paths), reg.Len())
	}
}

func TestTextureRegistrySizeUsesHeight(t *testing.T) {
	device, queue := newNoopDevice(t)
	reg := NewTextureRegistry(device, queue)
	defer reg.Destroy()

	h, err := reg.Register("wide", solidRGBA(30, 10, color.RGBA{A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	w, ht, err := reg.Size(h)
	if err != nil {
		t.Fatal(err)
	}
	if w != 30 || ht != 10 {
		t.Errorf("expected 30x10, got %dx%d", w, ht)
	}
}

func TestTextureRegistryFailedLoadKeepsIndex(t *testing.T) {
	device, queue := newNoopDevice(t)
	reg := NewTextureRegistry(device, queue)
	defer reg.Destroy()

	dir := t.TempDir()
	good := writePNG(t, dir, "good.png", 2, 2)
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0o600); err != nil {
		t.Fatal(err)
	}

	h0, err := reg.Load(good)
	if err != nil || h0 != 0 {
		t.Fatalf("expected handle 0, got %v (%v)", h0, err)
	}

	h, err := reg.Load(bad)
	if !errors.Is(err, sprite.ErrResourceLoad) {
		t.Errorf("expected ErrResourceLoad, got %v", err)
	}
	if h != sprite.InvalidTexture {
		t.Errorf("expected InvalidTexture, got %v", h)
	}

	h, err = reg.Load(filepath.Join(dir, "missing.png"))
	if !errors.Is(err, sprite.ErrResourceLoad) || h != sprite.InvalidTexture {
		t.Errorf("expected ErrResourceLoad and InvalidTexture, got %v, %v", h, err)
	}

	h1, err := reg.Load(good)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != 1 {
		t.Errorf("expected handle 1 after failed loads, got %v", h1)
	}
}

func TestTextureRegistryDeviceFailures(t *testing.T) {
	device, queue := newNoopDevice(t)

	tests := []struct {
		name string
		dev  *failingDevice
	}{
		{"texture creation", &failingDevice{Device: device, failTexture: true}},
		{"staging buffer", &failingDevice{Device: device, failBufferLabel: "sprite_texture_staging"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewTextureRegistry(tt.dev, queue)
			defer reg.Destroy()

			h, err := reg.Register("x", solidRGBA(4, 4, color.RGBA{R: 255, A: 255}))
			if !errors.Is(err, sprite.ErrDeviceResource) {
				t.Fatalf("expected ErrDeviceResource, got %v", err)
			}
			if !errors.Is(err, errInjected) {
				t.Errorf("expected the cause to be wrapped, got %v", err)
			}
			if h != sprite.InvalidTexture {
				t.Errorf("expected InvalidTexture, got %v", h)
			}
			if reg.Len() != 0 {
				t.Errorf("failed registration consumed a slot: len %d", reg.Len())
			}
		})
	}
}

func TestTextureRegistryStagingWriteFailure(t *testing.T) {
	device, noopQueue := newNoopDevice(t)
	queue := &failingQueue{Queue: noopQueue, failWrite: true}
	reg := NewTextureRegistry(device, queue)
	defer reg.Destroy()

	h, err := reg.Register("x", solidRGBA(4, 4, color.RGBA{G: 255, A: 255}))
	if !errors.Is(err, sprite.ErrDeviceResource) || !errors.Is(err, errInjected) {
		t.Fatalf("expected ErrDeviceResource wrapping the write error, got %v", err)
	}
	if h != sprite.InvalidTexture || reg.Len() != 0 {
		t.Fatalf("failed upload registered a texture: handle %v, len %d", h, reg.Len())
	}
	if queue.writes != 1 {
		t.Errorf("expected 1 staging write, got %d", queue.writes)
	}

	queue.failWrite = false
	h, err = reg.Register("y", solidRGBA(4, 4, color.RGBA{G: 255, A: 255}))
	if err != nil || h != 0 {
		t.Errorf("Register after failure = %v, %v; want 0, nil", h, err)
	}
}

func TestTextureRegistryResolve(t *testing.T) {
	device, queue := newNoopDevice(t)
	reg := NewTextureRegistry(device, queue)
	defer reg.Destroy()

	if _, err := reg.Resolve(0); !errors.Is(err, sprite.ErrInvalidHandle) {
		t.Errorf("empty registry: expected ErrInvalidHandle, got %v", err)
	}
	h, err := reg.Register("t", solidRGBA(2, 2, color.RGBA{A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	if v, err := reg.Resolve(h); err != nil || v == nil {
		t.Errorf("Resolve(%v): view %v, err %v", h, v, err)
	}
	for _, bad := range []sprite.TextureHandle{sprite.InvalidTexture, 1, 100} {
		if _, err := reg.Resolve(bad); !errors.Is(err, sprite.ErrInvalidHandle) {
			t.Errorf("Resolve(%v): expected ErrInvalidHandle, got %v", bad, err)
		}
	}
}

func TestTextureRegistryScalesLargeImages(t *testing.T) {
	device, queue := newNoopDevice(t)
	reg := NewTextureRegistry(device, queue)
	reg.SetMaxSize(16)
	defer reg.Destroy()

	h, err := reg.Register("big", image.NewRGBA(image.Rect(0, 0, 64, 32)))
	if err != nil {
		t.Fatal(err)
	}
	w, ht, _ := reg.Size(h)
	if w != 16 || ht != 8 {
		t.Errorf("expected 16x8, got %dx%d", w, ht)
	}
}

func TestTextureRegistryDestroy(t *testing.T) {
	device, queue := newNoopDevice(t)
	reg := NewTextureRegistry(device, queue)
	if _, err := reg.Register("t", solidRGBA(2, 2, color.RGBA{A: 255})); err != nil {
		t.Fatal(err)
	}
	reg.Destroy()
	reg.Destroy()
	if reg.Len() != 0 {
		t.Errorf("expected empty registry after Destroy, got %d", reg.Len())
	}
}
