//go:build !nogpu

package gpu

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/internal/asset"
)

// DefaultMaxTextureSize caps texture dimensions; larger images are
// scaled down on load.
const DefaultMaxTextureSize = 8192

// textureEntry is one registered GPU image.
type textureEntry struct {
	label  string
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// TextureRegistry is an append-only table of GPU textures indexed by
// sprite.TextureHandle. Entries are never removed or reordered, so a
// handle stays valid until Destroy.
//
// Registration and lookup may happen on different goroutines.
type TextureRegistry struct {
	device hal.Device
	queue  hal.Queue

	fenceTimeout time.Duration
	maxSize      int

	mu      sync.RWMutex
	entries []textureEntry
}

// NewTextureRegistry creates an empty registry.
func NewTextureRegistry(device hal.Device, queue hal.Queue) *TextureRegistry {
	return &TextureRegistry{
		device:       device,
		queue:        queue,
		fenceTimeout: DefaultFenceTimeout,
		maxSize:      DefaultMaxTextureSize,
	}
}

// SetFenceTimeout bounds the wait for each upload.
func (r *TextureRegistry) SetFenceTimeout(d time.Duration) {
	if d > 0 {
		r.fenceTimeout = d
	}
}

// SetMaxSize sets the largest texture side accepted without scaling.
func (r *TextureRegistry) SetMaxSize(n int) {
	if n > 0 {
		r.maxSize = n
	}
}

// Load decodes the image file at path and registers it.
// On failure it returns sprite.InvalidTexture and registers nothing.
func (r *TextureRegistry) Load(path string) (sprite.TextureHandle, error) {
	img, err := asset.LoadImage(path)
	if err != nil {
		return sprite.InvalidTexture, err
	}
	return r.Register(path, img)
}

// Register uploads img and appends it to the registry.
// On failure it returns sprite.InvalidTexture and registers nothing.
func (r *TextureRegistry) Register(label string, img *image.RGBA) (sprite.TextureHandle, error) {
	img = asset.FitImage(img, r.maxSize)
	w := uint32(img.Bounds().Dx()) //nolint:gosec // bounded by maxSize
	h := uint32(img.Bounds().Dy()) //nolint:gosec // bounded by maxSize
	if w == 0 || h == 0 {
		return sprite.InvalidTexture, fmt.Errorf("%w: %s: empty image", sprite.ErrResourceLoad, label)
	}

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return sprite.InvalidTexture, fmt.Errorf("%w: create texture %s: %w", sprite.ErrDeviceResource, label, err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return sprite.InvalidTexture, fmt.Errorf("%w: create texture view %s: %w", sprite.ErrDeviceResource, label, err)
	}
	if err := r.upload(tex, img, w, h); err != nil {
		r.device.DestroyTextureView(view)
		r.device.DestroyTexture(tex)
		return sprite.InvalidTexture, fmt.Errorf("%w: upload %s: %w", sprite.ErrDeviceResource, label, err)
	}

	r.mu.Lock()
	r.entries = append(r.entries, textureEntry{label: label, tex: tex, view: view, width: w, height: h})
	handle := sprite.TextureHandle(len(r.entries) - 1) //nolint:gosec // registry size is far below int32
	r.mu.Unlock()

	slogger().Info("gpu: texture registered", "handle", int32(handle), "label", label, "width", w, "height", h)
	return handle, nil
}

// upload copies pixels into tex through a staging buffer and a copy pass,
// then waits for the copy so the staging buffer can be released.
func (r *TextureRegistry) upload(tex hal.Texture, img *image.RGBA, w, h uint32) error {
	pitch := alignedRowPitch(w)
	data := make([]byte, uint64(pitch)*uint64(h))
	rowBytes := int(w) * 4
	for y := 0; y < int(h); y++ {
		copy(data[y*int(pitch):y*int(pitch)+rowBytes], img.Pix[y*img.Stride:y*img.Stride+rowBytes])
	}

	staging, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_texture_staging",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.device.DestroyBuffer(staging)
	if err := r.queue.WriteBuffer(staging, 0, data); err != nil {
		return fmt.Errorf("write staging: %w", err)
	}

	s, err := beginSession(r.device, r.queue, "sprite_texture_upload")
	if err != nil {
		return err
	}
	s.encoder.CopyBufferToTexture(staging, tex, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	s.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopyDst,
			NewUsage: gputypes.TextureUsageTextureBinding,
		},
	}})
	sub, err := s.submit()
	if err != nil {
		return err
	}
	return sub.wait(r.fenceTimeout)
}

// Resolve returns the view of a registered texture.
func (r *TextureRegistry) Resolve(h sprite.TextureHandle) (hal.TextureView, error) {
	e, err := r.entry(h)
	if err != nil {
		return nil, err
	}
	return e.view, nil
}

// Size returns the pixel dimensions of a registered texture.
func (r *TextureRegistry) Size(h sprite.TextureHandle) (uint32, uint32, error) {
	e, err := r.entry(h)
	if err != nil {
		return 0, 0, err
	}
	return e.width, e.height, nil
}

func (r *TextureRegistry) entry(h sprite.TextureHandle) (textureEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !h.Valid() || int(h) >= len(r.entries) {
		return textureEntry{}, fmt.Errorf("%w: %v (registered %d)", sprite.ErrInvalidHandle, h, len(r.entries))
	}
	return r.entries[h], nil
}

// Len returns the number of registered textures. It equals the next
// handle to be issued.
func (r *TextureRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Destroy releases every texture. Handles issued earlier become invalid.
func (r *TextureRegistry) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		r.device.DestroyTextureView(e.view)
		r.device.DestroyTexture(e.tex)
	}
	r.entries = nil
}
