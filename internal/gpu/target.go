//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite"
)

// Frame is an acquired render target image for one frame.
type Frame struct {
	View   hal.TextureView
	Width  uint32
	Height uint32
}

// Target supplies the color attachment of each frame.
type Target interface {
	// Format is the color format pipelines must be built for.
	Format() gputypes.TextureFormat

	// Acquire returns the image to render into. It may block until an
	// image is available and must give up when ctx is done.
	Acquire(ctx context.Context) (Frame, error)

	// Present hands the rendered image back for display.
	Present() error

	// Destroy releases resources owned by the target.
	Destroy()
}

// ErrTargetDestroyed is returned by Acquire after Destroy.
var ErrTargetDestroyed = errors.New("gpu: target destroyed")

// copyPitchAlignment is the required BytesPerRow alignment of buffer
// texture copies.
const copyPitchAlignment = 256

func alignedRowPitch(width uint32) uint32 {
	return (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// OffscreenTarget renders into a texture owned by the target. It stands
// in for a swapchain in headless runs and tests.
type OffscreenTarget struct {
	device hal.Device
	queue  hal.Queue

	width, height uint32
	timeout       time.Duration

	tex  hal.Texture
	view hal.TextureView
}

// NewOffscreenTarget creates a width x height RGBA8 render texture.
func NewOffscreenTarget(device hal.Device, queue hal.Queue, width, height uint32) (*OffscreenTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: offscreen target %dx%d", sprite.ErrDeviceResource, width, height)
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "sprite_offscreen",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create offscreen texture: %w", sprite.ErrDeviceResource, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "sprite_offscreen_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: create offscreen view: %w", sprite.ErrDeviceResource, err)
	}
	slogger().Debug("gpu: offscreen target created", "width", width, "height", height)
	return &OffscreenTarget{
		device:  device,
		queue:   queue,
		width:   width,
		height:  height,
		timeout: DefaultFenceTimeout,
		tex:     tex,
		view:    view,
	}, nil
}

// Format implements Target.
func (t *OffscreenTarget) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Size returns the target dimensions.
func (t *OffscreenTarget) Size() (uint32, uint32) { return t.width, t.height }

// Acquire implements Target. It never blocks.
func (t *OffscreenTarget) Acquire(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if t.view == nil {
		return Frame{}, ErrTargetDestroyed
	}
	return Frame{View: t.view, Width: t.width, Height: t.height}, nil
}

// Present implements Target. Offscreen frames stay in the texture.
func (t *OffscreenTarget) Present() error { return nil }

// ReadPixels copies the last rendered frame back to the CPU.
func (t *OffscreenTarget) ReadPixels() (*image.RGBA, error) {
	if t.tex == nil {
		return nil, ErrTargetDestroyed
	}
	w, h := t.width, t.height
	bytesPerRow := w * 4
	pitch := alignedRowPitch(w)
	size := uint64(pitch) * uint64(h)

	readBuf, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create readback buffer: %w", sprite.ErrDeviceResource, err)
	}
	defer t.device.DestroyBuffer(readBuf)

	s, err := beginSession(t.device, t.queue, "sprite_readback")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}
	s.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	s.encoder.CopyTextureToBuffer(t.tex, readBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	s.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	sub, err := s.submit()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}
	if err := sub.wait(t.timeout); err != nil {
		return nil, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}

	raw := make([]byte, size)
	if err := t.queue.ReadBuffer(readBuf, 0, raw); err != nil {
		return nil, fmt.Errorf("%w: readback: %w", sprite.ErrDeviceResource, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := uint32(0); row < h; row++ {
		src := raw[row*pitch : row*pitch+bytesPerRow]
		copy(img.Pix[int(row)*img.Stride:], src)
	}
	return img, nil
}

// Destroy implements Target. Safe to call more than once.
func (t *OffscreenTarget) Destroy() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// FuncTarget adapts host-owned surfaces, such as a window swapchain
// managed by the application, to Target.
type FuncTarget struct {
	format  gputypes.TextureFormat
	acquire func(ctx context.Context) (Frame, error)
	present func() error
}

// NewFuncTarget returns a Target that calls acquire and present.
// A nil present is treated as a no-op.
func NewFuncTarget(format gputypes.TextureFormat, acquire func(ctx context.Context) (Frame, error), present func() error) *FuncTarget {
	return &FuncTarget{format: format, acquire: acquire, present: present}
}

// Format implements Target.
func (t *FuncTarget) Format() gputypes.TextureFormat { return t.format }

// Acquire implements Target.
func (t *FuncTarget) Acquire(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if t.acquire == nil {
		return Frame{}, ErrTargetDestroyed
	}
	return t.acquire(ctx)
}

// Present implements Target.
func (t *FuncTarget) Present() error {
	if t.present == nil {
		return nil
	}
	return t.present()
}

// Destroy implements Target. The surface belongs to the host.
func (t *FuncTarget) Destroy() {
	t.acquire = nil
	t.present = nil
}
