//go:build !nogpu

package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/internal/asset"
	"github.com/gogpu/sprite/internal/gpu"
)

// Target supplies the color attachment of each frame.
type Target = gpu.Target

// Frame is an acquired target image.
type Frame = gpu.Frame

// FrameStats describes the GPU work issued for one frame.
type FrameStats = gpu.FrameStats

// Renderer draws batches of textured sprites.
//
// Renderer is safe for concurrent use, but frames are serialized: draws
// from several goroutines land in the same queue in call order.
type Renderer struct {
	mu     sync.Mutex
	opts   options
	closed bool

	device    *gpu.Device
	content   asset.Content
	textures  *gpu.TextureRegistry
	factory   *gpu.PipelineFactory
	batcher   *gpu.SpriteBatcher
	target    Target
	ownTarget bool

	projection mgl32.Mat4
	skipped    uint64
}

// InitRenderer is an alias for New.
func InitRenderer(opts ...Option) (*Renderer, error) {
	return New(opts...)
}

// New acquires a device and creates every resource needed to draw: the
// texture registry, the sprite pipeline, the instance buffers and the
// render target. If any step fails, everything created so far is released
// and the error is returned.
func New(opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		sprite.SetLogger(o.logger)
	}

	r := &Renderer{opts: o, content: asset.NewContent(o.contentDir)}
	if err := r.init(); err != nil {
		r.release()
		return nil, err
	}
	sprite.Logger().Info("sprite: renderer ready",
		"adapter", r.device.AdapterName,
		"capacity", r.batcher.Capacity(),
		"viewport", fmt.Sprintf("%dx%d", o.width, o.height),
		"format", r.target.Format())
	return r, nil
}

func (r *Renderer) init() error {
	o := &r.opts

	dev, err := openDevice(o)
	if err != nil {
		return err
	}
	r.device = dev

	r.textures = gpu.NewTextureRegistry(dev.Device, dev.Queue)
	r.textures.SetFenceTimeout(o.fenceTimeout)
	r.textures.SetMaxSize(o.maxTextureSize)

	r.factory = gpu.NewPipelineFactory(dev.Device, r.content)
	r.factory.UseSPIRV(o.spirv)
	if o.linearFilter {
		r.factory.SetFilter(gputypes.FilterModeLinear)
	}

	if err := r.initTarget(); err != nil {
		return err
	}

	r.batcher = gpu.NewSpriteBatcher(dev.Device, dev.Queue, r.textures, r.factory, gpu.BatcherConfig{
		MaxSprites:      o.maxSprites,
		SpriteWidth:     o.spriteW,
		SpriteHeight:    o.spriteH,
		ExtractRotation: o.extractRotation,
		ClearColor:      toGPUColor(o.clearColor),
		FenceTimeout:    o.fenceTimeout,
	})
	if err := r.batcher.Prepare(r.target.Format()); err != nil {
		return err
	}

	r.projection = projection(o)
	return nil
}

func openDevice(o *options) (*gpu.Device, error) {
	switch {
	case o.device != nil:
		if o.queue == nil {
			return nil, fmt.Errorf("%w: device without queue", sprite.ErrNoDevice)
		}
		return gpu.WrapDevice(o.device, o.queue), nil
	case o.provider != nil:
		return gpu.FromProvider(o.provider)
	default:
		return gpu.OpenBackend(o.backend)
	}
}

func (r *Renderer) initTarget() error {
	o := &r.opts
	switch {
	case o.target != nil:
		r.target = o.target
	case o.acquire != nil:
		format := gputypes.TextureFormatBGRA8Unorm
		if o.provider != nil {
			if f := o.provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
				format = f
			}
		}
		r.target = gpu.NewFuncTarget(format, o.acquire, o.present)
	default:
		t, err := gpu.NewOffscreenTarget(r.device.Device, r.device.Queue, o.width, o.height)
		if err != nil {
			return err
		}
		r.target = t
		r.ownTarget = true
	}
	return nil
}

func projection(o *options) mgl32.Mat4 {
	w, h := float32(o.width), float32(o.height)
	if o.projection == projectionPerspective {
		return mgl32.Perspective(mgl32.DegToRad(o.fovDegrees), w/h, o.near, o.far)
	}
	return mgl32.Ortho(0, w, h, 0, -1, 1)
}

func toGPUColor(c sprite.Color) gputypes.Color {
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

// Close waits for outstanding GPU work and releases every resource the
// renderer created. Safe to call more than once.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.release()
	sprite.Logger().Info("sprite: renderer closed")
	return nil
}

// ReleaseResources is an alias for Close.
func (r *Renderer) ReleaseResources() error {
	return r.Close()
}

// release destroys in reverse creation order. Fields may be nil after a
// failed init.
func (r *Renderer) release() {
	if r.batcher != nil {
		r.batcher.Destroy()
		r.batcher = nil
	}
	if r.target != nil && r.ownTarget {
		r.target.Destroy()
	}
	r.target = nil
	if r.textures != nil {
		r.textures.Destroy()
		r.textures = nil
	}
	r.device.Close()
	r.device = nil
}

// LoadAndRegisterTexture loads an image from the content Images directory
// and registers it. Absolute paths are used unchanged. On failure the
// handle is sprite.InvalidTexture and nothing is registered.
//
// Every sprite of a batch is drawn with the first registered texture.
func (r *Renderer) LoadAndRegisterTexture(file string) (sprite.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return sprite.InvalidTexture, sprite.ErrClosed
	}
	path := r.content.ImagePath(file)
	h, err := r.textures.Load(path)
	if err != nil {
		sprite.Logger().Warn("sprite: texture not registered", "path", path, "err", err)
		return sprite.InvalidTexture, err
	}
	sprite.Logger().Debug("sprite: texture registered", "path", path, "handle", h)
	return h, nil
}

// RegisterImage uploads an in-memory image as a texture.
func (r *Renderer) RegisterImage(label string, img image.Image) (sprite.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return sprite.InvalidTexture, sprite.ErrClosed
	}
	if img == nil || img.Bounds().Empty() {
		return sprite.InvalidTexture, fmt.Errorf("%w: empty image %q", sprite.ErrResourceLoad, label)
	}
	rgba := asset.ToRGBA(img)
	if label == "" {
		label = "image"
	}
	return r.textures.Register(filepath.Base(label), rgba)
}

// TextureCount returns the number of registered textures.
func (r *Renderer) TextureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0
	}
	return r.textures.Len()
}

// BeginFrame discards the draws of the previous frame.
func (r *Renderer) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.batcher.BeginFrame()
}

// DrawSprite queues s at transform t for the current frame.
//
// It fails with sprite.ErrInvalidHandle if s.Texture was never
// registered, and with sprite.ErrQueueOverflow once the frame holds as
// many draws as the renderer's capacity. A failed draw is not queued.
func (r *Renderer) DrawSprite(t sprite.Transform, s sprite.Sprite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return sprite.ErrClosed
	}
	if _, err := r.textures.Resolve(s.Texture); err != nil {
		return err
	}
	if err := r.batcher.Enqueue(s, t); err != nil {
		sprite.Logger().Warn("sprite: draw dropped", "frame", r.batcher.Frame(), "err", err)
		return err
	}
	return nil
}

// DrawFrame uploads the queued draws, renders them as one batch seen
// through cam, and presents the target.
//
// The upload is submitted before the render pass on the same queue. If
// no target image can be acquired within the acquire timeout the frame is
// skipped and the error wraps sprite.ErrFrameSkipped; the queued draws are
// kept, so calling DrawFrame again retries the frame. An acquired image is
// always presented, even when rendering into it failed.
func (r *Renderer) DrawFrame(ctx context.Context, cam *sprite.Camera) (FrameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return FrameStats{}, sprite.ErrClosed
	}

	viewProj := r.viewProjection(cam)

	receipt, err := r.batcher.UploadInstanceData()
	if err != nil {
		return FrameStats{}, fmt.Errorf("upload instances: %w", err)
	}

	actx, cancel := context.WithTimeout(ctx, r.opts.acquireTimeout)
	frame, err := r.target.Acquire(actx)
	cancel()
	if err != nil {
		r.skipped++
		sprite.Logger().Warn("sprite: frame skipped", "frame", r.batcher.Frame(), "err", err)
		return FrameStats{}, fmt.Errorf("%w: acquire target: %w", sprite.ErrFrameSkipped, err)
	}

	stats, err := r.batcher.Render(receipt, frame, r.target.Format(), viewProj)
	if err != nil {
		// Hand the acquired image back so a host swapchain does not run dry.
		if perr := r.target.Present(); perr != nil {
			sprite.Logger().Warn("sprite: present after failed render", "err", perr)
		}
		return FrameStats{}, fmt.Errorf("render frame: %w", err)
	}
	if err := r.target.Present(); err != nil {
		return stats, fmt.Errorf("present: %w", err)
	}
	sprite.Logger().Debug("sprite: frame presented", "stats", stats)
	return stats, nil
}

// EndFrame is an alias for DrawFrame.
func (r *Renderer) EndFrame(ctx context.Context, cam *sprite.Camera) (FrameStats, error) {
	return r.DrawFrame(ctx, cam)
}

// Projection returns the projection matrix.
func (r *Renderer) Projection() mgl32.Mat4 {
	return r.projection
}

// ViewProjection returns the projection times the view of cam, the
// matrix the vertex stage applies to every sprite.
func (r *Renderer) ViewProjection(cam *sprite.Camera) mgl32.Mat4 {
	return r.viewProjection(cam)
}

func (r *Renderer) viewProjection(cam *sprite.Camera) mgl32.Mat4 {
	if cam == nil {
		return r.projection
	}
	return r.projection.Mul4(cam.View())
}

// Stats returns the statistics of the last uploaded frame.
func (r *Renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return FrameStats{}
	}
	return r.batcher.Stats()
}

// SkippedFrames returns the number of frames dropped because no target
// image was available.
func (r *Renderer) SkippedFrames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}

// Capacity returns the maximum number of sprites per frame.
func (r *Renderer) Capacity() int {
	return r.opts.maxSprites
}

// Target returns the render target.
func (r *Renderer) Target() Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// ErrNoSnapshot is returned by Snapshot when the target cannot be read
// back.
var ErrNoSnapshot = errors.New("sprite: target does not support snapshots")

// Snapshot reads back the last rendered frame of the default offscreen
// target.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, sprite.ErrClosed
	}
	off, ok := r.target.(*gpu.OffscreenTarget)
	if !ok {
		return nil, ErrNoSnapshot
	}
	return off.ReadPixels()
}
