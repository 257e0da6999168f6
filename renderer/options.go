//go:build !nogpu

package renderer

import (
	"context"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/internal/asset"
	"github.com/gogpu/sprite/internal/gpu"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := renderer.New(
//	    renderer.WithViewport(1280, 720),
//	    renderer.WithMaxSprites(4096),
//	)
type Option func(*options)

type projectionKind int

const (
	projectionOrtho projectionKind = iota
	projectionPerspective
)

// options holds Renderer configuration.
type options struct {
	maxSprites      int
	spriteW         float32
	spriteH         float32
	contentDir      string
	width, height   uint32
	projection      projectionKind
	fovDegrees      float32
	near, far       float32
	clearColor      sprite.Color
	fenceTimeout    time.Duration
	acquireTimeout  time.Duration
	extractRotation bool
	spirv           bool
	linearFilter    bool
	maxTextureSize  int

	backend  gputypes.Backend
	device   hal.Device
	queue    hal.Queue
	provider gpucontext.DeviceProvider

	target  gpu.Target
	acquire func(ctx context.Context) (gpu.Frame, error)
	present func() error

	logger *slog.Logger
}

// defaultOptions returns the default renderer options: an 800x600
// orthographic viewport, 1024 sprites, nearest filtering, and a headless
// Vulkan device.
func defaultOptions() options {
	return options{
		maxSprites:     gpu.DefaultMaxSprites,
		spriteW:        gpu.DefaultSpriteWidth,
		spriteH:        gpu.DefaultSpriteHeight,
		contentDir:     asset.DefaultRoot,
		width:          800,
		height:         600,
		projection:     projectionOrtho,
		fovDegrees:     90,
		near:           0.1,
		far:            1000,
		clearColor:     sprite.Color{A: 1},
		fenceTimeout:   gpu.DefaultFenceTimeout,
		acquireTimeout: gpu.DefaultFenceTimeout,
		maxTextureSize: gpu.DefaultMaxTextureSize,
		backend:        gputypes.BackendVulkan,
	}
}

// WithMaxSprites sets the draw queue capacity per frame.
func WithMaxSprites(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSprites = n
		}
	}
}

// WithSpriteSize sets the unscaled quad size in world units.
// Every sprite uses it regardless of its texture size.
func WithSpriteSize(w, h float32) Option {
	return func(o *options) {
		if w > 0 && h > 0 {
			o.spriteW, o.spriteH = w, h
		}
	}
}

// WithContentDir sets the directory holding Shaders/ and Images/.
func WithContentDir(dir string) Option {
	return func(o *options) {
		o.contentDir = dir
	}
}

// WithViewport sets the projection size and the size of the default
// offscreen target.
func WithViewport(width, height uint32) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithOrthographic selects a pixel-space orthographic projection with the
// origin in the top-left corner. This is the default.
func WithOrthographic() Option {
	return func(o *options) {
		o.projection = projectionOrtho
	}
}

// WithPerspective selects a perspective projection with the given
// vertical field of view in degrees.
//
// The camera looks down -Z from its position, so sprites are only visible
// at a z between camera z - near and camera z - far. With the default
// camera at the origin that means a negative z such as
// sprite.NewTransform(x, y, -100); sprites at z = 0 lie on the camera
// plane and are clipped.
func WithPerspective(fovDegrees, near, far float32) Option {
	return func(o *options) {
		o.projection = projectionPerspective
		o.fovDegrees = fovDegrees
		o.near = near
		o.far = far
	}
}

// WithClearColor sets the color each frame starts from.
func WithClearColor(c sprite.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithFenceTimeout bounds every wait for GPU work.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithAcquireTimeout bounds the wait for a target image in DrawFrame.
// A frame whose target cannot be acquired in time is skipped.
func WithAcquireTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.acquireTimeout = d
		}
	}
}

// WithRotationExtraction draws sprites rotated by the planar angle of
// their transform. Without it every sprite is drawn unrotated.
func WithRotationExtraction(on bool) Option {
	return func(o *options) {
		o.extractRotation = on
	}
}

// WithSPIRVShaders compiles shaders to SPIR-V with naga instead of passing
// WGSL to the backend.
func WithSPIRVShaders(on bool) Option {
	return func(o *options) {
		o.spirv = on
	}
}

// WithLinearFilter samples textures with linear filtering instead of
// nearest.
func WithLinearFilter(on bool) Option {
	return func(o *options) {
		o.linearFilter = on
	}
}

// WithMaxTextureSize scales down images larger than n on either side.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTextureSize = n
		}
	}
}

// WithBackend selects the backend used when the renderer opens its own
// device. The backend package must be linked in.
func WithBackend(b gputypes.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithDevice renders on an existing device. The renderer does not
// destroy it.
func WithDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
	}
}

// WithDeviceProvider renders on the device of a host application. The
// provider must also expose HalDevice() and HalQueue(). Its surface
// format is used for targets set with WithSurface.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithTarget renders into t instead of an offscreen texture.
// The renderer does not destroy it.
func WithTarget(t Target) Option {
	return func(o *options) {
		o.target = t
	}
}

// WithSurface renders into images supplied by acquire and hands them
// back with present, for example a window swapchain owned by the host.
func WithSurface(acquire func(ctx context.Context) (Frame, error), present func() error) Option {
	return func(o *options) {
		o.acquire = acquire
		o.present = present
	}
}

// WithLogger sets the logger for sprite and all its sub-packages.
// See sprite.SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
