//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite"
)

// BatcherConfig holds SpriteBatcher settings.
type BatcherConfig struct {
	// MaxSprites is the draw queue capacity and sizes the instance buffers.
	MaxSprites int

	// SpriteWidth and SpriteHeight are the unscaled quad size.
	SpriteWidth, SpriteHeight float32

	// ExtractRotation fills the instance rotation from each transform.
	// When false every sprite is drawn unrotated.
	ExtractRotation bool

	// ClearColor is loaded into the target at the start of each frame.
	ClearColor gputypes.Color

	// FenceTimeout bounds each wait on a GPU submission.
	FenceTimeout time.Duration
}

// DefaultBatcherConfig returns the default configuration.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		MaxSprites:   DefaultMaxSprites,
		SpriteWidth:  DefaultSpriteWidth,
		SpriteHeight: DefaultSpriteHeight,
		ClearColor:   gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		FenceTimeout: DefaultFenceTimeout,
	}
}

// frameState tracks where the batcher is in the per-frame sequence
// Idle → Accumulating → Uploaded → Rendered.
type frameState int

const (
	stateIdle frameState = iota
	stateAccumulating
	stateUploaded
	stateRendered
)

func (s frameState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAccumulating:
		return "accumulating"
	case stateUploaded:
		return "uploaded"
	case stateRendered:
		return "rendered"
	default:
		return fmt.Sprintf("frameState(%d)", int(s))
	}
}

// UploadReceipt proves that the instance data of the current queue was
// submitted to the GPU. Render consumes it, so a frame cannot be
// rendered from stale or missing instance data.
type UploadReceipt struct {
	seq       uint64
	instances int
	bytes     uint64
}

// Instances returns the number of uploaded instances.
func (r *UploadReceipt) Instances() int { return r.instances }

// Bytes returns the size of the staging to storage copy.
func (r *UploadReceipt) Bytes() uint64 { return r.bytes }

// SpriteBatcher turns a frame's queued draws into one instance upload and
// one draw call.
//
// The staging buffer is CPU-writable and only used as a copy source. The
// storage buffer is GPU-only and read by the vertex stage. Before staging
// is rewritten the previous upload's fence is waited on, so a copy still
// in flight is never overwritten.
//
// SpriteBatcher is not safe for concurrent use.
type SpriteBatcher struct {
	device hal.Device
	queue  hal.Queue
	cfg    BatcherConfig

	draws    *DrawQueue
	arena    []byte
	textures *TextureRegistry
	factory  *PipelineFactory

	// Lazily created, reused across frames.
	staging  hal.Buffer
	storage  hal.Buffer
	uniform  hal.Buffer
	pipeline *SpritePipeline

	// bindGroup references texture 0, which never changes once registered.
	bindGroup hal.BindGroup

	pendingUpload *submission

	state     frameState
	frame     uint64
	uploadSeq uint64
	consumed  uint64
	stats     FrameStats
}

// NewSpriteBatcher creates a batcher. GPU buffers and the pipeline are
// created on first use.
func NewSpriteBatcher(device hal.Device, queue hal.Queue, textures *TextureRegistry, factory *PipelineFactory, cfg BatcherConfig) *SpriteBatcher {
	def := DefaultBatcherConfig()
	if cfg.MaxSprites <= 0 {
		cfg.MaxSprites = def.MaxSprites
	}
	if cfg.SpriteWidth <= 0 {
		cfg.SpriteWidth = def.SpriteWidth
	}
	if cfg.SpriteHeight <= 0 {
		cfg.SpriteHeight = def.SpriteHeight
	}
	if cfg.FenceTimeout <= 0 {
		cfg.FenceTimeout = def.FenceTimeout
	}
	return &SpriteBatcher{
		device:   device,
		queue:    queue,
		cfg:      cfg,
		draws:    NewDrawQueue(cfg.MaxSprites),
		arena:    make([]byte, cfg.MaxSprites*InstanceSize),
		textures: textures,
		factory:  factory,
	}
}

// Capacity returns the maximum number of draws per frame.
func (b *SpriteBatcher) Capacity() int { return b.draws.Cap() }

// Len returns the number of draws queued since the last BeginFrame.
func (b *SpriteBatcher) Len() int { return b.draws.Len() }

// Frame returns the number of BeginFrame calls so far.
func (b *SpriteBatcher) Frame() uint64 { return b.frame }

// Stats returns the statistics of the last rendered frame.
func (b *SpriteBatcher) Stats() FrameStats { return b.stats }

// BeginFrame empties the draw queue and starts a new frame.
func (b *SpriteBatcher) BeginFrame() {
	b.draws.Reset()
	b.frame++
	b.state = stateAccumulating
}

// Enqueue appends a draw. When the queue is full it fails with
// sprite.ErrQueueOverflow and the queue is unchanged.
//
// Enqueue without a preceding BeginFrame keeps appending to the queue as
// it was after the last reset. Any upload made before this call is
// invalidated.
func (b *SpriteBatcher) Enqueue(s sprite.Sprite, t sprite.Transform) error {
	if err := b.draws.Push(s, t); err != nil {
		return err
	}
	b.state = stateAccumulating
	return nil
}

// InstanceBytes returns the CPU copy of the instance data written by the
// last UploadInstanceData.
func (b *SpriteBatcher) InstanceBytes() []byte {
	return b.arena[:int(b.stats.UploadedBytes)]
}

// UploadInstanceData packs the queued draws and copies them from the
// staging buffer to the storage buffer in one copy pass and submission.
// Only Len()*InstanceSize bytes are copied.
func (b *SpriteBatcher) UploadInstanceData() (*UploadReceipt, error) {
	if err := b.ensureBuffers(); err != nil {
		return nil, err
	}
	// Staging may still be the source of the previous copy.
	if err := b.retireUpload(); err != nil {
		return nil, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}

	count := b.draws.Len()
	n := PackInstances(b.arena, b.draws.Draws(), InstanceParams{
		Width:           b.cfg.SpriteWidth,
		Height:          b.cfg.SpriteHeight,
		ExtractRotation: b.cfg.ExtractRotation,
	})

	var sub *submission
	if n > 0 {
		if err := b.queue.WriteBuffer(b.staging, 0, b.arena[:n]); err != nil {
			return nil, fmt.Errorf("%w: write instance staging: %w", sprite.ErrDeviceResource, err)
		}
		s, err := beginSession(b.device, b.queue, "sprite_upload")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
		}
		s.encoder.CopyBufferToBuffer(b.staging, b.storage, []hal.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      uint64(n),
		}})
		sub, err = s.submit()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
		}
	}

	// A receipt exists only for data that reached the queue.
	b.uploadSeq++
	b.stats = FrameStats{
		Frame:         b.frame,
		Instances:     count,
		UploadedBytes: uint64(n),
	}
	receipt := &UploadReceipt{seq: b.uploadSeq, instances: count, bytes: uint64(n)}
	b.state = stateUploaded
	if sub == nil {
		return receipt, nil
	}
	b.pendingUpload = sub
	b.stats.Submissions++

	slogger().Debug("gpu: instances uploaded", "count", count, "bytes", n)
	return receipt, nil
}

// Render records one render pass into frame: the target is cleared and,
// if any instances were uploaded, the whole batch is drawn with a single
// draw call of Instances()*6 vertices. All sprites sample the texture
// with handle 0.
//
// The receipt must come from the most recent UploadInstanceData, with no
// Enqueue or BeginFrame in between; otherwise sprite.ErrStaleUpload is
// returned. The receipt is consumed only once the render pass has been
// submitted, so a failure before that may be retried with it.
func (b *SpriteBatcher) Render(receipt *UploadReceipt, frame Frame, format gputypes.TextureFormat, viewProj mgl32.Mat4) (FrameStats, error) {
	if receipt == nil || receipt.seq != b.uploadSeq || receipt.seq == b.consumed || b.state != stateUploaded {
		return FrameStats{}, fmt.Errorf("%w: state %v", sprite.ErrStaleUpload, b.state)
	}
	count := receipt.instances
	var bindGroup hal.BindGroup
	if count > 0 {
		var err error
		bindGroup, err = b.prepareDraw(format)
		if err != nil {
			return FrameStats{}, err
		}
		if err := b.queue.WriteBuffer(b.uniform, 0, matrixBytes(viewProj)); err != nil {
			return FrameStats{}, fmt.Errorf("%w: write view projection: %w", sprite.ErrDeviceResource, err)
		}
	}

	s, err := beginSession(b.device, b.queue, "sprite_render")
	if err != nil {
		return FrameStats{}, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}
	rp := s.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "sprite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       frame.View,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: b.cfg.ClearColor,
		}},
	})
	if count > 0 {
		vertices := uint32(count) * 6 //nolint:gosec // count <= MaxSprites
		rp.SetPipeline(b.pipeline.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(vertices, 1, 0, 0)
		b.stats.DrawCalls = 1
		b.stats.Vertices = vertices
	}
	rp.End()

	sub, err := s.submit()
	if err != nil {
		return FrameStats{}, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}
	b.consumed = receipt.seq
	b.stats.Submissions++
	// The target is presented after this returns.
	if err := sub.wait(b.cfg.FenceTimeout); err != nil {
		return FrameStats{}, fmt.Errorf("%w: %w", sprite.ErrDeviceResource, err)
	}
	b.state = stateRendered

	slogger().Debug("gpu: frame rendered", "stats", b.stats)
	return b.stats, nil
}

// Prepare creates the instance buffers and the pipeline for format ahead
// of the first frame, so that setup failures surface at initialization.
func (b *SpriteBatcher) Prepare(format gputypes.TextureFormat) error {
	if err := b.ensureBuffers(); err != nil {
		return err
	}
	return b.ensurePipeline(format)
}

// prepareDraw makes sure the pipeline matches format and the bind group
// references the current texture 0.
func (b *SpriteBatcher) prepareDraw(format gputypes.TextureFormat) (hal.BindGroup, error) {
	if err := b.ensurePipeline(format); err != nil {
		return nil, err
	}
	if b.bindGroup != nil {
		return b.bindGroup, nil
	}
	view, err := b.textures.Resolve(0)
	if err != nil {
		return nil, fmt.Errorf("sprite batch texture: %w", err)
	}
	bg, err := b.pipeline.NewBindGroup(b.storage, uint64(b.cfg.MaxSprites)*InstanceSize, b.uniform, view)
	if err != nil {
		return nil, err
	}
	b.bindGroup = bg
	return bg, nil
}

func (b *SpriteBatcher) ensurePipeline(format gputypes.TextureFormat) error {
	if b.pipeline != nil && b.pipeline.Format() != format {
		b.releaseBindGroup()
		b.pipeline.Destroy()
		b.pipeline = nil
	}
	if b.pipeline != nil {
		return nil
	}
	p, err := b.factory.Build(format)
	if err != nil {
		return err
	}
	b.pipeline = p
	return nil
}

func (b *SpriteBatcher) ensureBuffers() error {
	if b.staging != nil {
		return nil
	}
	size := uint64(b.cfg.MaxSprites) * InstanceSize

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_instances_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("%w: create staging buffer: %w", sprite.ErrDeviceResource, err)
	}
	storage, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_instances",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.device.DestroyBuffer(staging)
		return fmt.Errorf("%w: create storage buffer: %w", sprite.ErrDeviceResource, err)
	}
	uniform, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sprite_uniforms",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.device.DestroyBuffer(storage)
		b.device.DestroyBuffer(staging)
		return fmt.Errorf("%w: create uniform buffer: %w", sprite.ErrDeviceResource, err)
	}
	b.staging, b.storage, b.uniform = staging, storage, uniform
	slogger().Debug("gpu: instance buffers created", "capacity", b.cfg.MaxSprites, "bytes", size)
	return nil
}

func (b *SpriteBatcher) retireUpload() error {
	sub := b.pendingUpload
	b.pendingUpload = nil
	return sub.wait(b.cfg.FenceTimeout)
}

func (b *SpriteBatcher) releaseBindGroup() {
	if b.bindGroup != nil {
		b.device.DestroyBindGroup(b.bindGroup)
		b.bindGroup = nil
	}
}

// Destroy waits for outstanding GPU work and releases all GPU objects.
// Safe to call more than once.
func (b *SpriteBatcher) Destroy() {
	if err := b.retireUpload(); err != nil {
		slogger().Warn("gpu: pending upload not retired", "err", err)
	}
	b.releaseBindGroup()
	if b.pipeline != nil {
		b.pipeline.Destroy()
		b.pipeline = nil
	}
	for _, buf := range []hal.Buffer{b.uniform, b.storage, b.staging} {
		if buf != nil {
			b.device.DestroyBuffer(buf)
		}
	}
	b.uniform, b.storage, b.staging = nil, nil, nil
	b.state = stateIdle
}

// matrixBytes serializes a column-major matrix as mat4x4<f32>.
func matrixBytes(m mgl32.Mat4) []byte {
	buf := make([]byte, uniformSize)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
