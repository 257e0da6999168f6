//go:build !nogpu

package gpu

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// newNoopDevice opens a noop device and queue that are destroyed when
// the test ends.
func newNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop backend reported no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// writePNG writes a w x h solid image into dir and returns its path.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 100, 50, 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var errInjected = errors.New("injected failure")

// failingDevice wraps a device and fails selected creations.
type failingDevice struct {
	hal.Device

	failTexture     bool
	failBufferLabel string
	failShader      bool
}

func (d *failingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.failTexture {
		return nil, errInjected
	}
	return d.Device.CreateTexture(desc)
}

func (d *failingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.failBufferLabel != "" && desc.Label == d.failBufferLabel {
		return nil, errInjected
	}
	return d.Device.CreateBuffer(desc)
}

func (d *failingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if d.failShader {
		return nil, errInjected
	}
	return d.Device.CreateShaderModule(desc)
}

// failingQueue wraps a queue and fails buffer writes while failWrite is set.
type failingQueue struct {
	hal.Queue

	failWrite bool
	writes    int
}

func (q *failingQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.writes++
	if q.failWrite {
		return errInjected
	}
	return q.Queue.WriteBuffer(buffer, offset, data)
}

type drawCall struct {
	vertices, instances, firstVertex, firstInstance uint32
}

// gpuLog collects the commands recorded through a recordingDevice.
type gpuLog struct {
	draws  []drawCall
	copies []uint64
}

func (l *gpuLog) reset() {
	l.draws = nil
	l.copies = nil
}

// recordingDevice hands out command encoders that log buffer copies and
// draw calls before forwarding them.
type recordingDevice struct {
	hal.Device
	log *gpuLog
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recordingEncoder{CommandEncoder: enc, log: d.log}, nil
}

type recordingEncoder struct {
	hal.CommandEncoder
	log *gpuLog
}

func (e *recordingEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	for _, r := range regions {
		e.log.copies = append(e.log.copies, r.Size)
	}
	e.CommandEncoder.CopyBufferToBuffer(src, dst, regions)
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	return &recordingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), log: e.log}
}

type recordingPass struct {
	hal.RenderPassEncoder
	log *gpuLog
}

func (p *recordingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.log.draws = append(p.log.draws, drawCall{vertexCount, instanceCount, firstVertex, firstInstance})
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}
