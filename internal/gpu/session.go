//go:build !nogpu

package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// DefaultFenceTimeout bounds every wait on a submission fence.
const DefaultFenceTimeout = 5 * time.Second

// commandSession is one scoped command stream: an encoder that is either
// submitted exactly once or discarded.
type commandSession struct {
	device  hal.Device
	queue   hal.Queue
	label   string
	encoder hal.CommandEncoder
	done    bool
}

func beginSession(device hal.Device, queue hal.Queue, label string) (*commandSession, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &commandSession{device: device, queue: queue, label: label, encoder: encoder}, nil
}

// discard abandons the recorded commands. No-op after submit.
func (s *commandSession) discard() {
	if s.done {
		return
	}
	s.done = true
	s.encoder.DiscardEncoding()
}

// submit finishes encoding and submits the command buffer with a new
// fence. The returned submission owns both until it is retired.
func (s *commandSession) submit() (*submission, error) {
	if s.done {
		return nil, fmt.Errorf("%s: session already finished", s.label)
	}
	s.done = true

	cmdBuf, err := s.encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	fence, err := s.device.CreateFence()
	if err != nil {
		s.device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("create fence: %w", err)
	}
	if err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		s.device.DestroyFence(fence)
		s.device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("submit %s: %w", s.label, err)
	}
	return &submission{device: s.device, label: s.label, cmdBuf: cmdBuf, fence: fence}, nil
}

// submission is a command buffer in flight.
type submission struct {
	device hal.Device
	label  string
	cmdBuf hal.CommandBuffer
	fence  hal.Fence
}

// wait blocks until the GPU signals the fence, then releases the
// command buffer and fence. Safe to call on a nil submission.
func (s *submission) wait(timeout time.Duration) error {
	if s == nil || s.fence == nil {
		return nil
	}
	ok, err := s.device.Wait(s.fence, 1, timeout)
	s.release()
	if err != nil {
		return fmt.Errorf("wait for %s: %w", s.label, err)
	}
	if !ok {
		return fmt.Errorf("wait for %s: timed out after %v", s.label, timeout)
	}
	return nil
}

func (s *submission) release() {
	if s == nil || s.fence == nil {
		return
	}
	s.device.DestroyFence(s.fence)
	s.device.FreeCommandBuffer(s.cmdBuf)
	s.fence = nil
	s.cmdBuf = nil
}
