package sprite

import "errors"

// Error kinds reported by the renderer. Failures are wrapped with context,
// so test them with errors.Is.
var (
	// ErrResourceLoad is returned when an asset is missing or cannot be decoded.
	ErrResourceLoad = errors.New("sprite: resource load failed")

	// ErrDeviceResource is returned when a GPU object cannot be created or
	// filled with data.
	ErrDeviceResource = errors.New("sprite: device resource failed")

	// ErrInvalidHandle is returned when a texture handle was never issued.
	ErrInvalidHandle = errors.New("sprite: invalid texture handle")

	// ErrQueueOverflow is returned when a draw is enqueued into a full queue.
	// The draw is dropped and the queue is left unchanged.
	ErrQueueOverflow = errors.New("sprite: draw queue full")

	// ErrFrameSkipped is returned when the render step of a frame was
	// abandoned, for example because the target could not be acquired.
	// The next frame may be attempted normally.
	ErrFrameSkipped = errors.New("sprite: frame skipped")

	// ErrStaleUpload is returned when a render is attempted with an upload
	// receipt that was already consumed or belongs to an earlier frame.
	ErrStaleUpload = errors.New("sprite: render without matching upload")

	// ErrClosed is returned by operations on a released renderer.
	ErrClosed = errors.New("sprite: renderer closed")

	// ErrNoDevice is returned when no usable GPU adapter was found.
	ErrNoDevice = errors.New("sprite: no GPU device available")
)
