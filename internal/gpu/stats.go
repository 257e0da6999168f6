//go:build !nogpu

package gpu

import "log/slog"

// FrameStats describes the GPU work issued for one frame.
type FrameStats struct {
	// Frame is the batcher's frame counter, incremented by BeginFrame.
	Frame uint64

	// Instances is the number of sprite instances uploaded.
	Instances int

	// UploadedBytes is the size of the staging to storage copy.
	UploadedBytes uint64

	// DrawCalls is the number of draw commands recorded (0 or 1).
	DrawCalls int

	// Vertices is the vertex count of the draw command.
	Vertices uint32

	// Submissions counts queue submissions (upload and render).
	Submissions int
}

// LogValue implements slog.LogValuer.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("frame", s.Frame),
		slog.Int("instances", s.Instances),
		slog.Uint64("uploaded_bytes", s.UploadedBytes),
		slog.Int("draw_calls", s.DrawCalls),
		slog.Uint64("vertices", uint64(s.Vertices)),
		slog.Int("submissions", s.Submissions),
	)
}
