//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/sprite"
)

// DefaultMaxSprites is the draw queue capacity used when none is configured.
const DefaultMaxSprites = 1024

// QueuedDraw is one draw request of the current frame.
type QueuedDraw struct {
	Sprite    sprite.Sprite
	Transform sprite.Transform
}

// DrawQueue is a fixed-capacity arena of draws plus a length cursor.
// The backing array is allocated once; Reset and Push never allocate.
//
// Entries at indices >= Len belong to earlier frames and are never read.
type DrawQueue struct {
	entries []QueuedDraw
	count   int
}

// NewDrawQueue allocates a queue holding up to capacity draws.
// A non-positive capacity selects DefaultMaxSprites.
func NewDrawQueue(capacity int) *DrawQueue {
	if capacity <= 0 {
		capacity = DefaultMaxSprites
	}
	return &DrawQueue{entries: make([]QueuedDraw, capacity)}
}

// Reset empties the queue. The next Push lands at index 0.
func (q *DrawQueue) Reset() { q.count = 0 }

// Push appends a draw. It fails with sprite.ErrQueueOverflow when the
// queue is full, leaving the queue unchanged.
func (q *DrawQueue) Push(s sprite.Sprite, t sprite.Transform) error {
	if q.count == len(q.entries) {
		return fmt.Errorf("%w: capacity %d", sprite.ErrQueueOverflow, len(q.entries))
	}
	q.entries[q.count] = QueuedDraw{Sprite: s, Transform: t}
	q.count++
	return nil
}

// Len returns the number of draws queued this frame.
func (q *DrawQueue) Len() int { return q.count }

// Cap returns the fixed capacity.
func (q *DrawQueue) Cap() int { return len(q.entries) }

// Full reports whether Push would fail.
func (q *DrawQueue) Full() bool { return q.count == len(q.entries) }

// Draws returns the valid entries. The slice aliases the arena and is
// only valid until the next Reset or Push.
func (q *DrawQueue) Draws() []QueuedDraw { return q.entries[:q.count] }
