package sprite

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// panAnim holds the active pan tweens for camera X and Y.
type panAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera is a viewpoint in world space. Its view matrix is derived from
// the transform on every call to View; nothing is cached.
type Camera struct {
	Transform Transform

	pan *panAnim
}

// NewCamera returns an unrotated camera at the origin.
func NewCamera() *Camera {
	return &Camera{Transform: Identity()}
}

// Move translates the camera in the XY plane.
func (c *Camera) Move(dx, dy float32) {
	c.Transform.Translate(dx, dy)
}

// View returns the look-at matrix for the camera's current position,
// looking along its forward vector with its up vector.
func (c *Camera) View() mgl32.Mat4 {
	pos := c.Transform.Position
	return mgl32.LookAtV(pos, pos.Add(c.Transform.Forward()), c.Transform.Up())
}

// PanTo animates the camera position to (x, y) over duration seconds
// using the given easing function. A nil easeFn means linear.
// Call Update once per frame to advance the animation.
func (c *Camera) PanTo(x, y, duration float32, easeFn ease.TweenFunc) {
	if easeFn == nil {
		easeFn = ease.Linear
	}
	pos := c.Transform.Position
	c.pan = &panAnim{
		tweenX: gween.New(pos[0], x, duration, easeFn),
		tweenY: gween.New(pos[1], y, duration, easeFn),
	}
}

// Panning reports whether a pan animation is in progress.
func (c *Camera) Panning() bool { return c.pan != nil }

// CancelPan stops the pan animation where it is.
func (c *Camera) CancelPan() { c.pan = nil }

// Update advances the pan animation by dt seconds. It is a no-op when
// no pan is active.
func (c *Camera) Update(dt float32) {
	if c.pan == nil {
		return
	}
	if !c.pan.doneX {
		val, done := c.pan.tweenX.Update(dt)
		c.Transform.Position[0] = val
		c.pan.doneX = done
	}
	if !c.pan.doneY {
		val, done := c.pan.tweenY.Update(dt)
		c.Transform.Position[1] = val
		c.pan.doneY = done
	}
	if c.pan.doneX && c.pan.doneY {
		c.pan = nil
	}
}
