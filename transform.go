package sprite

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// Axis selects one of the fixed world axes.
type Axis int

const (
	AxisUp Axis = iota
	AxisRight
	AxisForward
)

// World basis. Forward points into the screen along -Z.
var (
	WorldUp      = mgl32.Vec3{0, 1, 0}
	WorldRight   = mgl32.Vec3{1, 0, 0}
	WorldForward = mgl32.Vec3{0, 0, -1}
)

// Vector returns the world-space unit vector of the axis.
func (a Axis) Vector() mgl32.Vec3 {
	switch a {
	case AxisRight:
		return WorldRight
	case AxisForward:
		return WorldForward
	default:
		return WorldUp
	}
}

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case AxisUp:
		return "up"
	case AxisRight:
		return "right"
	case AxisForward:
		return "forward"
	default:
		return "Axis(" + strconv.Itoa(int(a)) + ")"
	}
}

// Transform is a position and orientation in world space.
// Rotation is kept unit length by every mutating method.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// NewTransform returns an unrotated transform at (x, y, z).
func NewTransform(x, y, z float32) Transform {
	return Transform{
		Position: mgl32.Vec3{x, y, z},
		Rotation: mgl32.QuatIdent(),
	}
}

// Identity returns an unrotated transform at the origin.
func Identity() Transform {
	return NewTransform(0, 0, 0)
}

// Translate adds the offsets to the position. dz is optional and
// defaults to 0; extra values are ignored.
func (t *Transform) Translate(dx, dy float32, dz ...float32) {
	var z float32
	if len(dz) > 0 {
		z = dz[0]
	}
	t.Position = t.Position.Add(mgl32.Vec3{dx, dy, z})
}

// RotateAroundAxis rotates by degrees around a fixed world axis.
// The rotation is appended on the right, so it is applied before the
// existing orientation; the axis is never the transform's own basis.
func (t *Transform) RotateAroundAxis(degrees float32, axis Axis) {
	q := mgl32.QuatRotate(mgl32.DegToRad(degrees), axis.Vector())
	t.Rotation = t.rotation().Mul(q).Normalize()
}

// Up returns the world up axis rotated into this transform's frame.
func (t Transform) Up() mgl32.Vec3 { return t.rotation().Rotate(WorldUp) }

// Right returns the world right axis rotated into this transform's frame.
func (t Transform) Right() mgl32.Vec3 { return t.rotation().Rotate(WorldRight) }

// Forward returns the world forward axis rotated into this transform's frame.
func (t Transform) Forward() mgl32.Vec3 { return t.rotation().Rotate(WorldForward) }

// PlanarAngle returns the rotation around the Z axis in radians,
// in the range [-π, π]. It is the only component of the orientation a
// 2D sprite can show.
func (t Transform) PlanarAngle() float32 {
	q := t.rotation()
	x, y, z, w := float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W)
	return float32(math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)))
}

// rotation treats the zero quaternion as identity so that a zero
// Transform literal behaves like Identity.
func (t Transform) rotation() mgl32.Quat {
	if t.Rotation.W == 0 && t.Rotation.V == (mgl32.Vec3{}) {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}
