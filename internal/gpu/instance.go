//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
)

// InstanceSize is the byte size of one Instance in the storage buffer.
// Layout (16 little-endian float32, four vec4 in the shader):
//
//	 0: width, height, pad, pad
//	16: x, y, z, rotation
//	32: scale_x, scale_y, u, v
//	48: r, g, b, a
const InstanceSize = 64

// Default sprite quad size in world units.
const (
	DefaultSpriteWidth  = 16
	DefaultSpriteHeight = 16
)

// Instance is the GPU record for one sprite.
type Instance struct {
	Width, Height  float32
	X, Y, Z        float32
	Rotation       float32
	ScaleX, ScaleY float32
	U, V           float32
	R, G, B, A     float32
}

// InstanceParams controls how draws become instances.
type InstanceParams struct {
	// Width and Height are the quad size before scaling. They do not come
	// from the texture.
	Width, Height float32

	// ExtractRotation fills Rotation from the transform's planar angle.
	// When false Rotation is always 0.
	ExtractRotation bool
}

// MakeInstance derives the GPU record for a draw.
func MakeInstance(d *QueuedDraw, p InstanceParams) Instance {
	pos := d.Transform.Position
	in := Instance{
		Width:  p.Width,
		Height: p.Height,
		X:      pos[0],
		Y:      pos[1],
		Z:      pos[2],
		ScaleX: d.Sprite.ScaleX,
		ScaleY: d.Sprite.ScaleY,
		U:      d.Sprite.U,
		V:      d.Sprite.V,
		R:      d.Sprite.Tint.R,
		G:      d.Sprite.Tint.G,
		B:      d.Sprite.Tint.B,
		A:      d.Sprite.Tint.A,
	}
	if p.ExtractRotation {
		in.Rotation = d.Transform.PlanarAngle()
	}
	return in
}

// Put writes the instance into buf, which must hold InstanceSize bytes.
func (in *Instance) Put(buf []byte) {
	_ = buf[InstanceSize-1]
	putF32(buf, 0, in.Width)
	putF32(buf, 4, in.Height)
	putF32(buf, 8, 0)
	putF32(buf, 12, 0)
	putF32(buf, 16, in.X)
	putF32(buf, 20, in.Y)
	putF32(buf, 24, in.Z)
	putF32(buf, 28, in.Rotation)
	putF32(buf, 32, in.ScaleX)
	putF32(buf, 36, in.ScaleY)
	putF32(buf, 40, in.U)
	putF32(buf, 44, in.V)
	putF32(buf, 48, in.R)
	putF32(buf, 52, in.G)
	putF32(buf, 56, in.B)
	putF32(buf, 60, in.A)
}

// ReadInstance decodes the instance stored at buf.
func ReadInstance(buf []byte) Instance {
	_ = buf[InstanceSize-1]
	return Instance{
		Width:    getF32(buf, 0),
		Height:   getF32(buf, 4),
		X:        getF32(buf, 16),
		Y:        getF32(buf, 20),
		Z:        getF32(buf, 24),
		Rotation: getF32(buf, 28),
		ScaleX:   getF32(buf, 32),
		ScaleY:   getF32(buf, 36),
		U:        getF32(buf, 40),
		V:        getF32(buf, 44),
		R:        getF32(buf, 48),
		G:        getF32(buf, 52),
		B:        getF32(buf, 56),
		A:        getF32(buf, 60),
	}
}

// PackInstances writes one instance per draw into dst and returns the
// number of bytes written. dst must hold len(draws)*InstanceSize bytes.
func PackInstances(dst []byte, draws []QueuedDraw, p InstanceParams) int {
	for i := range draws {
		in := MakeInstance(&draws[i], p)
		in.Put(dst[i*InstanceSize:])
	}
	return len(draws) * InstanceSize
}

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func getF32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}
