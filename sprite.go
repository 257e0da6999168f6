package sprite

import "strconv"

// TextureHandle identifies a texture registered with the renderer.
// Handles are indices into an append-only registry and stay valid until
// the renderer is closed.
type TextureHandle int32

// InvalidTexture is returned by failed texture loads.
const InvalidTexture TextureHandle = -1

// Valid reports whether h could have been issued by a registry.
// It does not check that h is in range for a particular registry.
func (h TextureHandle) Valid() bool { return h >= 0 }

// String returns the handle index, or "invalid".
func (h TextureHandle) String() string {
	if !h.Valid() {
		return "invalid"
	}
	return strconv.Itoa(int(h))
}

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// White is the default sprite tint.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// Sprite describes what to draw: a texture and its scale.
// A Sprite is an immutable value; queue entries copy it.
type Sprite struct {
	Texture TextureHandle
	ScaleX  float32
	ScaleY  float32

	// Tint multiplies the sampled texel.
	Tint Color

	// U and V offset the texture coordinates.
	U, V float32
}

// NewSprite returns a white-tinted sprite with the given texture and scale.
func NewSprite(tex TextureHandle, scaleX, scaleY float32) Sprite {
	return Sprite{
		Texture: tex,
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		Tint:    White,
	}
}

// WithTint returns a copy of s with a different tint.
func (s Sprite) WithTint(c Color) Sprite {
	s.Tint = c
	return s
}

// WithUV returns a copy of s with a texture coordinate offset.
func (s Sprite) WithUV(u, v float32) Sprite {
	s.U, s.V = u, v
	return s
}
