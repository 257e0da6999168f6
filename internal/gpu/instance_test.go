//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/sprite"
)

func TestInstanceLayout(t *testing.T) {
	in := Instance{
		Width: 16, Height: 16,
		X: 1, Y: 2, Z: 3, Rotation: 4,
		ScaleX: 5, ScaleY: 6,
		U: 7, V: 8,
		R: 9, G: 10, B: 11, A: 12,
	}
	buf := make([]byte, InstanceSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	in.Put(buf)

	want := []float32{16, 16, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if got != w {
			t.Errorf("float %d: expected %v, got %v", i, w, got)
		}
	}
	if ReadInstance(buf) != in {
		t.Errorf("ReadInstance mismatch: %+v", ReadInstance(buf))
	}
}

func TestMakeInstanceDefaults(t *testing.T) {
	tr := sprite.NewTransform(10, 20, 0)
	tr.RotateAroundAxis(45, sprite.AxisForward)
	d := QueuedDraw{Sprite: sprite.NewSprite(0, 2, 3).WithUV(0.5, 0.25), Transform: tr}

	in := MakeInstance(&d, InstanceParams{Width: 16, Height: 16})
	if in.Width != 16 || in.Height != 16 {
		t.Errorf("expected 16x16, got %vx%v", in.Width, in.Height)
	}
	if in.X != 10 || in.Y != 20 || in.Z != 0 {
		t.Errorf("unexpected position %v,%v,%v", in.X, in.Y, in.Z)
	}
	if in.ScaleX != 2 || in.ScaleY != 3 {
		t.Errorf("unexpected scale %v,%v", in.ScaleX, in.ScaleY)
	}
	if in.U != 0.5 || in.V != 0.25 {
		t.Errorf("unexpected uv %v,%v", in.U, in.V)
	}
	if in.R != 1 || in.G != 1 || in.B != 1 || in.A != 1 {
		t.Errorf("expected white, got %v,%v,%v,%v", in.R, in.G, in.B, in.A)
	}
	if in.Rotation != 0 {
		t.Errorf("expected rotation 0 without extraction, got %v", in.Rotation)
	}
}

func TestMakeInstanceExtractRotation(t *testing.T) {
	tr := sprite.Identity()
	tr.RotateAroundAxis(-90, sprite.AxisForward)
	d := QueuedDraw{Sprite: sprite.NewSprite(0, 1, 1), Transform: tr}

	in := MakeInstance(&d, InstanceParams{Width: 16, Height: 16, ExtractRotation: true})
	want := mgl32.DegToRad(90)
	if math.Abs(float64(in.Rotation-want)) > 1e-4 {
		t.Errorf("expected rotation %v, got %v", want, in.Rotation)
	}
}

func TestPackInstances(t *testing.T) {
	draws := []QueuedDraw{
		{Sprite: sprite.NewSprite(0, 1, 1), Transform: sprite.NewTransform(1, 1, 0)},
		{Sprite: sprite.NewSprite(0, 2, 2), Transform: sprite.NewTransform(2, 2, 0)},
	}
	dst := make([]byte, 4*InstanceSize)
	n := PackInstances(dst, draws, InstanceParams{Width: 16, Height: 16})
	if n != 2*InstanceSize {
		t.Fatalf("expected %d bytes, got %d", 2*InstanceSize, n)
	}
	for i := range draws {
		in := ReadInstance(dst[i*InstanceSize:])
		if in.X != float32(i+1) || in.ScaleX != float32(i+1) {
			t.Errorf("instance %d: unexpected %+v", i, in)
		}
	}
	// Bytes past the packed instances are untouched.
	for _, b := range dst[n:] {
		if b != 0 {
			t.Fatal("PackInstances wrote past the last instance")
		}
	}
}
