package sprite

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func vecNear(a, b mgl32.Vec3) bool {
	return a.ApproxEqualThreshold(b, eps)
}

func TestNewTransform(t *testing.T) {
	tr := NewTransform(1, 2, 3)
	if tr.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("expected position (1,2,3), got %v", tr.Position)
	}
	if tr.Rotation != mgl32.QuatIdent() {
		t.Errorf("expected identity rotation, got %v", tr.Rotation)
	}
}

func TestTransformTranslate(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float32
		dz     []float32
		want   mgl32.Vec3
	}{
		{"xy", 3, -4, nil, mgl32.Vec3{3, -4, 0}},
		{"xyz", 1, 2, []float32{5}, mgl32.Vec3{1, 2, 5}},
		{"extra ignored", 1, 1, []float32{2, 9}, mgl32.Vec3{1, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Identity()
			tr.Translate(tt.dx, tt.dy, tt.dz...)
			if tr.Position != tt.want {
				t.Errorf("expected %v, got %v", tt.want, tr.Position)
			}
		})
	}
}

func TestTransformTranslateRoundTrip(t *testing.T) {
	offsets := [][2]float32{{0, 0}, {1.5, -2.25}, {123.456, 789.012}, {-1e3, 1e-3}}
	for _, o := range offsets {
		tr := NewTransform(7.25, -3.5, 0)
		orig := tr.Position
		tr.Translate(o[0], o[1])
		tr.Translate(-o[0], -o[1])
		if !tr.Position.ApproxEqualThreshold(orig, 1e-3) {
			t.Errorf("offset %v: expected %v, got %v", o, orig, tr.Position)
		}
	}
}

func TestTransformBasisIdentity(t *testing.T) {
	tr := Identity()
	if !vecNear(tr.Up(), WorldUp) {
		t.Errorf("Up: expected %v, got %v", WorldUp, tr.Up())
	}
	if !vecNear(tr.Right(), WorldRight) {
		t.Errorf("Right: expected %v, got %v", WorldRight, tr.Right())
	}
	if !vecNear(tr.Forward(), WorldForward) {
		t.Errorf("Forward: expected %v, got %v", WorldForward, tr.Forward())
	}
}

func TestTransformZeroValueActsAsIdentity(t *testing.T) {
	var tr Transform
	if !vecNear(tr.Forward(), WorldForward) {
		t.Errorf("expected %v, got %v", WorldForward, tr.Forward())
	}
	tr.RotateAroundAxis(90, AxisUp)
	if l := tr.Rotation.Len(); math.Abs(float64(l-1)) > eps {
		t.Errorf("expected unit rotation, got length %v", l)
	}
}

func TestRotateAroundAxisUp(t *testing.T) {
	tr := Identity()
	tr.RotateAroundAxis(90, AxisUp)
	want := mgl32.Vec3{-1, 0, 0}
	if !vecNear(tr.Forward(), want) {
		t.Errorf("expected forward %v, got %v", want, tr.Forward())
	}
	if !vecNear(tr.Up(), WorldUp) {
		t.Errorf("expected up unchanged, got %v", tr.Up())
	}
}

func TestRotateAroundAxisUsesWorldAxis(t *testing.T) {
	tr := Identity()
	tr.RotateAroundAxis(90, AxisUp)
	tr.RotateAroundAxis(90, AxisRight)

	// Rotation = qUp * qRight: forward is tipped up around world X first,
	// then spun around world Y, which leaves it pointing up.
	want := mgl32.Vec3{0, 1, 0}
	if !vecNear(tr.Forward(), want) {
		t.Errorf("expected forward %v, got %v", want, tr.Forward())
	}
}

func TestRotateAroundAxisStaysUnit(t *testing.T) {
	tr := Identity()
	axes := []Axis{AxisUp, AxisRight, AxisForward}
	for i := 0; i < 1000; i++ {
		tr.RotateAroundAxis(7.3, axes[i%len(axes)])
	}
	if l := tr.Rotation.Len(); math.Abs(float64(l-1)) > eps {
		t.Errorf("expected unit rotation, got length %v", l)
	}
}

func TestRotateFullTurn(t *testing.T) {
	tr := Identity()
	for i := 0; i < 4; i++ {
		tr.RotateAroundAxis(90, AxisForward)
	}
	if !vecNear(tr.Right(), WorldRight) {
		t.Errorf("expected right %v after full turn, got %v", WorldRight, tr.Right())
	}
}

func TestPlanarAngle(t *testing.T) {
	tests := []struct {
		name    string
		degrees float32
		axis    Axis
		want    float32
	}{
		{"none", 0, AxisForward, 0},
		// Forward is -Z, so a positive turn about it is negative about +Z.
		{"forward 30", 30, AxisForward, -mgl32.DegToRad(30)},
		{"forward -45", -45, AxisForward, mgl32.DegToRad(45)},
		{"up does not roll", 40, AxisUp, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Identity()
			tr.RotateAroundAxis(tt.degrees, tt.axis)
			got := tr.PlanarAngle()
			if math.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAxisString(t *testing.T) {
	tests := []struct {
		axis Axis
		want string
	}{
		{AxisUp, "up"},
		{AxisRight, "right"},
		{AxisForward, "forward"},
		{Axis(9), "Axis(9)"},
	}
	for _, tt := range tests {
		if got := tt.axis.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
