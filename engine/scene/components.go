package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vulkanmc/engine/math"
)

type Transform2D struct {
	// Position offset in normalized device coordinates.
	Translation mgl32.Vec2
	Scale       mgl32.Vec2
	// Radians, counter-clockwise.
	Rotation float32
}

func NewTransform2D(translation mgl32.Vec2) Transform2D {
	return Transform2D{
		Translation: translation,
		Scale:       mgl32.Vec2{1, 1},
	}
}

// Mat2 returns rotation * scale.
func (t Transform2D) Mat2() mgl32.Mat2 {
	s := math.Sin(t.Rotation)
	c := math.Cos(t.Rotation)
	rot := mgl32.Mat2{c, s, -s, c}
	scale := mgl32.Mat2{t.Scale.X(), 0, 0, t.Scale.Y()}
	return rot.Mul2(scale)
}

type RigidBody2D struct {
	Velocity mgl32.Vec2
	Mass     float32
}

// Gravity is a constant per-entity acceleration.
type Gravity struct {
	Force mgl32.Vec2
}

type Color mgl32.Vec3

// Shape holds the unscaled dimensions of an archetype's mesh. Circles use Radius
// and Segments, rects use Length and Width (half extents).
type Shape struct {
	Radius   float32
	Segments int
	Length   float32
	Width    float32
}
