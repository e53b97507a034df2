package systems

import "github.com/go-gl/mathgl/mgl32"

// Camera2D maps world space onto normalized device coordinates. The shorter
// window side spans [-1, 1]; the longer one shows more of the world, so shapes
// keep their proportions after a resize.
type Camera2D struct {
	projection mgl32.Mat2
}

func NewCamera2D() *Camera2D {
	return &Camera2D{projection: mgl32.Ident2()}
}

// SetAspectRatio updates the projection for a surface of width/height aspect.
// Non-positive values are ignored.
func (c *Camera2D) SetAspectRatio(aspect float32) {
	if aspect <= 0 {
		return
	}
	if aspect >= 1 {
		c.projection = mgl32.Mat2{1 / aspect, 0, 0, 1}
	} else {
		c.projection = mgl32.Mat2{1, 0, 0, aspect}
	}
}

func (c *Camera2D) Projection() mgl32.Mat2 {
	return c.projection
}

// Apply projects a model transform and its offset.
func (c *Camera2D) Apply(transform mgl32.Mat2, offset mgl32.Vec2) (mgl32.Mat2, mgl32.Vec2) {
	return c.projection.Mul2(transform), c.projection.Mul2x1(offset)
}
