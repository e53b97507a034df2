package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/scene"
)

func spawnCircle(t *testing.T, w *scene.World, pos, vel mgl32.Vec2, mass, radius float32) *scene.Entity {
	t.Helper()
	e, err := w.Spawn(scene.ArchetypeCircle, scene.NewTransform2D(pos), scene.RigidBody2D{Velocity: vel, Mass: mass}, scene.Color{1, 1, 1}, scene.Shape{Radius: radius, Segments: 8})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

const tolerance = 1e-5

func near(got, want mgl32.Vec2) bool {
	return mgl32.Abs(got.X()-want.X()) <= tolerance && mgl32.Abs(got.Y()-want.Y()) <= tolerance
}

func quietPhysics() config.PhysicsConfig {
	return config.PhysicsConfig{Substeps: 1}
}

func TestPhysicsIntegratesVelocityThenGravity(t *testing.T) {
	w := scene.NewWorld()
	e := spawnCircle(t, w, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, 1, 0.01)
	e.Gravity.Force = mgl32.Vec2{0, -1}

	ps := NewPhysicsSystem(quietPhysics())
	ps.Update(w, 0.5)

	if !near(e.Transform.Translation, mgl32.Vec2{0.5, 0}) {
		t.Errorf("translation = %v", e.Transform.Translation)
	}
	if !near(e.Body.Velocity, mgl32.Vec2{1, -0.5}) {
		t.Errorf("velocity = %v", e.Body.Velocity)
	}
}

func TestPhysicsSubstepsSplitTheTick(t *testing.T) {
	w := scene.NewWorld()
	e := spawnCircle(t, w, mgl32.Vec2{}, mgl32.Vec2{}, 1, 0.01)

	cfg := quietPhysics()
	cfg.Gravity = [2]float32{0, -1}
	cfg.Substeps = 4
	ps := NewPhysicsSystem(cfg)
	ps.Update(w, 1)

	// Velocity is the same regardless of substeps; position lags by one substep.
	if !near(e.Body.Velocity, mgl32.Vec2{0, -1}) {
		t.Errorf("velocity = %v", e.Body.Velocity)
	}
	want := float32(-(0 + 0.25 + 0.5 + 0.75) * 0.25)
	if mgl32.Abs(e.Transform.Translation.Y()-want) > tolerance {
		t.Errorf("y = %f, want %f", e.Transform.Translation.Y(), want)
	}
}

func TestPhysicsPairwiseAttractionConservesMomentum(t *testing.T) {
	w := scene.NewWorld()
	a := spawnCircle(t, w, mgl32.Vec2{-0.5, 0}, mgl32.Vec2{}, 1, 0.01)
	b := spawnCircle(t, w, mgl32.Vec2{0.5, 0}, mgl32.Vec2{}, 3, 0.01)

	cfg := quietPhysics()
	cfg.GravitationalConstant = 1
	ps := NewPhysicsSystem(cfg)
	ps.Update(w, 0.1)

	if a.Body.Velocity.X() <= 0 || b.Body.Velocity.X() >= 0 {
		t.Fatalf("bodies do not attract: %v %v", a.Body.Velocity, b.Body.Velocity)
	}
	p := a.Body.Velocity.Mul(a.Body.Mass).Add(b.Body.Velocity.Mul(b.Body.Mass))
	if !near(p, mgl32.Vec2{}) {
		t.Errorf("momentum = %v", p)
	}
	// F = G*m1*m2/r^2 = 3, so a accelerates at 3 and b at 1.
	if mgl32.Abs(a.Body.Velocity.X()-0.3) > tolerance {
		t.Errorf("a velocity = %v", a.Body.Velocity)
	}
}

func TestCollisionEqualMassesSwapVelocities(t *testing.T) {
	w := scene.NewWorld()
	a := spawnCircle(t, w, mgl32.Vec2{-0.05, 0}, mgl32.Vec2{1, 0}, 1, 0.1)
	b := spawnCircle(t, w, mgl32.Vec2{0.05, 0}, mgl32.Vec2{-1, 0}, 1, 0.1)

	collide(a, b)
	if !near(a.Body.Velocity, mgl32.Vec2{-1, 0}) || !near(b.Body.Velocity, mgl32.Vec2{1, 0}) {
		t.Errorf("velocities after collision: %v %v", a.Body.Velocity, b.Body.Velocity)
	}
	if d := b.Transform.Translation.Sub(a.Transform.Translation).Len(); d < 0.2-1e-5 {
		t.Errorf("circles still overlap, distance %f", d)
	}
}

func TestCollisionUnequalMassesConserveMomentumAndEnergy(t *testing.T) {
	w := scene.NewWorld()
	a := spawnCircle(t, w, mgl32.Vec2{0, 0}, mgl32.Vec2{2, 0}, 2, 0.1)
	b := spawnCircle(t, w, mgl32.Vec2{0.15, 0}, mgl32.Vec2{0, 0}, 1, 0.1)

	energy := func() float32 {
		return 0.5*a.Body.Mass*a.Body.Velocity.Dot(a.Body.Velocity) + 0.5*b.Body.Mass*b.Body.Velocity.Dot(b.Body.Velocity)
	}
	momentum := func() mgl32.Vec2 {
		return a.Body.Velocity.Mul(a.Body.Mass).Add(b.Body.Velocity.Mul(b.Body.Mass))
	}
	e0, p0 := energy(), momentum()
	collide(a, b)

	if !near(momentum(), p0) {
		t.Errorf("momentum %v, want %v", momentum(), p0)
	}
	if mgl32.Abs(energy()-e0) > 1e-4 {
		t.Errorf("energy %f, want %f", energy(), e0)
	}
	if !near(a.Body.Velocity, mgl32.Vec2{2.0 / 3.0, 0}) || !near(b.Body.Velocity, mgl32.Vec2{8.0 / 3.0, 0}) {
		t.Errorf("velocities %v %v", a.Body.Velocity, b.Body.Velocity)
	}
}

func TestCollisionIgnoresSeparatingBodies(t *testing.T) {
	w := scene.NewWorld()
	a := spawnCircle(t, w, mgl32.Vec2{-0.05, 0}, mgl32.Vec2{-1, 0}, 1, 0.1)
	b := spawnCircle(t, w, mgl32.Vec2{0.05, 0}, mgl32.Vec2{1, 0}, 1, 0.1)

	collide(a, b)
	if !near(a.Body.Velocity, mgl32.Vec2{-1, 0}) || !near(b.Body.Velocity, mgl32.Vec2{1, 0}) {
		t.Errorf("separating bodies were bounced: %v %v", a.Body.Velocity, b.Body.Velocity)
	}
}

func TestPhysicsPauseAndConfigSwap(t *testing.T) {
	w := scene.NewWorld()
	e := spawnCircle(t, w, mgl32.Vec2{}, mgl32.Vec2{1, 0}, 1, 0.01)

	ps := NewPhysicsSystem(quietPhysics())
	ps.TogglePause()
	ps.Update(w, 1)
	if e.Transform.Translation != (mgl32.Vec2{}) {
		t.Error("paused system moved an entity")
	}
	ps.TogglePause()

	cfg := quietPhysics()
	cfg.Gravity = [2]float32{0, 2}
	ps.SetConfig(cfg)
	ps.Update(w, 1)
	if !near(e.Body.Velocity, mgl32.Vec2{1, 2}) {
		t.Errorf("new gravity not applied: %v", e.Body.Velocity)
	}
}

func TestCameraKeepsShapesRound(t *testing.T) {
	cam := NewCamera2D()
	cam.SetAspectRatio(2)
	m, off := cam.Apply(mgl32.Ident2(), mgl32.Vec2{1, 1})
	if got := m.Mul2x1(mgl32.Vec2{1, 1}); !near(got, mgl32.Vec2{0.5, 1}) {
		t.Errorf("wide projection = %v", got)
	}
	if !near(off, mgl32.Vec2{0.5, 1}) {
		t.Errorf("offset = %v", off)
	}

	cam.SetAspectRatio(0.5)
	if got := cam.Projection().Mul2x1(mgl32.Vec2{1, 1}); !near(got, mgl32.Vec2{1, 0.5}) {
		t.Errorf("tall projection = %v", got)
	}
	cam.SetAspectRatio(0)
	if got := cam.Projection().Mul2x1(mgl32.Vec2{1, 1}); !near(got, mgl32.Vec2{1, 0.5}) {
		t.Error("degenerate aspect changed the projection")
	}
}

func TestPushConstantLayout(t *testing.T) {
	if pushConstantSize != 40 {
		t.Fatalf("push constant block is %d bytes", pushConstantSize)
	}
	w := scene.NewWorld()
	e := spawnCircle(t, w, mgl32.Vec2{0.2, 0.4}, mgl32.Vec2{}, 1, 0.1)
	e.Color = scene.Color{0.1, 0.2, 0.3}

	cam := NewCamera2D()
	cam.SetAspectRatio(2)
	push := buildPushConstants(e, cam)
	if push.Offset != [2]float32{0.1, 0.4} {
		t.Errorf("offset = %v", push.Offset)
	}
	if push.Color != [3]float32{0.1, 0.2, 0.3} {
		t.Errorf("color = %v", push.Color)
	}
	if push.Transform != [4]float32{0.5, 0, 0, 1} {
		t.Errorf("transform = %v", push.Transform)
	}
}
