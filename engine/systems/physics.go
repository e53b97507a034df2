package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/scene"
)

// PhysicsSystem advances every entity of the world. Each update is split into
// substeps; one substep applies pairwise attraction, uniform gravity, the
// entity's own gravity component and, when enabled, circle collisions.
type PhysicsSystem struct {
	config config.PhysicsConfig
	paused bool

	// Scratch space reused across substeps.
	bodies        []*scene.Entity
	accelerations []mgl32.Vec2
}

func NewPhysicsSystem(cfg config.PhysicsConfig) *PhysicsSystem {
	return &PhysicsSystem{config: cfg}
}

func (ps *PhysicsSystem) Config() config.PhysicsConfig {
	return ps.config
}

// SetConfig replaces the tuning values; it takes effect on the next update.
func (ps *PhysicsSystem) SetConfig(cfg config.PhysicsConfig) {
	ps.config = cfg
}

func (ps *PhysicsSystem) Paused() bool {
	return ps.paused
}

func (ps *PhysicsSystem) TogglePause() {
	ps.paused = !ps.paused
}

// Update advances the world by dt seconds.
func (ps *PhysicsSystem) Update(world *scene.World, dt float32) {
	if ps.paused || dt <= 0 || world.Len() == 0 {
		return
	}
	substeps := ps.config.Substeps
	if substeps < 1 {
		substeps = 1
	}
	step := dt / float32(substeps)

	ps.bodies = ps.bodies[:0]
	world.Each(func(e *scene.Entity) { ps.bodies = append(ps.bodies, e) })

	for i := 0; i < substeps; i++ {
		ps.step(step)
	}
}

func (ps *PhysicsSystem) step(dt float32) {
	bodies := ps.bodies
	if cap(ps.accelerations) < len(bodies) {
		ps.accelerations = make([]mgl32.Vec2, len(bodies))
	}
	acc := ps.accelerations[:len(bodies)]

	uniform := mgl32.Vec2{ps.config.Gravity[0], ps.config.Gravity[1]}
	for i, b := range bodies {
		acc[i] = uniform.Add(b.Gravity.Force)
	}

	g := ps.config.GravitationalConstant
	if g != 0 {
		for i := 0; i < len(bodies); i++ {
			for j := i + 1; j < len(bodies); j++ {
				force, ok := attraction(bodies[i], bodies[j], g, ps.config.Softening)
				if !ok {
					continue
				}
				acc[i] = acc[i].Add(force.Mul(1 / bodies[i].Body.Mass))
				acc[j] = acc[j].Sub(force.Mul(1 / bodies[j].Body.Mass))
			}
		}
	}

	for i, b := range bodies {
		b.Transform.Translation = b.Transform.Translation.Add(b.Body.Velocity.Mul(dt))
		b.Body.Velocity = b.Body.Velocity.Add(acc[i].Mul(dt))
	}

	if ps.config.Collisions {
		circles := bodies[:0:0]
		for _, b := range bodies {
			if b.Archetype == scene.ArchetypeCircle {
				circles = append(circles, b)
			}
		}
		for i := 0; i < len(circles); i++ {
			for j := i + 1; j < len(circles); j++ {
				collide(circles[i], circles[j])
			}
		}
	}
}

// attraction returns the force a feels towards b: G*ma*mb*dir / (|r|^2 + softening).
// It reports false for coincident bodies, which have no direction.
func attraction(a, b *scene.Entity, g, softening float32) (mgl32.Vec2, bool) {
	offset := b.Transform.Translation.Sub(a.Transform.Translation)
	distSq := offset.Dot(offset)
	if distSq == 0 {
		return mgl32.Vec2{}, false
	}
	dir := offset.Normalize()
	magnitude := g * a.Body.Mass * b.Body.Mass / (distSq + softening)
	return dir.Mul(magnitude), true
}

// collide resolves an overlap between two circles with an elastic impulse
// along the contact normal and pushes them apart so they no longer overlap.
func collide(a, b *scene.Entity) {
	offset := b.Transform.Translation.Sub(a.Transform.Translation)
	dist := offset.Len()
	reach := a.Radius() + b.Radius()
	if dist >= reach || dist == 0 {
		return
	}
	normal := offset.Mul(1 / dist)
	ma, mb := a.Body.Mass, b.Body.Mass

	// Separating bodies are left alone so a pair doesn't stick together.
	approach := a.Body.Velocity.Sub(b.Body.Velocity).Dot(normal)
	if approach > 0 {
		va := a.Body.Velocity.Dot(normal)
		vb := b.Body.Velocity.Dot(normal)
		newVa := (va*(ma-mb) + 2*mb*vb) / (ma + mb)
		newVb := (vb*(mb-ma) + 2*ma*va) / (ma + mb)
		a.Body.Velocity = a.Body.Velocity.Add(normal.Mul(newVa - va))
		b.Body.Velocity = b.Body.Velocity.Add(normal.Mul(newVb - vb))
	}

	overlap := reach - dist
	total := ma + mb
	a.Transform.Translation = a.Transform.Translation.Sub(normal.Mul(overlap * mb / total))
	b.Transform.Translation = b.Transform.Translation.Add(normal.Mul(overlap * ma / total))
}
