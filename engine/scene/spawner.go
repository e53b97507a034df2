package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/math"
)

const (
	spawnExtent   = 0.8
	maxSpawnSpeed = 0.05
	minScale      = 0.6
	maxScale      = 1.4
)

// Populate fills the world with the circles and rects described by cfg. The
// same seed always produces the same scene.
func Populate(world *World, cfg config.SceneConfig) error {
	rng := math.NewRandom(cfg.Seed)

	spawn := func(archetype Archetype, shape Shape) error {
		scale := math.RandomInRange(rng, minScale, maxScale)
		transform := NewTransform2D(mgl32.Vec2{
			math.RandomInRange(rng, -spawnExtent, spawnExtent),
			math.RandomInRange(rng, -spawnExtent, spawnExtent),
		})
		transform.Scale = mgl32.Vec2{scale, scale}
		body := RigidBody2D{
			Velocity: mgl32.Vec2{
				math.RandomInRange(rng, -maxSpawnSpeed, maxSpawnSpeed),
				math.RandomInRange(rng, -maxSpawnSpeed, maxSpawnSpeed),
			},
			// Mass follows area.
			Mass: scale * scale,
		}
		color := Color{
			math.RandomInRange(rng, 0.2, 1),
			math.RandomInRange(rng, 0.2, 1),
			math.RandomInRange(rng, 0.2, 1),
		}
		_, err := world.Spawn(archetype, transform, body, color, shape)
		return err
	}

	circle := Shape{Radius: cfg.CircleRadius, Segments: cfg.CircleSegments}
	for i := 0; i < cfg.Circles; i++ {
		if err := spawn(ArchetypeCircle, circle); err != nil {
			return err
		}
	}
	rect := Shape{Length: cfg.RectLength, Width: cfg.RectWidth}
	for i := 0; i < cfg.Rects; i++ {
		if err := spawn(ArchetypeRect, rect); err != nil {
			return err
		}
	}
	core.LogInfo("scene populated: %d circles, %d rects (seed %d)", cfg.Circles, cfg.Rects, cfg.Seed)
	return nil
}
