package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vulkanmc/engine/core"
)

type EntityID uint32

type Archetype int

const (
	ArchetypeCircle Archetype = iota
	ArchetypeRect
)

// Archetypes lists every archetype in the order systems process them.
var Archetypes = []Archetype{ArchetypeCircle, ArchetypeRect}

func (a Archetype) String() string {
	switch a {
	case ArchetypeCircle:
		return "circle"
	case ArchetypeRect:
		return "rect"
	default:
		return "unknown"
	}
}

// Entity carries every component. Which fields are meaningful depends on the
// archetype; both current archetypes use all of them.
type Entity struct {
	ID        EntityID
	Archetype Archetype
	Transform Transform2D
	Body      RigidBody2D
	Gravity   Gravity
	Color     Color
	Shape     Shape
}

// Radius is the bounding radius after scaling.
func (e *Entity) Radius() float32 {
	switch e.Archetype {
	case ArchetypeCircle:
		return e.Shape.Radius * e.Transform.Scale.X()
	default:
		l := e.Shape.Length * e.Transform.Scale.Y()
		w := e.Shape.Width * e.Transform.Scale.X()
		if l > w {
			return l
		}
		return w
	}
}

// World stores entities grouped by archetype. Insertion order within an
// archetype is preserved so iteration is deterministic.
type World struct {
	ids   *core.IdentifierPool
	views map[Archetype][]*Entity
	byID  map[EntityID]*Entity
}

func NewWorld() *World {
	w := &World{
		ids:   core.NewIdentifierPool(64),
		views: make(map[Archetype][]*Entity, len(Archetypes)),
		byID:  make(map[EntityID]*Entity),
	}
	for _, a := range Archetypes {
		w.views[a] = nil
	}
	return w
}

// Spawn adds an entity of the given archetype and returns it with its id set.
func (w *World) Spawn(archetype Archetype, transform Transform2D, body RigidBody2D, color Color, shape Shape) (*Entity, error) {
	if _, ok := w.views[archetype]; !ok {
		return nil, errors.Newf("unknown archetype %d", archetype)
	}
	if body.Mass <= 0 {
		return nil, errors.Newf("entity mass must be positive, got %f", body.Mass)
	}
	e := &Entity{
		Archetype: archetype,
		Transform: transform,
		Body:      body,
		Color:     color,
		Shape:     shape,
	}
	e.ID = EntityID(w.ids.Acquire(e))
	w.views[archetype] = append(w.views[archetype], e)
	w.byID[e.ID] = e
	return e, nil
}

func (w *World) Despawn(id EntityID) error {
	e, ok := w.byID[id]
	if !ok {
		return errors.Newf("entity %d does not exist", id)
	}
	view := w.views[e.Archetype]
	for i, candidate := range view {
		if candidate == e {
			w.views[e.Archetype] = append(view[:i], view[i+1:]...)
			break
		}
	}
	delete(w.byID, id)
	return w.ids.Release(uint32(id))
}

func (w *World) Get(id EntityID) (*Entity, bool) {
	e, ok := w.byID[id]
	return e, ok
}

// View returns the live entities of one archetype. The slice must not be
// modified by the caller.
func (w *World) View(archetype Archetype) []*Entity {
	return w.views[archetype]
}

// Each visits every entity, archetype by archetype in Archetypes order.
func (w *World) Each(fn func(e *Entity)) {
	for _, a := range Archetypes {
		for _, e := range w.views[a] {
			fn(e)
		}
	}
}

// All collects the entities in Each order.
func (w *World) All() []*Entity {
	all := make([]*Entity, 0, len(w.byID))
	w.Each(func(e *Entity) { all = append(all, e) })
	return all
}

func (w *World) Len() int {
	return len(w.byID)
}
