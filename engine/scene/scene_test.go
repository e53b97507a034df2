package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vulkanmc/engine/config"
	"github.com/spaghettifunk/vulkanmc/engine/math"
)

func near(got, want mgl32.Vec2) bool {
	return mgl32.Abs(got.X()-want.X()) <= 1e-5 && mgl32.Abs(got.Y()-want.Y()) <= 1e-5
}

func TestTransformMat2(t *testing.T) {
	tr := NewTransform2D(mgl32.Vec2{0.5, 0})
	tr.Scale = mgl32.Vec2{2, 3}
	tr.Rotation = math.K_PI / 2

	// Scale first, then a quarter turn counter-clockwise.
	got := tr.Mat2().Mul2x1(mgl32.Vec2{1, 0})
	if !near(got, mgl32.Vec2{0, 2}) {
		t.Errorf("x axis maps to %v", got)
	}
	got = tr.Mat2().Mul2x1(mgl32.Vec2{0, 1})
	if !near(got, mgl32.Vec2{-3, 0}) {
		t.Errorf("y axis maps to %v", got)
	}
}

func TestWorldViewsFollowArchetypeOrder(t *testing.T) {
	w := NewWorld()
	body := RigidBody2D{Mass: 1}
	rect, err := w.Spawn(ArchetypeRect, NewTransform2D(mgl32.Vec2{}), body, Color{}, Shape{Length: 1, Width: 1})
	if err != nil {
		t.Fatal(err)
	}
	c1, _ := w.Spawn(ArchetypeCircle, NewTransform2D(mgl32.Vec2{}), body, Color{}, Shape{Radius: 1, Segments: 3})
	c2, _ := w.Spawn(ArchetypeCircle, NewTransform2D(mgl32.Vec2{}), body, Color{}, Shape{Radius: 1, Segments: 3})

	var order []EntityID
	w.Each(func(e *Entity) { order = append(order, e.ID) })
	want := []EntityID{c1.ID, c2.ID, rect.ID}
	if len(order) != len(want) {
		t.Fatalf("visited %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visited %v, want %v", order, want)
		}
	}

	if err := w.Despawn(c1.ID); err != nil {
		t.Fatal(err)
	}
	if err := w.Despawn(c1.ID); err == nil {
		t.Error("double despawn should fail")
	}
	if w.Len() != 2 || len(w.View(ArchetypeCircle)) != 1 {
		t.Errorf("len = %d, circles = %d", w.Len(), len(w.View(ArchetypeCircle)))
	}
	c3, _ := w.Spawn(ArchetypeCircle, NewTransform2D(mgl32.Vec2{}), body, Color{}, Shape{Radius: 1, Segments: 3})
	if c3.ID != c1.ID {
		t.Errorf("released id %d not reused, got %d", c1.ID, c3.ID)
	}
}

func TestWorldRejectsInvalidEntities(t *testing.T) {
	w := NewWorld()
	if _, err := w.Spawn(Archetype(42), NewTransform2D(mgl32.Vec2{}), RigidBody2D{Mass: 1}, Color{}, Shape{}); err == nil {
		t.Error("unknown archetype accepted")
	}
	if _, err := w.Spawn(ArchetypeCircle, NewTransform2D(mgl32.Vec2{}), RigidBody2D{}, Color{}, Shape{}); err == nil {
		t.Error("massless body accepted")
	}
}

func TestCircleMesh(t *testing.T) {
	vertices, err := CircleMesh(0.5, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 24 {
		t.Fatalf("got %d vertices", len(vertices))
	}
	for i := 0; i < len(vertices); i += 3 {
		if vertices[i+2].Position != (mgl32.Vec2{0, 0}) {
			t.Errorf("triangle %d does not end at the centre", i/3)
		}
		if r := vertices[i].Position.Len(); mgl32.Abs(r-0.5) > 1e-5 {
			t.Errorf("rim vertex at radius %f", r)
		}
	}
	// The last triangle closes the loop.
	if vertices[len(vertices)-2].Position != vertices[0].Position {
		t.Error("circle is not closed")
	}

	if _, err := CircleMesh(0.5, 2); err == nil {
		t.Error("two segments accepted")
	}
}

func TestRectMeshAndBytes(t *testing.T) {
	vertices, err := RectMesh(0.2, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 6 {
		t.Fatalf("got %d vertices", len(vertices))
	}
	if VertexStride != 20 || VertexColorOffset != 8 || VertexPositionOffset != 0 {
		t.Fatalf("vertex layout stride=%d color=%d", VertexStride, VertexColorOffset)
	}
	if got := len(VertexBytes(vertices)); got != 120 {
		t.Errorf("vertex bytes = %d", got)
	}
	if VertexBytes(nil) != nil {
		t.Error("empty vertex list should give no bytes")
	}
	if MeshKey(ArchetypeRect, Shape{Length: 0.2, Width: 0.1}) == MeshKey(ArchetypeRect, Shape{Length: 0.1, Width: 0.2}) {
		t.Error("distinct rects share a mesh key")
	}
}

func TestPopulateIsDeterministic(t *testing.T) {
	cfg := config.Default().Scene
	cfg.Circles = 5
	cfg.Rects = 2

	a, b := NewWorld(), NewWorld()
	if err := Populate(a, cfg); err != nil {
		t.Fatal(err)
	}
	if err := Populate(b, cfg); err != nil {
		t.Fatal(err)
	}
	if a.Len() != 7 || len(a.View(ArchetypeRect)) != 2 {
		t.Fatalf("len = %d", a.Len())
	}
	ea, eb := a.All(), b.All()
	for i := range ea {
		if ea[i].Transform != eb[i].Transform || ea[i].Body != eb[i].Body || ea[i].Color != eb[i].Color {
			t.Fatalf("entity %d differs between runs", i)
		}
		if ea[i].Body.Mass <= 0 {
			t.Errorf("entity %d has mass %f", i, ea[i].Body.Mass)
		}
	}
}
