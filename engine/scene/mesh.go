package scene

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vulkanmc/engine/math"
)

// Vertex matches the vertex input of the simple pipeline: a vec2 position at
// location 0 followed by a vec3 color at location 1.
type Vertex struct {
	Position mgl32.Vec2
	Color    mgl32.Vec3
}

const (
	VertexStride         = uint32(unsafe.Sizeof(Vertex{}))
	VertexPositionOffset = uint32(unsafe.Offsetof(Vertex{}.Position))
	VertexColorOffset    = uint32(unsafe.Offsetof(Vertex{}.Color))
)

var white = mgl32.Vec3{1, 1, 1}

// MeshKey identifies the vertex list an entity draws with. Entities that share
// a key share one uploaded model.
func MeshKey(archetype Archetype, shape Shape) string {
	switch archetype {
	case ArchetypeCircle:
		return fmt.Sprintf("circle/%g/%d", shape.Radius, shape.Segments)
	case ArchetypeRect:
		return fmt.Sprintf("rect/%g/%g", shape.Length, shape.Width)
	default:
		return fmt.Sprintf("unknown/%d", archetype)
	}
}

// BuildMesh returns the triangle list for an archetype's shape.
func BuildMesh(archetype Archetype, shape Shape) ([]Vertex, error) {
	switch archetype {
	case ArchetypeCircle:
		return CircleMesh(shape.Radius, shape.Segments)
	case ArchetypeRect:
		return RectMesh(shape.Length, shape.Width)
	default:
		return nil, errors.Newf("no mesh for archetype %d", archetype)
	}
}

// CircleMesh builds a triangle fan as a list: one triangle per segment made of
// two neighbouring rim points and the centre.
func CircleMesh(radius float32, segments int) ([]Vertex, error) {
	if segments < 3 {
		return nil, errors.Newf("a circle needs at least 3 segments, got %d", segments)
	}
	if radius <= 0 {
		return nil, errors.Newf("circle radius must be positive, got %f", radius)
	}
	rim := make([]mgl32.Vec2, segments)
	for i := range rim {
		angle := float32(i) * math.K_PI_2 / float32(segments)
		rim[i] = mgl32.Vec2{radius * math.Cos(angle), radius * math.Sin(angle)}
	}
	vertices := make([]Vertex, 0, 3*segments)
	for i := 0; i < segments; i++ {
		vertices = append(vertices,
			Vertex{Position: rim[i], Color: white},
			Vertex{Position: rim[(i+1)%segments], Color: white},
			Vertex{Position: mgl32.Vec2{0, 0}, Color: white},
		)
	}
	return vertices, nil
}

// RectMesh builds two triangles spanning +-width on x and +-length on y.
func RectMesh(length, width float32) ([]Vertex, error) {
	if length <= 0 || width <= 0 {
		return nil, errors.Newf("rect dimensions must be positive, got %fx%f", length, width)
	}
	l, w := length, width
	return []Vertex{
		{Position: mgl32.Vec2{-w, l}, Color: white},
		{Position: mgl32.Vec2{-w, -l}, Color: white},
		{Position: mgl32.Vec2{w, l}, Color: white},
		{Position: mgl32.Vec2{w, l}, Color: white},
		{Position: mgl32.Vec2{-w, -l}, Color: white},
		{Position: mgl32.Vec2{w, -l}, Color: white},
	}, nil
}

// VertexBytes views the vertex list as raw bytes for upload. The result
// aliases vertices.
func VertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(VertexStride))
}
