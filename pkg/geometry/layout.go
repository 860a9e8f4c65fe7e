// pkg/geometry/layout.go
package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Primitive tells a renderer how to assemble a range of points.
type Primitive int

const (
	// TriangleFan draws every point after the first as a fan around it.
	TriangleFan Primitive = iota
	// LineStrip connects consecutive points.
	LineStrip
)

func (p Primitive) String() string {
	switch p {
	case TriangleFan:
		return "triangle_fan"
	case LineStrip:
		return "line_strip"
	default:
		return "unknown"
	}
}

// Range is a contiguous region of the shared buffer holding one shape.
type Range struct {
	Offset int
	Count  int
	Kind   Primitive
}

// End returns the index one past the last vertex of the range.
func (r Range) End() int {
	return r.Offset + r.Count
}

// Layout is the offset contract between the mesh builders and the
// renderers. Shapes are packed back to back in the order cone, divider,
// sphere.
type Layout struct {
	ConeSegments int
	ConeHeight   float64
	ConeRadius   float64
	SphereRadius float64

	Cone    Range
	Divider Range
	Sphere  Range
}

// DefaultLayout returns the craft cone (10 segments, height 10, radius 5),
// the viewport divider line and a radius 5 unit sphere.
func DefaultLayout() Layout {
	return NewLayout(10, 10, 5, 5)
}

// NewLayout computes the offsets for a cone with the given segment count
// followed by the two point divider and one sphere.
func NewLayout(coneSegments int, coneHeight, coneRadius, sphereRadius float64) Layout {
	cone := Range{Offset: 0, Count: ConeVertexCount(coneSegments), Kind: TriangleFan}
	divider := Range{Offset: cone.End(), Count: 2, Kind: LineStrip}
	sphere := Range{Offset: divider.End(), Count: SphereVertexCount, Kind: TriangleFan}
	return Layout{
		ConeSegments: coneSegments,
		ConeHeight:   coneHeight,
		ConeRadius:   coneRadius,
		SphereRadius: sphereRadius,
		Cone:         cone,
		Divider:      divider,
		Sphere:       sphere,
	}
}

// Size is the number of vertices the layout needs.
func (l Layout) Size() int {
	return l.Sphere.End()
}

// Build allocates the shared buffer, writes every shape at its offset and
// freezes the result.
func Build(l Layout) *Buffer {
	buf := NewBuffer(l.Size())

	// The cone points up +Y with its apex at the top; the craft model
	// rotates it to face down -Z.
	BuildCone(buf, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, l.ConeHeight, 0},
		l.ConeHeight, l.ConeRadius, l.ConeSegments, l.Cone.Offset)

	buf.Set(l.Divider.Offset, mgl64.Vec3{0, -5, -6})
	buf.Set(l.Divider.Offset+1, mgl64.Vec3{0, 5, -6})

	BuildSphere(buf, l.SphereRadius, mgl64.Vec3{}, l.Sphere.Offset)

	buf.Freeze()
	return buf
}
