// pkg/spatial/frustum.go
package spatial

import (
	"math"

	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// Frustum is the horizontal footprint of a camera's view volume: a convex
// quadrilateral in the X–Z plane. Height is never culled because every
// obstacle sits at Y = 0.
//
// Corners are ordered around the outline: near-left, far-left, far-right,
// near-right. Either winding works.
type Frustum struct {
	Corners [4]physics.Vec2
}

// NewFrustum builds a frustum from its four corners in outline order.
func NewFrustum(nearLeft, farLeft, farRight, nearRight physics.Vec2) Frustum {
	return Frustum{Corners: [4]physics.Vec2{nearLeft, farLeft, farRight, nearRight}}
}

// FrustumFromPose builds the footprint of a camera at apex looking along
// heading (degrees, see physics.Heading). The near and far edges lie near
// and far units ahead; slope is the half-width gained per unit of depth.
func FrustumFromPose(apex physics.Vec2, heading, near, far, slope float64) Frustum {
	forward := physics.Heading(heading)
	right := physics.Heading(heading - 90)

	edge := func(depth float64, side float64) physics.Vec2 {
		return apex.Add(forward.Scale(depth)).Add(right.Scale(side * depth * slope))
	}
	return NewFrustum(edge(near, -1), edge(far, -1), edge(far, 1), edge(near, 1))
}

// FrustumCovering returns a frustum whose outline is exactly r.
func FrustumCovering(r Rect) Frustum {
	c := r.Corners()
	return NewFrustum(c[0], c[1], c[2], c[3])
}

// Bounds returns the axis-aligned rectangle around the outline.
func (f Frustum) Bounds() Rect {
	min, max := f.Corners[0], f.Corners[0]
	for _, c := range f.Corners[1:] {
		min.X, min.Z = minf(min.X, c.X), minf(min.Z, c.Z)
		max.X, max.Z = maxf(max.X, c.X), maxf(max.Z, c.Z)
	}
	return RectFromBounds(min, max)
}

// IntersectsRect runs a separating-axis test between the rectangle and the
// outline. Touching shapes intersect.
func (f Frustum) IntersectsRect(r Rect) bool {
	rect := r.Corners()

	// The rectangle's own axes reduce to a bounds overlap test.
	if !f.Bounds().Intersects(r) {
		return false
	}
	for i := range f.Corners {
		axis := f.edge(i).Perp()
		fMin, fMax := project(f.Corners[:], axis)
		rMin, rMax := project(rect[:], axis)
		if fMax < rMin || rMax < fMin {
			return false
		}
	}
	return true
}

// IntersectsCircle reports whether a disc overlaps the outline.
func (f Frustum) IntersectsCircle(center physics.Vec2, radius float64) bool {
	if f.Contains(center) {
		return true
	}
	r2 := radius * radius
	for i := range f.Corners {
		if segmentDistanceSquared(center, f.Corners[i], f.Corners[(i+1)%4]) <= r2 {
			return true
		}
	}
	return false
}

// Contains reports whether point lies inside or on the outline.
func (f Frustum) Contains(point physics.Vec2) bool {
	var pos, neg bool
	for i := range f.Corners {
		cross := cross2(f.edge(i), point.Sub(f.Corners[i]))
		pos = pos || cross > 0
		neg = neg || cross < 0
		if pos && neg {
			return false
		}
	}
	return true
}

func (f Frustum) edge(i int) physics.Vec2 {
	return f.Corners[(i+1)%4].Sub(f.Corners[i])
}

func project(points []physics.Vec2, axis physics.Vec2) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range points {
		d := p.Dot(axis)
		lo, hi = minf(lo, d), maxf(hi, d)
	}
	return lo, hi
}

func cross2(a, b physics.Vec2) float64 {
	return a.X*b.Z - a.Z*b.X
}

func segmentDistanceSquared(p, a, b physics.Vec2) float64 {
	ab := b.Sub(a)
	t := 0.0
	if l := ab.LengthSquared(); l > 0 {
		t = p.Sub(a).Dot(ab) / l
		t = maxf(0, minf(1, t))
	}
	return p.Sub(a.Add(ab.Scale(t))).LengthSquared()
}
