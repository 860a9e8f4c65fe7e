// pkg/physics/collision.go
package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is a bounding sphere used as a conservative collision envelope.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Intersects reports whether two spheres touch or overlap.
func (s Sphere) Intersects(other Sphere) bool {
	return SpheresIntersect(s.Center, s.Radius, other.Center, other.Radius)
}

// SpheresIntersect compares the squared centre distance with the squared sum
// of the radii. Touching spheres count as intersecting, and so do
// coincident ones.
func SpheresIntersect(c1 mgl64.Vec3, r1 float64, c2 mgl64.Vec3, r2 float64) bool {
	d := c1.Sub(c2)
	sum := r1 + r2
	return d.Dot(d) <= sum*sum
}

// Collider is anything that can be tested against the craft's bounding sphere.
// A zero radius marks an empty slot and is never reported as a hit.
type Collider interface {
	BoundingSphere() Sphere
}

// CraftSphere returns the craft's bounding sphere when its base sits at pos
// facing heading (degrees). The centre sits offset units forward of the base
// because the cone extends ahead of it.
func CraftSphere(pos Vec2, heading, offset, radius float64) Sphere {
	center := pos.Add(Heading(heading).Scale(offset))
	return Sphere{Center: center.Vec3(0), Radius: radius}
}

// CheckCraftCollision tests the craft sphere against each candidate and stops
// at the first intersection.
func CheckCraftCollision[C Collider](craft Sphere, candidates []C) bool {
	for _, c := range candidates {
		s := c.BoundingSphere()
		if s.Radius <= 0 {
			continue
		}
		if craft.Intersects(s) {
			return true
		}
	}
	return false
}

// CircleIntersectsRect reports whether a disc overlaps an axis-aligned
// rectangle given by its min and max corners.
func CircleIntersectsRect(center Vec2, radius float64, min, max Vec2) bool {
	closest := Vec2{
		X: clamp(center.X, min.X, max.X),
		Z: clamp(center.Z, min.Z, max.Z),
	}
	return center.Sub(closest).LengthSquared() <= radius*radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
