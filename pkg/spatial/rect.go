// pkg/spatial/rect.go
package spatial

import (
	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// Rect represents an axis-aligned rectangle in the X–Z plane
type Rect struct {
	Center physics.Vec2
	Width  float64
	Height float64 // extent along Z
}

// RectFromBounds builds a rectangle from its min and max corners.
func RectFromBounds(min, max physics.Vec2) Rect {
	return Rect{
		Center: physics.Vec2{X: (min.X + max.X) / 2, Z: (min.Z + max.Z) / 2},
		Width:  max.X - min.X,
		Height: max.Z - min.Z,
	}
}

// Min returns the corner with the smallest coordinates
func (r Rect) Min() physics.Vec2 {
	return physics.Vec2{X: r.Center.X - r.Width/2, Z: r.Center.Z - r.Height/2}
}

// Max returns the corner with the largest coordinates
func (r Rect) Max() physics.Vec2 {
	return physics.Vec2{X: r.Center.X + r.Width/2, Z: r.Center.Z + r.Height/2}
}

// Contains reports whether point lies inside the closed rectangle.
func (r Rect) Contains(point physics.Vec2) bool {
	min, max := r.Min(), r.Max()
	return point.X >= min.X && point.X <= max.X &&
		point.Z >= min.Z && point.Z <= max.Z
}

// ContainsCircle reports whether the whole disc fits inside the rectangle.
func (r Rect) ContainsCircle(center physics.Vec2, radius float64) bool {
	min, max := r.Min(), r.Max()
	return center.X-radius >= min.X && center.X+radius <= max.X &&
		center.Z-radius >= min.Z && center.Z+radius <= max.Z
}

// Intersects reports whether two rectangles overlap or touch.
func (r Rect) Intersects(other Rect) bool {
	rMin, rMax := r.Min(), r.Max()
	oMin, oMax := other.Min(), other.Max()
	return !(oMin.X > rMax.X || oMax.X < rMin.X ||
		oMin.Z > rMax.Z || oMax.Z < rMin.Z)
}

// IntersectsCircle reports whether a disc overlaps the rectangle.
func (r Rect) IntersectsCircle(center physics.Vec2, radius float64) bool {
	return physics.CircleIntersectsRect(center, radius, r.Min(), r.Max())
}

// Corners returns the four corners counter-clockwise from Min.
func (r Rect) Corners() [4]physics.Vec2 {
	min, max := r.Min(), r.Max()
	return [4]physics.Vec2{
		min,
		{X: max.X, Z: min.Z},
		max,
		{X: min.X, Z: max.Z},
	}
}

// Quadrants splits the rectangle into four equal children. Together they
// cover the parent exactly.
func (r Rect) Quadrants() [4]Rect {
	x, z := r.Center.X, r.Center.Z
	w, h := r.Width/2, r.Height/2

	return [4]Rect{
		{Center: physics.Vec2{X: x - w/2, Z: z - h/2}, Width: w, Height: h}, // north-west (far left)
		{Center: physics.Vec2{X: x + w/2, Z: z - h/2}, Width: w, Height: h}, // north-east
		{Center: physics.Vec2{X: x - w/2, Z: z + h/2}, Width: w, Height: h}, // south-west
		{Center: physics.Vec2{X: x + w/2, Z: z + h/2}, Width: w, Height: h}, // south-east
	}
}

// WorldBounds returns the tightest rectangle around every obstacle centre,
// grown by the largest radius so no bounding circle leaves it. An empty
// set yields the zero rectangle at the origin.
func WorldBounds(obstacles []*entity.Obstacle) Rect {
	var (
		min, max  physics.Vec2
		maxRadius float64
		seen      bool
	)
	for _, o := range obstacles {
		if !o.Occupied() {
			continue
		}
		p := o.Planar()
		if !seen {
			min, max, seen = p, p, true
		}
		min.X, min.Z = minf(min.X, p.X), minf(min.Z, p.Z)
		max.X, max.Z = maxf(max.X, p.X), maxf(max.Z, p.Z)
		maxRadius = maxf(maxRadius, o.Radius)
	}
	if !seen {
		return Rect{}
	}
	margin := physics.Vec2{X: maxRadius, Z: maxRadius}
	return RectFromBounds(min.Sub(margin), max.Add(margin))
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
