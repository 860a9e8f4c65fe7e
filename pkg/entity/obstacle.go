// pkg/entity/obstacle.go
package entity

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// ID identifies an obstacle slot. It equals the slot's row-major index.
type ID uint32

// Obstacle is a fixed spherical rock in the field. A zero radius marks an
// empty slot.
type Obstacle struct {
	ID       ID
	Position mgl64.Vec3
	Radius   float64
	Color    color.RGBA
}

// Occupied reports whether an obstacle actually sits in the slot.
func (o *Obstacle) Occupied() bool {
	return o.Radius > 0
}

// GetID returns the obstacle's slot identifier
func (o *Obstacle) GetID() ID {
	return o.ID
}

// Planar returns the obstacle centre projected onto the X–Z plane.
func (o *Obstacle) Planar() physics.Vec2 {
	return physics.Planar(o.Position)
}

// BoundingSphere implements physics.Collider.
func (o *Obstacle) BoundingSphere() physics.Sphere {
	return physics.Sphere{Center: o.Position, Radius: o.Radius}
}
