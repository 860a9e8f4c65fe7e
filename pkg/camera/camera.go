package camera

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// Chase camera placement, in units ahead of the craft's base.
const (
	ChaseEyeDistance    = 10
	ChaseTargetDistance = 11
)

var (
	// FixedEye and FixedTarget place the overview camera above and behind
	// the craft's start position.
	FixedEye    = mgl64.Vec3{0, 10, 20}
	FixedTarget = mgl64.Vec3{0, 0, 0}

	// WorldUp is the up vector both cameras use.
	WorldUp = mgl64.Vec3{0, 1, 0}
)

// Fixed returns the overview camera for the left viewport.
func Fixed() View {
	return LookAt(FixedEye, FixedTarget, WorldUp)
}

// ChaseEye returns the planar position of the chase camera for a craft at
// pos facing heading (degrees). It sits at the tip of the cone.
func ChaseEye(pos physics.Vec2, heading float64) physics.Vec2 {
	return pos.Add(physics.Heading(heading).Scale(ChaseEyeDistance))
}

// Chase returns the camera carried by the craft for the right viewport,
// looking along the craft's heading.
func Chase(pos physics.Vec2, heading float64) View {
	eye := ChaseEye(pos, heading)
	target := pos.Add(physics.Heading(heading).Scale(ChaseTargetDistance))
	return LookAt(eye.Vec3(0), target.Vec3(0), WorldUp)
}

// Projection is a perspective frustum given by its near-plane extents and
// clip distances, as for glFrustum.
type Projection struct {
	Left, Right float64
	Bottom, Top float64
	Near, Far   float64
}

// DefaultProjection returns a symmetric frustum 10 units wide at near 5 with
// the far plane at 250.
func DefaultProjection() Projection {
	return NewProjection(5, 5, 250)
}

// NewProjection builds a symmetric frustum with the given half extent at the
// near plane.
func NewProjection(halfExtent, near, far float64) Projection {
	return Projection{
		Left: -halfExtent, Right: halfExtent,
		Bottom: -halfExtent, Top: halfExtent,
		Near: near, Far: far,
	}
}

// Matrix returns the perspective projection matrix.
func (p Projection) Matrix() mgl64.Mat4 {
	return mgl64.Frustum(p.Left, p.Right, p.Bottom, p.Top, p.Near, p.Far)
}

// Slope returns the horizontal half-width gained per unit of depth.
func (p Projection) Slope() float64 {
	return (p.Right - p.Left) / 2 / p.Near
}
