// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is a point or direction in the horizontal X–Z plane of the world.
// Every obstacle and the craft live at Y = 0, so the plane is all the
// spatial index and the movement code need.
type Vec2 struct {
	X float64
	Z float64
}

// Add returns the sum of two vectors
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Z: v.Z + other.Z}
}

// Sub returns the difference between two vectors
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Z: v.Z - other.Z}
}

// Scale multiplies the vector by a scalar value
func (v Vec2) Scale(factor float64) Vec2 {
	return Vec2{X: v.X * factor, Z: v.Z * factor}
}

// Dot returns the dot product of two vectors
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Z*other.Z
}

// Length returns the magnitude of the vector
func (v Vec2) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

// LengthSquared returns magnitude squared (optimization for comparisons)
func (v Vec2) LengthSquared() float64 {
	return v.X*v.X + v.Z*v.Z
}

// Normalize returns a unit vector in the same direction
func (v Vec2) Normalize() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Z: v.Z / length}
}

// Distance returns the distance between two points
func (v Vec2) Distance(other Vec2) float64 {
	return v.Sub(other).Length()
}

// Perp returns the vector rotated a quarter turn; used for edge normals.
func (v Vec2) Perp() Vec2 {
	return Vec2{X: -v.Z, Z: v.X}
}

// Rotate turns the vector by the given angle in degrees, with the same
// handedness as a rotation about +Y (positive angles turn -Z towards -X).
func (v Vec2) Rotate(degrees float64) Vec2 {
	rad := mgl64.DegToRad(degrees)
	sin, cos := math.Sincos(rad)
	return Vec2{
		X: v.X*cos + v.Z*sin,
		Z: -v.X*sin + v.Z*cos,
	}
}

// Vec3 lifts the planar vector into world space at the given height.
func (v Vec2) Vec3(y float64) mgl64.Vec3 {
	return mgl64.Vec3{v.X, y, v.Z}
}

// Planar drops the Y component of a world-space point.
func Planar(p mgl64.Vec3) Vec2 {
	return Vec2{X: p.X(), Z: p.Z()}
}

// Heading returns the unit direction a craft faces at the given heading.
// Heading 0 points down -Z; headings grow counter-clockwise seen from above.
func Heading(degrees float64) Vec2 {
	sin, cos := math.Sincos(mgl64.DegToRad(degrees))
	return Vec2{X: -sin, Z: -cos}
}

// WrapDegrees brings an angle that is at most one turn out of range back
// into [0, 360).
func WrapDegrees(degrees float64) float64 {
	switch {
	case degrees >= 360:
		degrees -= 360
	case degrees < 0:
		degrees += 360
		// -1e-17 + 360 rounds to exactly 360.
		if degrees >= 360 {
			degrees = 0
		}
	}
	return degrees
}
