// pkg/geometry/mesh.go
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// SphereStep is the angular step, in degrees, of both sphere angle loops.
	SphereStep = 30

	// SphereHemisphereVertexCount is the number of points in one hemisphere:
	// (90/step) latitude bands by (360/step) longitudes, four points per quad.
	SphereHemisphereVertexCount = (90 / SphereStep) * (360 / SphereStep) * 4

	// SphereVertexCount is the number of points BuildSphere writes.
	SphereVertexCount = 2 * SphereHemisphereVertexCount
)

// ConeVertexCount returns the number of points BuildCone writes for the
// given number of ring segments: the apex, the ring, and the repeated first
// ring point that closes the fan.
func ConeVertexCount(segments int) int {
	return segments + 2
}

// BuildCone writes a triangle-fan cone into buf starting at offset. The apex
// comes first, followed by segments points around the base circle and the
// first ring point again. The base circle lies height units behind apex
// along direction. It returns the number of points written.
func BuildCone(buf *Buffer, direction, apex mgl64.Vec3, height, radius float64, segments, offset int) int {
	count := ConeVertexCount(segments)
	dst := buf.Reserve(offset, count)

	d := direction.Normalize()
	center := apex.Sub(d.Mul(height))
	e0 := d.Cross(leastAlignedAxis(d)).Normalize()
	e1 := e0.Cross(d)

	dst[0] = vec32(apex)
	step := 2 * math.Pi / float64(segments)
	for i := 0; i < segments; i++ {
		sin, cos := math.Sincos(step * float64(i))
		p := center.Add(e0.Mul(cos).Add(e1.Mul(sin)).Mul(radius))
		dst[i+1] = vec32(p)
	}
	dst[count-1] = dst[1]
	return count
}

// leastAlignedAxis picks the cardinal axis with the smallest absolute
// component of v. Ties go to the earlier axis in X, Y, Z order.
func leastAlignedAxis(v mgl64.Vec3) mgl64.Vec3 {
	axis := mgl64.Vec3{1, 0, 0}
	least := math.Abs(v.X())
	if math.Abs(v.Y()) < least {
		least = math.Abs(v.Y())
		axis = mgl64.Vec3{0, 1, 0}
	}
	if math.Abs(v.Z()) < least {
		axis = mgl64.Vec3{0, 0, 1}
	}
	return axis
}

// BuildSphere writes SphereVertexCount points of a latitude/longitude sphere
// around center into buf starting at offset: the front (+Z) hemisphere
// first, then the back one. Each step of the inner loop emits the four
// corners of one patch. It returns the number of points written.
func BuildSphere(buf *Buffer, radius float64, center mgl64.Vec3, offset int) int {
	dst := buf.Reserve(offset, SphereVertexCount)

	n := 0
	for _, side := range [2]float64{1, -1} {
		for b := 0; b < 90; b += SphereStep {
			for a := 0; a < 360; a += SphereStep {
				for _, corner := range [4][2]int{{a, b}, {a, b + SphereStep}, {a + SphereStep, b}, {a + SphereStep, b + SphereStep}} {
					dst[n] = vec32(spherePoint(radius, center, corner[0], corner[1], side))
					n++
				}
			}
		}
	}
	return n
}

func spherePoint(radius float64, center mgl64.Vec3, a, b int, side float64) mgl64.Vec3 {
	sinA, cosA := math.Sincos(mgl64.DegToRad(float64(a)))
	sinB, cosB := math.Sincos(mgl64.DegToRad(float64(b)))
	return mgl64.Vec3{
		radius*sinA*sinB + center.X(),
		radius*cosA*sinB + center.Y(),
		side*radius*cosB + center.Z(),
	}
}
