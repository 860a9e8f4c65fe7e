// Package camera builds the view and projection transforms for the two
// viewports: a fixed overview camera and a chase camera carried by the craft.
package camera

import (
	"github.com/go-gl/mathgl/mgl64"
)

// degenerateEpsilon is the length below which a basis vector is treated as
// zero.
const degenerateEpsilon = 1e-9

var (
	// FallbackForward replaces the view direction when eye and target coincide.
	FallbackForward = mgl64.Vec3{0, 0, -1}

	// FallbackUp is tried first when the view direction is parallel to up.
	FallbackUp = mgl64.Vec3{0, 0, -1}

	// SecondaryFallbackUp is used when FallbackUp is parallel as well.
	SecondaryFallbackUp = mgl64.Vec3{1, 0, 0}
)

// View is a world-to-camera transform together with the basis it was built
// from.
type View struct {
	Matrix  mgl64.Mat4
	Eye     mgl64.Vec3
	Side    mgl64.Vec3
	Up      mgl64.Vec3
	Forward mgl64.Vec3

	// Degenerate is set when a fallback axis had to be substituted.
	Degenerate bool
}

// LookAt places a camera at eye looking at target. The rows of the rotation
// are side, the recomputed up and -forward, followed by a translation by
// -eye, so the target ends up on the camera's -Z axis.
//
// If eye equals target the camera looks down FallbackForward. If the view
// direction is parallel to up, FallbackUp and then SecondaryFallbackUp are
// used instead. Both cases set Degenerate; LookAt never panics and never
// returns NaNs.
func LookAt(eye, target, up mgl64.Vec3) View {
	v := View{Eye: eye}

	forward := target.Sub(eye)
	if forward.Len() < degenerateEpsilon {
		forward = FallbackForward
		v.Degenerate = true
	}
	forward = forward.Normalize()

	side := forward.Cross(up)
	for _, alt := range []mgl64.Vec3{FallbackUp, SecondaryFallbackUp} {
		if side.Len() >= degenerateEpsilon {
			break
		}
		side = forward.Cross(alt)
		v.Degenerate = true
	}
	side = side.Normalize()
	trueUp := side.Cross(forward)

	rotation := mgl64.Mat4{
		side.X(), trueUp.X(), -forward.X(), 0,
		side.Y(), trueUp.Y(), -forward.Y(), 0,
		side.Z(), trueUp.Z(), -forward.Z(), 0,
		0, 0, 0, 1,
	}

	v.Matrix = rotation.Mul4(mgl64.Translate3D(-eye.X(), -eye.Y(), -eye.Z()))
	v.Side = side
	v.Up = trueUp
	v.Forward = forward
	return v
}

// Apply transforms a world-space point into camera space.
func (v View) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, v.Matrix)
}

// Identity is the view used for screen-fixed overlays such as the divider.
func Identity() View {
	return View{
		Matrix:  mgl64.Ident4(),
		Side:    mgl64.Vec3{1, 0, 0},
		Up:      mgl64.Vec3{0, 1, 0},
		Forward: mgl64.Vec3{0, 0, -1},
	}
}
