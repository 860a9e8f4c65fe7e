// pkg/engine/render.go
package engine

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/camera"
	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
	"github.com/opd-ai/go-spacetravel/pkg/render"
	"github.com/opd-ai/go-spacetravel/pkg/spatial"
)

// Status lines shown in the overview viewport.
const (
	StatusCullingOn  = "Frustum culling on!"
	StatusCullingOff = "Frustum culling off!"
	StatusCrash      = "Cannot - will crash!"
)

var (
	craftColor     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	collisionColor = color.RGBA{R: 0xff, A: 0xff}
	dividerColor   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	// The divider sits at the left edge of the chase viewport's near
	// plane once moved 6 units left.
	dividerModel = mgl64.Translate3D(-6, 0, 0)
)

// Viewports splits a width×height surface into the overview (left) and
// chase (right) halves.
func Viewports(width, height int) (overview, chase render.Viewport) {
	half := width / 2
	overview = render.Viewport{X: 0, Y: 0, Width: half, Height: height}
	chase = render.Viewport{X: half, Y: 0, Width: width - half, Height: height}
	return overview, chase
}

// CraftModel places the cone mesh, which points up +Y, at the craft's base
// facing its heading.
func CraftModel(c CraftState) mgl64.Mat4 {
	return mgl64.Translate3D(c.Position.X, 0, c.Position.Z).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(c.Heading))).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(-90)))
}

// OverviewFrustum is the footprint seen by the fixed camera.
func (w *World) OverviewFrustum() spatial.Frustum {
	eye := physics.Planar(camera.FixedEye)
	p := w.Projection
	return spatial.FrustumFromPose(eye, 0, p.Near, p.Far, p.Slope())
}

// ChaseFrustum is the footprint seen by the camera riding on the craft.
func (w *World) ChaseFrustum(c CraftState) spatial.Frustum {
	p := w.Projection
	return spatial.FrustumFromPose(camera.ChaseEye(c.Position, c.Heading), c.Heading, p.Near, p.Far, p.Slope())
}

// Render draws one frame: the overview camera with the craft on the left,
// the chase camera on the right, and presents it. A renderer implementing
// render.Sizer overrides width and height.
func (s *Simulation) Render(r render.Renderer, width, height int) error {
	if sz, ok := r.(render.Sizer); ok {
		width, height = sz.Size()
	}
	overview, chase := Viewports(width, height)
	projection := s.world.Projection.Matrix()

	r.BeginFrame()

	r.SetViewport(overview, projection, camera.Fixed().Matrix)
	n := s.drawObstacles(r, s.world.OverviewFrustum())
	instrumentVisible(viewportOverview, n)

	r.SetModel(CraftModel(s.state))
	if s.collision {
		r.SetColor(collisionColor)
	} else {
		r.SetColor(craftColor)
	}
	cone := s.world.Layout.Cone
	r.SubmitDrawRange(cone.Offset, cone.Count, cone.Kind)

	if a, ok := r.(render.Annotator); ok {
		a.Annotate(0, s.statusLines()...)
	}

	r.SetViewport(chase, projection, mgl64.Ident4())
	r.SetModel(dividerModel)
	r.SetColor(dividerColor)
	divider := s.world.Layout.Divider
	r.SubmitDrawRange(divider.Offset, divider.Count, divider.Kind)

	r.SetView(camera.Chase(s.state.Position, s.state.Heading).Matrix)
	n = s.drawObstacles(r, s.world.ChaseFrustum(s.state))
	instrumentVisible(viewportChase, n)

	if err := r.PresentFrame(); err != nil {
		return err
	}
	s.lastFrame.Store(nowFunc().UnixNano())
	return nil
}

func (s *Simulation) statusLines() []string {
	lines := make([]string, 0, 2)
	if s.culling {
		lines = append(lines, StatusCullingOn)
	} else {
		lines = append(lines, StatusCullingOff)
	}
	if s.collision {
		lines = append(lines, StatusCrash)
	}
	return lines
}

// drawObstacles submits one sphere per obstacle in view, or per obstacle in
// the field when culling is off, and returns how many were drawn.
func (s *Simulation) drawObstacles(r render.Renderer, f spatial.Frustum) int {
	var obstacles []*entity.Obstacle
	if s.culling {
		s.visible = s.world.AppendVisible(s.visible[:0], f)
		obstacles = s.visible
	} else {
		obstacles = s.world.Obstacles()
	}

	sphere := s.world.Layout.Sphere
	meshRadius := s.world.Layout.SphereRadius
	for _, o := range obstacles {
		scale := o.Radius / meshRadius
		r.SetModel(mgl64.Translate3D(o.Position.X(), o.Position.Y(), o.Position.Z()).
			Mul4(mgl64.Scale3D(scale, scale, scale)))
		r.SetColor(o.Color)
		r.SubmitDrawRange(sphere.Offset, sphere.Count, sphere.Kind)
	}
	return len(obstacles)
}
