package spatial

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

func testField(t testing.TB, rows, columns, fill int, seed uint64) *entity.Field {
	t.Helper()
	p := entity.DefaultFieldParams()
	p.Rows, p.Columns, p.FillProbability, p.Seed = rows, columns, fill, seed
	f, err := entity.NewField(p)
	require.NoError(t, err)
	return f
}

func buildIndex(f *entity.Field, opts Options) *Quadtree {
	occupied := f.Occupied()
	return Build(occupied, WorldBounds(occupied), opts)
}

func TestQueryFrustum_FullWorldReturnsEachObstacleOnce(t *testing.T) {
	tests := []struct {
		name    string
		rows    int
		columns int
		fill    int
		opts    Options
	}{
		{"single_obstacle", 1, 1, 100, DefaultOptions()},
		{"dense_square", 30, 30, 100, DefaultOptions()},
		{"sparse_wide", 10, 50, 35, DefaultOptions()},
		{"capacity_one", 16, 16, 80, Options{Capacity: 1, MaxDepth: 10}},
		{"shallow_tree", 20, 20, 100, Options{Capacity: 2, MaxDepth: 2}},
		{"no_split", 20, 20, 100, Options{Capacity: 4, MaxDepth: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testField(t, tt.rows, tt.columns, tt.fill, 7)
			qt := buildIndex(f, tt.opts)
			require.Equal(t, f.OccupiedCount(), qt.Len())

			got := qt.QueryFrustum(FrustumCovering(qt.Bounds()))

			seen := make(map[*entity.Obstacle]int, len(got))
			for _, o := range got {
				seen[o]++
			}
			for _, o := range f.Occupied() {
				assert.Equal(t, 1, seen[o], "obstacle %d returned %d times", o.ID, seen[o])
			}
			assert.Len(t, got, f.OccupiedCount())
		})
	}
}

func TestScenario_TwoByTwoField(t *testing.T) {
	f, err := entity.FieldFromObstacles(2, 2, []entity.Obstacle{
		{Position: mgl64.Vec3{0, 0, -40}, Radius: 3},
	})
	require.NoError(t, err)

	qt := buildIndex(f, DefaultOptions())
	got := qt.QueryFrustum(FrustumCovering(qt.Bounds()))
	require.Len(t, got, 1)
	assert.Equal(t, mgl64.Vec3{0, 0, -40}, got[0].Position)

	hit := physics.Sphere{Center: mgl64.Vec3{0, 0, -36}, Radius: 7}
	assert.True(t, physics.CheckCraftCollision(hit, qt.QueryRadius(physics.Vec2{X: 0, Z: -36}, 7+f.MaxRadius())))

	miss := physics.Sphere{Center: mgl64.Vec3{100, 0, -40}, Radius: 7}
	assert.False(t, physics.CheckCraftCollision(miss, qt.QueryRadius(physics.Vec2{X: 100, Z: -40}, 7+f.MaxRadius())))
	assert.False(t, physics.CheckCraftCollision(miss, f.Occupied()))
}

func TestBuild_EmptyField(t *testing.T) {
	f := testField(t, 5, 5, 0, 1)
	qt := buildIndex(f, DefaultOptions())

	assert.Equal(t, 0, qt.Len())
	assert.Equal(t, 0, qt.Depth())
	assert.Equal(t, Rect{}, qt.Bounds())
	assert.Empty(t, qt.QueryFrustum(FrustumFromPose(physics.Vec2{}, 0, 5, 250, 1)))
	assert.Empty(t, qt.QueryRadius(physics.Vec2{}, 1000))

	nodes := 0
	qt.Walk(func(n NodeInfo) bool {
		nodes++
		assert.True(t, n.Leaf)
		return true
	})
	assert.Equal(t, 1, nodes)
}

func TestQuery_OutsideWorld(t *testing.T) {
	qt := buildIndex(testField(t, 10, 10, 100, 3), DefaultOptions())

	// The field recedes down -Z; looking backwards from far behind sees nothing.
	behind := FrustumFromPose(physics.Vec2{X: 0, Z: 1000}, 180, 5, 250, 1)
	assert.Empty(t, qt.QueryFrustum(behind))
	assert.Empty(t, qt.QueryRadius(physics.Vec2{X: 5000, Z: 5000}, 50))
}

func TestBuild_Invariants(t *testing.T) {
	f := testField(t, 25, 25, 70, 11)
	opts := Options{Capacity: 3, MaxDepth: 6}
	qt := buildIndex(f, opts)

	total := 0
	qt.Walk(func(n NodeInfo) bool {
		total += len(n.Obstacles)
		assert.LessOrEqual(t, n.Depth, opts.MaxDepth)
		if n.Leaf {
			return true
		}
		// Inner nodes only keep obstacles no quadrant can hold.
		quads := n.Bounds.Quadrants()
		for _, o := range n.Obstacles {
			for _, q := range quads {
				assert.False(t, q.ContainsCircle(o.Planar(), o.Radius), "obstacle %d fits a child", o.ID)
			}
		}
		var area float64
		for _, q := range quads {
			assert.True(t, n.Bounds.ContainsCircle(q.Center, 0))
			area += q.Width * q.Height
		}
		assert.InDelta(t, n.Bounds.Width*n.Bounds.Height, area, 1e-6)
		return true
	})
	assert.Equal(t, qt.Len(), total, "every obstacle lives in exactly one node")

	qt.Walk(func(n NodeInfo) bool {
		for _, o := range n.Obstacles {
			assert.True(t, n.Bounds.Contains(o.Planar()), "obstacle %d outside its cell", o.ID)
		}
		return true
	})
}

func TestBuild_Deterministic(t *testing.T) {
	f := testField(t, 12, 12, 60, 5)
	a := buildIndex(f, DefaultOptions())
	b := buildIndex(f, DefaultOptions())

	var shapeA, shapeB []NodeInfo
	a.Walk(func(n NodeInfo) bool { shapeA = append(shapeA, n); return true })
	b.Walk(func(n NodeInfo) bool { shapeB = append(shapeB, n); return true })
	assert.Equal(t, shapeA, shapeB)
}

func TestQueryFrustum_NeverMissesVisibleObstacles(t *testing.T) {
	f := testField(t, 40, 40, 60, 9)
	qt := buildIndex(f, DefaultOptions())
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 50; i++ {
		apex := physics.Vec2{X: rng.Float64()*1200 - 600, Z: -rng.Float64() * 1200}
		fr := FrustumFromPose(apex, rng.Float64()*360, 5, 250, 1)

		got := make(map[*entity.Obstacle]bool)
		for _, o := range qt.QueryFrustum(fr) {
			require.False(t, got[o], "duplicate obstacle %d", o.ID)
			got[o] = true
		}
		for _, o := range f.Occupied() {
			if fr.IntersectsCircle(o.Planar(), o.Radius) {
				require.True(t, got[o], "visible obstacle %d missing from frustum %v", o.ID, fr)
			}
		}
	}
}

func TestQueryRadius_NeverMissesNearbyObstacles(t *testing.T) {
	f := testField(t, 30, 30, 50, 13)
	qt := buildIndex(f, DefaultOptions())
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 100; i++ {
		center := physics.Vec2{X: rng.Float64()*1000 - 500, Z: -rng.Float64() * 1000}
		radius := rng.Float64() * 40

		got := make(map[*entity.Obstacle]bool)
		for _, o := range qt.QueryRadius(center, radius) {
			require.False(t, got[o], "duplicate obstacle %d", o.ID)
			got[o] = true
		}
		for _, o := range f.Occupied() {
			if o.Planar().Distance(center) <= radius+o.Radius {
				require.True(t, got[o], "obstacle %d within reach of %v missing", o.ID, center)
			}
		}
	}
}

func TestAppendFrustum_ReusesBuffer(t *testing.T) {
	qt := buildIndex(testField(t, 10, 10, 100, 1), DefaultOptions())
	fr := FrustumFromPose(physics.Vec2{}, 0, 5, 250, 1)

	buf := make([]*entity.Obstacle, 0, 256)
	out := qt.AppendFrustum(buf[:0], fr)
	assert.Equal(t, len(qt.QueryFrustum(fr)), len(out))
	assert.Equal(t, cap(buf), cap(out))
}

func BenchmarkBuild(b *testing.B) {
	f := testField(b, 100, 100, 100, 1)
	occupied := f.Occupied()
	bounds := WorldBounds(occupied)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(occupied, bounds, DefaultOptions())
	}
}

func BenchmarkQueryFrustum(b *testing.B) {
	qt := buildIndex(testField(b, 100, 100, 100, 1), DefaultOptions())
	fr := FrustumFromPose(physics.Vec2{}, 0, 5, 250, 1)
	buf := make([]*entity.Obstacle, 0, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = qt.AppendFrustum(buf[:0], fr)
	}
}
