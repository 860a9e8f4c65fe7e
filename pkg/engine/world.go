// pkg/engine/world.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/go-spacetravel/pkg/camera"
	"github.com/opd-ai/go-spacetravel/pkg/config"
	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/event"
	"github.com/opd-ai/go-spacetravel/pkg/geometry"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
	"github.com/opd-ai/go-spacetravel/pkg/spatial"
)

// World holds everything that is built once and then only read: the
// frozen vertex buffer and its layout, the obstacle field and its index.
// Any number of simulations may share one World concurrently.
type World struct {
	Config     *config.Config
	Layout     geometry.Layout
	Buffer     *geometry.Buffer
	Field      *entity.Field
	Index      *spatial.Quadtree // nil when indexing is disabled
	Projection camera.Projection

	occupied []*entity.Obstacle
}

// FieldParams converts the field section of cfg. A zero seed is replaced
// with one derived from the current time.
func FieldParams(cfg *config.Config) entity.FieldParams {
	seed := cfg.Field.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return entity.FieldParams{
		Rows:            cfg.Field.Rows,
		Columns:         cfg.Field.Columns,
		FillProbability: cfg.Field.FillProbability,
		Spacing:         cfg.Field.WorldSpacing,
		Radius:          cfg.Field.ObstacleRadius,
		DepthOffset:     cfg.Field.DepthOffset,
		Seed:            seed,
	}
}

// NewWorld validates cfg, generates the obstacle field and builds the
// world around it.
func NewWorld(cfg *config.Config, logger *logging.Logger, bus *event.Bus) (*World, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	field, err := entity.NewField(FieldParams(cfg))
	if err != nil {
		return nil, logging.WrapError(err, "failed to generate obstacle field")
	}
	return NewWorldWithField(cfg, field, logger, bus)
}

// NewWorldWithField builds the world around an existing field. The
// geometry buffer is built and frozen, and unless cfg.Index.Enabled is
// false the quadtree is built over the field's occupied slots. A
// WorldBuilt event is published on bus when it is not nil.
func NewWorldWithField(cfg *config.Config, field *entity.Field, logger *logging.Logger, bus *event.Bus) (*World, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if field == nil {
		return nil, fmt.Errorf("%w: no obstacle field", config.ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	layout := geometry.DefaultLayout()
	w := &World{
		Config:     cfg,
		Layout:     layout,
		Buffer:     geometry.Build(layout),
		Field:      field,
		Projection: camera.NewProjection(cfg.View.HalfExtent, cfg.View.Near, cfg.View.Far),
		occupied:   field.Occupied(),
	}

	start := time.Now()
	depth := 0
	if cfg.Index.Enabled {
		w.Index = spatial.Build(w.occupied, spatial.WorldBounds(w.occupied), spatial.Options{
			Capacity: cfg.Index.Capacity,
			MaxDepth: cfg.Index.MaxDepth,
		})
		depth = w.Index.Depth()
	}
	elapsed := time.Since(start)
	if w.Index != nil {
		instrumentIndexBuild(elapsed)
	}

	logger.Info(context.Background(), "world built",
		"rows", field.Rows(),
		"columns", field.Columns(),
		"occupied", field.OccupiedCount(),
		"vertices", w.Buffer.Len(),
		"indexed", w.Index != nil,
		"index_depth", depth,
		"index_build_time", elapsed,
	)
	if bus != nil {
		bus.Publish(event.NewWorldEvent(w, field.Len(), field.OccupiedCount(), depth, elapsed))
	}
	return w, nil
}

// Obstacles returns the occupied obstacles in slot order.
func (w *World) Obstacles() []*entity.Obstacle {
	return w.occupied
}

// AppendVisible appends the obstacles whose footprint may overlap f. With
// an index this is leaf-granular and may include a few obstacles just
// outside f; without one every obstacle is tested.
func (w *World) AppendVisible(dst []*entity.Obstacle, f spatial.Frustum) []*entity.Obstacle {
	if w.Index != nil {
		return w.Index.AppendFrustum(dst, f)
	}
	for _, o := range w.occupied {
		if f.IntersectsCircle(o.Planar(), o.Radius) {
			dst = append(dst, o)
		}
	}
	return dst
}

// AppendNearby appends collision candidates for a query disc. Without an
// index the whole field is returned.
func (w *World) AppendNearby(dst []*entity.Obstacle, center physics.Vec2, radius float64) []*entity.Obstacle {
	if w.Index != nil {
		return w.Index.AppendRadius(dst, center, radius)
	}
	return append(dst, w.occupied...)
}
