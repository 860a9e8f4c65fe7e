// pkg/entity/field.go
package entity

import (
	"errors"
	"fmt"
	"image/color"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidField is returned for field parameters that cannot produce a grid.
var ErrInvalidField = errors.New("invalid obstacle field")

// FieldParams controls how NewField lays out and fills the grid.
type FieldParams struct {
	Rows            int
	Columns         int
	FillProbability int     // percent chance a slot is populated, 0..100
	Spacing         float64 // distance between neighbouring slots
	Radius          float64 // radius of every populated obstacle
	DepthOffset     float64 // distance from the origin to the first row
	Seed            uint64
}

// DefaultFieldParams mirrors the classic layout: a 100×100 fully populated
// grid 30 units apart, starting 40 units in front of the craft.
func DefaultFieldParams() FieldParams {
	return FieldParams{
		Rows:            100,
		Columns:         100,
		FillProbability: 100,
		Spacing:         30,
		Radius:          3,
		DepthOffset:     40,
		Seed:            1,
	}
}

// Field is the fixed ROWS×COLUMNS obstacle grid, stored row-major in a
// single slice. It is immutable once constructed.
type Field struct {
	rows      int
	columns   int
	obstacles []Obstacle
	maxRadius float64
	occupied  int
}

// NewField lays out the grid and populates each slot with probability
// FillProbability percent, drawing fill decisions and colors from a PCG
// source seeded with Seed. Equal params give equal fields.
func NewField(p FieldParams) (*Field, error) {
	if p.Rows <= 0 || p.Columns <= 0 {
		return nil, fmt.Errorf("%w: grid must be at least 1×1, got %d×%d", ErrInvalidField, p.Rows, p.Columns)
	}
	if p.FillProbability < 0 || p.FillProbability > 100 {
		return nil, fmt.Errorf("%w: fill probability %d outside [0, 100]", ErrInvalidField, p.FillProbability)
	}
	if p.Spacing <= 0 || p.Radius <= 0 {
		return nil, fmt.Errorf("%w: spacing and radius must be positive", ErrInvalidField)
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	obstacles := make([]Obstacle, p.Rows*p.Columns)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Columns; c++ {
			i := r*p.Columns + c
			obstacles[i].ID = ID(i)
			if rng.IntN(100) >= p.FillProbability {
				continue
			}
			obstacles[i].Position = SlotPosition(r, c, p)
			obstacles[i].Radius = p.Radius
			obstacles[i].Color = color.RGBA{
				R: uint8(rng.IntN(256)),
				G: uint8(rng.IntN(256)),
				B: uint8(rng.IntN(256)),
				A: 0xff,
			}
		}
	}
	return newField(p.Rows, p.Columns, obstacles), nil
}

// SlotPosition returns the world position of grid slot (row, column). The
// columns are centred on x = 0 so the craft starts facing the middle of the
// field; rows recede down -Z.
func SlotPosition(row, column int, p FieldParams) mgl64.Vec3 {
	evenOffset := 0.0
	if p.Columns%2 == 0 {
		evenOffset = p.Spacing / 2
	}
	return mgl64.Vec3{
		evenOffset + p.Spacing*float64(column-p.Columns/2),
		0,
		-p.DepthOffset - p.Spacing*float64(row),
	}
}

// FieldFromObstacles builds a field from an explicit row-major slot list.
// Slots not covered by obstacles stay empty. It is meant for scenarios and
// tests; slot IDs are reassigned from their index.
func FieldFromObstacles(rows, columns int, obstacles []Obstacle) (*Field, error) {
	if rows <= 0 || columns <= 0 {
		return nil, fmt.Errorf("%w: grid must be at least 1×1, got %d×%d", ErrInvalidField, rows, columns)
	}
	if len(obstacles) > rows*columns {
		return nil, fmt.Errorf("%w: %d obstacles do not fit a %d×%d grid", ErrInvalidField, len(obstacles), rows, columns)
	}
	slots := make([]Obstacle, rows*columns)
	copy(slots, obstacles)
	for i := range slots {
		slots[i].ID = ID(i)
		if slots[i].Radius < 0 {
			return nil, fmt.Errorf("%w: slot %d has negative radius", ErrInvalidField, i)
		}
	}
	return newField(rows, columns, slots), nil
}

func newField(rows, columns int, obstacles []Obstacle) *Field {
	f := &Field{rows: rows, columns: columns, obstacles: obstacles}
	for i := range obstacles {
		if obstacles[i].Occupied() {
			f.occupied++
			f.maxRadius = max(f.maxRadius, obstacles[i].Radius)
		}
	}
	return f
}

// Rows returns the number of grid rows
func (f *Field) Rows() int { return f.rows }

// Columns returns the number of grid columns
func (f *Field) Columns() int { return f.columns }

// Len returns the number of slots, occupied or not.
func (f *Field) Len() int { return len(f.obstacles) }

// OccupiedCount returns the number of populated slots.
func (f *Field) OccupiedCount() int { return f.occupied }

// MaxRadius returns the largest obstacle radius in the field, 0 when empty.
func (f *Field) MaxRadius() float64 { return f.maxRadius }

// At returns the slot at (row, column), or nil when out of range.
func (f *Field) At(row, column int) *Obstacle {
	if row < 0 || row >= f.rows || column < 0 || column >= f.columns {
		return nil
	}
	return &f.obstacles[row*f.columns+column]
}

// Slots returns every slot in row-major order. Callers must not modify them.
func (f *Field) Slots() []Obstacle {
	return f.obstacles
}

// Occupied returns a reference to each populated slot in row-major order.
func (f *Field) Occupied() []*Obstacle {
	out := make([]*Obstacle, 0, f.occupied)
	for i := range f.obstacles {
		if f.obstacles[i].Occupied() {
			out = append(out, &f.obstacles[i])
		}
	}
	return out
}
