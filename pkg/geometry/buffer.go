// pkg/geometry/buffer.go
package geometry

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrFrozen is the panic value for writes into a buffer after Freeze.
var ErrFrozen = errors.New("geometry: write to frozen vertex buffer")

// BoundsError reports a write that would leave the buffer's reserved region.
// It is raised with panic: it means the vertex-count constants and the
// generator logic disagree, which no caller can recover from.
type BoundsError struct {
	Offset int
	Count  int
	Len    int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("geometry: range [%d, %d) exceeds vertex buffer of length %d",
		e.Offset, e.Offset+e.Count, e.Len)
}

// Buffer is the shared vertex array every mesh is written into. It is filled
// once during setup and read by renderers afterwards.
type Buffer struct {
	points []mgl32.Vec3
	frozen bool
}

// NewBuffer allocates a zeroed buffer holding size vertices.
func NewBuffer(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	return &Buffer{points: make([]mgl32.Vec3, size)}
}

// Len returns the number of vertices the buffer holds.
func (b *Buffer) Len() int {
	return len(b.points)
}

// Reserve asserts that [offset, offset+count) lies inside the buffer and
// returns that region for writing.
func (b *Buffer) Reserve(offset, count int) []mgl32.Vec3 {
	if b.frozen {
		panic(ErrFrozen)
	}
	b.check(offset, count)
	return b.points[offset : offset+count]
}

// Set writes a single vertex.
func (b *Buffer) Set(i int, p mgl64.Vec3) {
	b.Reserve(i, 1)[0] = vec32(p)
}

// Range returns a read-only view of [offset, offset+count). Callers must not
// write through the returned slice.
func (b *Buffer) Range(offset, count int) []mgl32.Vec3 {
	b.check(offset, count)
	return b.points[offset : offset+count : offset+count]
}

// Points returns every vertex in the buffer; see Range.
func (b *Buffer) Points() []mgl32.Vec3 {
	return b.points[:len(b.points):len(b.points)]
}

// Freeze marks the buffer read-only. Any later Reserve or Set panics.
func (b *Buffer) Freeze() {
	b.frozen = true
}

// Frozen reports whether Freeze has been called.
func (b *Buffer) Frozen() bool {
	return b.frozen
}

func (b *Buffer) check(offset, count int) {
	if offset < 0 || count < 0 || offset+count > len(b.points) {
		panic(&BoundsError{Offset: offset, Count: count, Len: len(b.points)})
	}
}

func vec32(p mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
}
