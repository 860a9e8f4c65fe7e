// pkg/spatial/quadtree.go
package spatial

import (
	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// Options bounds the shape of the tree.
type Options struct {
	Capacity int // a node holding at most this many obstacles stays a leaf
	MaxDepth int // nodes at this depth are never split
}

// DefaultOptions returns capacity 4 and maximum depth 10.
func DefaultOptions() Options {
	return Options{Capacity: 4, MaxDepth: 10}
}

// Quadtree indexes the obstacle field in the X–Z plane for visibility and
// proximity queries. It is built once and never mutated; to change the
// obstacle set, build a new tree and swap it in.
type Quadtree struct {
	root  *quadNode
	opts  Options
	size  int
	depth int
}

type quadNode struct {
	bounds    Rect
	depth     int
	obstacles []*entity.Obstacle
	children  *[4]quadNode
}

func (n *quadNode) leaf() bool {
	return n.children == nil
}

// Build constructs a tree over every occupied obstacle. An obstacle that
// does not fit entirely inside one child quadrant stays with the parent,
// so every obstacle lives in exactly one node. The result is deterministic
// for a given obstacle order, bounds and options.
func Build(obstacles []*entity.Obstacle, bounds Rect, opts Options) *Quadtree {
	if opts.Capacity < 1 {
		opts.Capacity = DefaultOptions().Capacity
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}

	occupied := make([]*entity.Obstacle, 0, len(obstacles))
	for _, o := range obstacles {
		if o != nil && o.Occupied() {
			occupied = append(occupied, o)
		}
	}

	qt := &Quadtree{
		root: &quadNode{bounds: bounds},
		opts: opts,
		size: len(occupied),
	}
	qt.split(qt.root, occupied)
	return qt
}

func (qt *Quadtree) split(n *quadNode, obstacles []*entity.Obstacle) {
	qt.depth = max(qt.depth, n.depth)
	if len(obstacles) <= qt.opts.Capacity || n.depth >= qt.opts.MaxDepth {
		n.obstacles = obstacles
		return
	}

	quads := n.bounds.Quadrants()
	var buckets [4][]*entity.Obstacle
	n.children = new([4]quadNode)
	for _, o := range obstacles {
		placed := false
		for i := range quads {
			if quads[i].ContainsCircle(o.Planar(), o.Radius) {
				buckets[i] = append(buckets[i], o)
				placed = true
				break
			}
		}
		if !placed {
			n.obstacles = append(n.obstacles, o)
		}
	}
	for i := range quads {
		n.children[i] = quadNode{bounds: quads[i], depth: n.depth + 1}
		qt.split(&n.children[i], buckets[i])
	}
}

// Len returns the number of indexed obstacles
func (qt *Quadtree) Len() int {
	return qt.size
}

// Depth returns the depth of the deepest node; a single leaf has depth 0.
func (qt *Quadtree) Depth() int {
	return qt.depth
}

// Bounds returns the root rectangle
func (qt *Quadtree) Bounds() Rect {
	return qt.root.bounds
}

// QueryFrustum returns the obstacles whose quadtree cell intersects the
// frustum. Every obstacle of a reached leaf is returned without further
// testing; obstacles held by inner nodes are checked against the outline
// individually. Each obstacle appears at most once; order is unspecified.
func (qt *Quadtree) QueryFrustum(f Frustum) []*entity.Obstacle {
	return qt.AppendFrustum(nil, f)
}

// AppendFrustum is QueryFrustum appending to dst, for callers that reuse a
// buffer across frames.
func (qt *Quadtree) AppendFrustum(dst []*entity.Obstacle, f Frustum) []*entity.Obstacle {
	return appendFrustum(dst, qt.root, f)
}

func appendFrustum(dst []*entity.Obstacle, n *quadNode, f Frustum) []*entity.Obstacle {
	if !f.IntersectsRect(n.bounds) {
		return dst
	}
	if n.leaf() {
		return append(dst, n.obstacles...)
	}
	for _, o := range n.obstacles {
		if f.IntersectsCircle(o.Planar(), o.Radius) {
			dst = append(dst, o)
		}
	}
	for i := range n.children {
		dst = appendFrustum(dst, &n.children[i], f)
	}
	return dst
}

// QueryRadius returns candidate obstacles near center: everything in each
// leaf whose cell meets the disc, plus inner-node obstacles whose circle
// reaches it. Order is unspecified.
func (qt *Quadtree) QueryRadius(center physics.Vec2, radius float64) []*entity.Obstacle {
	return qt.AppendRadius(nil, center, radius)
}

// AppendRadius is QueryRadius appending to dst.
func (qt *Quadtree) AppendRadius(dst []*entity.Obstacle, center physics.Vec2, radius float64) []*entity.Obstacle {
	return appendRadius(dst, qt.root, center, radius)
}

func appendRadius(dst []*entity.Obstacle, n *quadNode, center physics.Vec2, radius float64) []*entity.Obstacle {
	if !n.bounds.IntersectsCircle(center, radius) {
		return dst
	}
	if n.leaf() {
		return append(dst, n.obstacles...)
	}
	for _, o := range n.obstacles {
		reach := radius + o.Radius
		if o.Planar().Sub(center).LengthSquared() <= reach*reach {
			dst = append(dst, o)
		}
	}
	for i := range n.children {
		dst = appendRadius(dst, &n.children[i], center, radius)
	}
	return dst
}

// NodeInfo describes one node during Walk.
type NodeInfo struct {
	Bounds    Rect
	Depth     int
	Leaf      bool
	Obstacles []*entity.Obstacle
}

// Walk visits every node depth-first, parents before children. Returning
// false from fn skips the node's children.
func (qt *Quadtree) Walk(fn func(NodeInfo) bool) {
	walk(qt.root, fn)
}

func walk(n *quadNode, fn func(NodeInfo) bool) {
	info := NodeInfo{Bounds: n.bounds, Depth: n.depth, Leaf: n.leaf(), Obstacles: n.obstacles}
	if !fn(info) || n.leaf() {
		return
	}
	for i := range n.children {
		walk(&n.children[i], fn)
	}
}
