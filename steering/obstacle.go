package steering

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/vmath"
)

// ErrInvalidObstacle is returned for negative or non-finite obstacle geometry
var ErrInvalidObstacle = errors.New("invalid obstacle")

// minBoundsTol keeps zero-radius obstacles from producing degenerate R-tree boxes
const minBoundsTol = 1e-6

// Obstacle is a static circle on the ground plane
// Immutable after construction, safe to share without synchronization
type Obstacle struct {
	id       ObstacleID
	position vmath.Vec3
	radius   float64
}

// NewObstacle validates geometry and returns an immutable obstacle
func NewObstacle(id ObstacleID, position vmath.Vec3, radius float64) (*Obstacle, error) {
	if !(radius >= 0) || math.IsInf(radius, 0) {
		return nil, errors.Wrapf(ErrInvalidObstacle, "radius %v", radius)
	}
	if !vmath.V3Finite(position) {
		return nil, errors.Wrap(ErrInvalidObstacle, "position is not finite")
	}
	return &Obstacle{id: id, position: position, radius: radius}, nil
}

func (o *Obstacle) ID() ObstacleID       { return o.id }
func (o *Obstacle) Position() vmath.Vec3 { return o.position }
func (o *Obstacle) Radius() float64      { return o.radius }

// Bounds implements rtreego.Spatial over the X/Z plane
func (o *Obstacle) Bounds() rtreego.Rect {
	return groundPoint(o.position).ToRect(math.Max(o.radius, minBoundsTol))
}

func groundPoint(v vmath.Vec3) rtreego.Point {
	return rtreego.Point{v.X(), v.Z()}
}

// ObstacleField indexes obstacles for range queries
// Insertion order is kept separately for stable iteration
type ObstacleField struct {
	tree  *rtreego.Rtree
	order []*Obstacle
}

// NewObstacleField creates an empty 2D index
func NewObstacleField() *ObstacleField {
	return &ObstacleField{tree: rtreego.NewTree(2, 4, 16)}
}

// Insert adds an obstacle to the index
func (f *ObstacleField) Insert(o *Obstacle) {
	f.tree.Insert(o)
	f.order = append(f.order, o)
}

// Len returns the obstacle count
func (f *ObstacleField) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

// All returns obstacles in insertion order, caller must not modify the slice
func (f *ObstacleField) All() []*Obstacle {
	if f == nil {
		return nil
	}
	return f.order
}

// Near returns obstacles whose bounds intersect the square of half-width radius around position
// Results are a superset of obstacles within radius, sorted by ID so force sums are reproducible
func (f *ObstacleField) Near(position vmath.Vec3, radius float64) []*Obstacle {
	if f == nil || len(f.order) == 0 {
		return nil
	}
	hits := f.tree.SearchIntersect(groundPoint(position).ToRect(math.Max(radius, minBoundsTol)))
	if len(hits) == 0 {
		return nil
	}
	out := make([]*Obstacle, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*Obstacle))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
