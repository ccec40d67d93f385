package render

import (
	"math"

	"github.com/lixenwraith/hvz/vmath"
)

// Projection maps the arena ground plane onto a terminal field
// +X runs right and +Z runs up; the field excludes the status row
type Projection struct {
	arena  float64
	width  int
	height int
}

func NewProjection(arenaSize float64, width, height int) Projection {
	return Projection{arena: arenaSize, width: width, height: height}
}

// ToCell returns the cell for a world position, ok is false outside the field
func (p Projection) ToCell(v vmath.Vec3) (x, y int, ok bool) {
	if p.arena <= 0 || p.width < 2 || p.height < 2 {
		return 0, 0, false
	}
	fx := (v.X() + p.arena) / (2 * p.arena) * float64(p.width-1)
	fy := (p.arena - v.Z()) / (2 * p.arena) * float64(p.height-1)
	x, y = int(math.Round(fx)), int(math.Round(fy))
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return x, y, false
	}
	return x, y, true
}

// ToWorld returns the ground-plane centre of a cell
func (p Projection) ToWorld(x, y int) vmath.Vec3 {
	wx := float64(x)/float64(p.width-1)*2*p.arena - p.arena
	wz := p.arena - float64(y)/float64(p.height-1)*2*p.arena
	return vmath.Vec3{wx, 0, wz}
}

// CellSize returns the world extent of one cell on X and Z
func (p Projection) CellSize() (dx, dz float64) {
	return 2 * p.arena / float64(p.width-1), 2 * p.arena / float64(p.height-1)
}
