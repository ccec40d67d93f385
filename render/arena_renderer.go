package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/status"
	"github.com/lixenwraith/hvz/vmath"
)

// Glyphs
const (
	GlyphPrey      = 'o'
	GlyphHunter    = 'Z'
	GlyphObstacle  = '█'
	GlyphForward   = '·'
	GlyphRight     = '·'
	GlyphTarget    = '.'
	GlyphPredicted = '+'
)

// Debug line lengths in world units
const (
	forwardLineLength = 3.0
	rightLineLength   = 2.0
)

// ArenaRenderer draws snapshots onto a tcell screen
// The last row is reserved for the status bar
type ArenaRenderer struct {
	screen    tcell.Screen
	registry  *status.Registry
	showLines bool
}

// NewArenaRenderer creates a renderer, registry may be nil
func NewArenaRenderer(screen tcell.Screen, registry *status.Registry) *ArenaRenderer {
	return &ArenaRenderer{screen: screen, registry: registry}
}

// ToggleLines flips debug line drawing and returns the new state
func (r *ArenaRenderer) ToggleLines() bool {
	r.showLines = !r.showLines
	return r.showLines
}

func (r *ArenaRenderer) ShowLines() bool { return r.showLines }

// Render draws one frame and shows it
func (r *ArenaRenderer) Render(s *engine.Snapshot) {
	width, height := r.screen.Size()
	if width < 2 || height < 3 {
		return
	}

	base := tcell.StyleDefault.Background(RgbBackground)
	r.screen.Fill(' ', base)

	proj := NewProjection(s.ArenaSize, width, height-1)
	r.drawObstacles(proj, s, base)
	if r.showLines {
		r.drawDebugLines(proj, s, base)
	}

	for _, p := range s.Prey {
		color := RgbPrey
		if p.Avoiding {
			color = RgbPreyAvoiding
		}
		r.plot(proj, p.Position, GlyphPrey, base.Foreground(color).Bold(true))
	}
	for _, h := range s.Hunters {
		color := RgbHunter
		if h.Wandering {
			color = RgbHunterIdle
		}
		r.plot(proj, h.Position, GlyphHunter, base.Foreground(color).Bold(true))
	}

	r.drawStatusBar(s, width, height-1)
	r.screen.Show()
}

// drawObstacles fills every cell whose centre lies inside an obstacle
func (r *ArenaRenderer) drawObstacles(proj Projection, s *engine.Snapshot, base tcell.Style) {
	style := base.Foreground(RgbObstacle)
	dx, dz := proj.CellSize()

	for _, o := range s.Obstacles {
		cx, cy, _ := proj.ToCell(o.Position)
		rx := int(math.Ceil(o.Radius/dx)) + 1
		ry := int(math.Ceil(o.Radius/dz)) + 1

		drawn := false
		for y := cy - ry; y <= cy+ry; y++ {
			for x := cx - rx; x <= cx+rx; x++ {
				if x < 0 || y < 0 || x >= proj.width || y >= proj.height {
					continue
				}
				if vmath.V3Distance(proj.ToWorld(x, y), vmath.V3Planar(o.Position)) <= o.Radius {
					r.screen.SetContent(x, y, GlyphObstacle, nil, style)
					drawn = true
				}
			}
		}
		// Obstacles smaller than a cell still get one glyph
		if !drawn {
			r.plot(proj, o.Position, GlyphObstacle, style)
		}
	}
}

func (r *ArenaRenderer) drawDebugLines(proj Projection, s *engine.Snapshot, base tcell.Style) {
	fwd := base.Foreground(RgbLineForward)
	right := base.Foreground(RgbLineRight)
	target := base.Foreground(RgbLineTarget)
	predicted := base.Foreground(RgbPredicted).Bold(true)

	for _, group := range [][]engine.AgentState{s.Prey, s.Hunters} {
		for _, a := range group {
			if vmath.V3IsZero(a.Direction) {
				continue
			}
			r.line(proj, a.Position, a.Position.Add(a.Direction.Mul(forwardLineLength)), GlyphForward, fwd)
			r.line(proj, a.Position, a.Position.Add(a.Right.Mul(rightLineLength)), GlyphRight, right)
		}
	}

	for _, h := range s.Hunters {
		if h.Target == 0 {
			continue
		}
		if t, ok := s.Find(h.Target); ok {
			r.line(proj, h.Position, t.Position, GlyphTarget, target)
		}
		if h.HasPrediction {
			r.plot(proj, h.Predicted, GlyphPredicted, predicted)
		}
	}
}

func (r *ArenaRenderer) plot(proj Projection, v vmath.Vec3, ch rune, style tcell.Style) {
	if x, y, ok := proj.ToCell(v); ok {
		r.screen.SetContent(x, y, ch, nil, style)
	}
}

// line draws a Bresenham line between two world points, clipped to the field
func (r *ArenaRenderer) line(proj Projection, from, to vmath.Vec3, ch rune, style tcell.Style) {
	x0, y0, _ := proj.ToCell(from)
	x1, y1, _ := proj.ToCell(to)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && y0 >= 0 && x0 < proj.width && y0 < proj.height {
			r.screen.SetContent(x0, y0, ch, nil, style)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (r *ArenaRenderer) drawStatusBar(s *engine.Snapshot, width, y int) {
	bar := tcell.StyleDefault.Foreground(RgbStatusText).Background(RgbStatusBg)
	for x := 0; x < width; x++ {
		r.screen.SetContent(x, y, ' ', nil, bar)
	}

	x := r.text(0, y, width, fmt.Sprintf(" prey %d  hunters %d  t %.1fs ", len(s.Prey), len(s.Hunters), s.Elapsed), bar)

	if reg := r.registry; reg != nil {
		conv := reg.Ints.Get(status.KeyConversionTotal).Load()
		us := reg.Ints.Get(status.KeyStepMicros).Load()
		x = r.text(x, y, width, fmt.Sprintf(" conv %d  step %dµs ", conv, us), bar)
		if reg.Bools.Get(status.KeyPaused).Load() {
			x = r.text(x, y, width, " PAUSED ", bar.Background(RgbStatusPause))
		}
	}

	boost := bar.Background(RgbStatusBoost)
	if s.BoostPrey {
		x = r.text(x+1, y, width, " PREY+ ", boost)
	}
	if s.BoostHunters {
		x = r.text(x+1, y, width, " HUNT+ ", boost)
	}
	if r.showLines {
		r.text(x+1, y, width, " LINES ", bar.Reverse(true))
	}
}

// text writes s from x, clipped to width, and returns the next free column
func (r *ArenaRenderer) text(x, y, width int, s string, style tcell.Style) int {
	for _, ch := range s {
		if x >= width {
			break
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
	return x
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
