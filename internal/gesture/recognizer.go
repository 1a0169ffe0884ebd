// internal/gesture/recognizer.go
//
// Pointer-gesture state machine for word selection.
// Responsibilities:
//   - Map raw pixel points onto grid cells via a fixed calibration.
//   - Lock the drag direction once the pointer leaves a dead zone around
//     the anchor cell, quantizing the drag angle to the nearest 45 degrees.
//   - Rebuild the straight-line selection from the locked direction and the
//     projected drag distance (idempotent per pointer sample).
//   - Validate a finished selection against unfound placements, accepting
//     the path forward or reversed.
//
// The recognizer holds only transient per-gesture state; it is driven by a
// host event loop through plain Begin/Update/End calls.

package gesture

import (
	"math"

	"github.com/pmallott/wordsearch/internal/grid"
)

const (
	// deadZoneFraction of one cell stride must be crossed before the drag
	// direction locks. Prevents jitter at gesture start from picking a
	// direction the player never intended.
	deadZoneFraction = 0.4

	// maxSelection bounds the selection length against pathological input.
	maxSelection = 10
)

// Point is a raw pointer sample in the host's pixel coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Calibration fixes the pixel-to-cell mapping for a session: the top-left
// pixel of cell (0,0) and the pixel stride between adjacent cells. Set once
// at session start, never renegotiated mid-gesture.
type Calibration struct {
	OriginX float64
	OriginY float64
	Stride  float64
}

// MatchResult reports the outcome of End.
type MatchResult struct {
	Matched bool   `json:"matched"`
	Word    string `json:"word,omitempty"`
}

// Recognizer converts a continuous pointer gesture into a discrete cell
// selection on one grid.
type Recognizer struct {
	cal      Calibration
	gridSize int

	active       bool
	anchorCell   grid.Cell
	anchorCenter Point
	locked       *grid.Direction
	selection    []grid.Cell
}

// NewRecognizer builds a recognizer for a gridSize board rendered with cal.
func NewRecognizer(cal Calibration, gridSize int) *Recognizer {
	return &Recognizer{cal: cal, gridSize: gridSize}
}

// Selection returns the cells currently traced, in order. Empty when no
// gesture is in flight.
func (r *Recognizer) Selection() []grid.Cell {
	out := make([]grid.Cell, len(r.selection))
	copy(out, r.selection)
	return out
}

// Begin anchors a new gesture at p. Points outside the grid are ignored and
// leave the recognizer idle.
func (r *Recognizer) Begin(p Point) {
	cell, ok := r.cellAt(p)
	if !ok {
		r.clear()
		return
	}
	r.active = true
	r.anchorCell = cell
	r.anchorCenter = r.cellCenter(cell)
	r.locked = nil
	r.selection = []grid.Cell{cell}
}

// Update extends the gesture to p. Before the drag leaves the dead zone the
// selection stays at the anchor cell; afterwards the direction is locked and
// the selection is rebuilt from scratch, so repeated calls with the same
// point always yield the same selection.
func (r *Recognizer) Update(p Point) {
	if !r.active {
		return
	}
	dx := p.X - r.anchorCenter.X
	dy := p.Y - r.anchorCenter.Y

	if r.locked == nil {
		if math.Hypot(dx, dy) < deadZoneFraction*r.cal.Stride {
			return
		}
		d := quantizeDirection(dx, dy)
		r.locked = &d
	}

	span := r.spanCells(dx, dy)
	sel := make([]grid.Cell, 0, span)
	c := r.anchorCell
	for i := 0; i < span; i++ {
		if c.Row < 0 || c.Row >= r.gridSize || c.Col < 0 || c.Col >= r.gridSize {
			break
		}
		sel = append(sel, c)
		c = c.Step(*r.locked)
	}
	r.selection = sel
}

// End validates the traced path against the unfound placements. A placement
// matches when the selection equals its path forward or reversed; the first
// match is marked found and reported. The gesture state is cleared either way.
func (r *Recognizer) End(placements []*grid.WordPlacement) MatchResult {
	sel := r.selection
	r.clear()
	if len(sel) == 0 {
		return MatchResult{}
	}
	for _, p := range placements {
		if p.Found {
			continue
		}
		if pathsEqual(sel, p.Path) || pathsReversed(sel, p.Path) {
			p.Found = true
			return MatchResult{Matched: true, Word: p.Word}
		}
	}
	return MatchResult{}
}

func (r *Recognizer) clear() {
	r.active = false
	r.locked = nil
	r.selection = nil
}

// cellAt maps a pixel point to the cell containing it.
func (r *Recognizer) cellAt(p Point) (grid.Cell, bool) {
	if r.cal.Stride <= 0 {
		return grid.Cell{}, false
	}
	col := int(math.Floor((p.X - r.cal.OriginX) / r.cal.Stride))
	row := int(math.Floor((p.Y - r.cal.OriginY) / r.cal.Stride))
	if row < 0 || row >= r.gridSize || col < 0 || col >= r.gridSize {
		return grid.Cell{}, false
	}
	return grid.Cell{Row: row, Col: col}, true
}

// cellCenter returns the pixel center of a cell.
func (r *Recognizer) cellCenter(c grid.Cell) Point {
	return Point{
		X: r.cal.OriginX + (float64(c.Col)+0.5)*r.cal.Stride,
		Y: r.cal.OriginY + (float64(c.Row)+0.5)*r.cal.Stride,
	}
}

// spanCells projects the drag displacement onto the locked direction and
// converts pixels to a cell count, always at least the anchor cell itself.
func (r *Recognizer) spanCells(dx, dy float64) int {
	d := *r.locked
	norm := math.Hypot(float64(d.DC), float64(d.DR))
	proj := (dx*float64(d.DC) + dy*float64(d.DR)) / norm
	span := int(math.Floor(proj/r.cal.Stride)) + 1
	if span < 1 {
		span = 1
	}
	if span > maxSelection {
		span = maxSelection
	}
	return span
}

// quantizeDirection maps a displacement vector to the nearest of the 8
// compass directions. Sector 0 is east, each step rotates 45 degrees
// clockwise (screen coordinates, y down). An exact 22.5-degree boundary
// rounds away from zero, so the same displacement always picks the same
// sector.
func quantizeDirection(dx, dy float64) grid.Direction {
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	idx := int(math.Round(deg/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return grid.Directions[idx]
}

func pathsEqual(a, b []grid.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func pathsReversed(a, b []grid.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	n := len(a)
	for i := range a {
		if a[i] != b[n-1-i] {
			return false
		}
	}
	return true
}
