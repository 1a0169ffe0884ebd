// internal/grid/types.go
//
// Core type definitions for the word-search grid.
// Defines:
//   - Cell: a (row, col) coordinate on the board.
//   - Direction: one of the 8 unit step vectors a word may run along.
//   - Grid: the square letter board.
//   - WordPlacement: a word's realized path of cells, plus found state.

package grid

// Cell is a single board coordinate. Row and Col are zero-based.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Direction is a unit step vector. DR/DC are each -1, 0 or 1 and never
// both zero.
type Direction struct {
	DR int
	DC int
}

// Step returns the cell one step from c along d.
func (c Cell) Step(d Direction) Cell {
	return Cell{Row: c.Row + d.DR, Col: c.Col + d.DC}
}

// Directions lists the 8 compass directions in angle-quantization order:
// index i covers the sector at i*45 degrees, measured clockwise from east
// in screen coordinates (y grows downward). The gesture package relies on
// this ordering.
var Directions = [8]Direction{
	{0, 1},   // east
	{1, 1},   // south-east
	{1, 0},   // south
	{1, -1},  // south-west
	{0, -1},  // west
	{-1, -1}, // north-west
	{-1, 0},  // north
	{-1, 1},  // north-east
}

// Grid is a square letter board. Letters are uppercase A-Z once generation
// completes; the zero rune marks a cell not yet written.
type Grid struct {
	Size    int
	letters [][]rune
}

// NewGrid returns an empty size x size grid.
func NewGrid(size int) *Grid {
	letters := make([][]rune, size)
	for i := range letters {
		letters[i] = make([]rune, size)
	}
	return &Grid{Size: size, letters: letters}
}

// InBounds reports whether c lies on the board.
func (g *Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.Size && c.Col >= 0 && c.Col < g.Size
}

// At returns the letter at c, or 0 if the cell is unset.
func (g *Grid) At(c Cell) rune { return g.letters[c.Row][c.Col] }

// Set writes a letter at c.
func (g *Grid) Set(c Cell, r rune) { g.letters[c.Row][c.Col] = r }

// Rows returns the board as a slice of strings, one per row. Useful for
// transport and for test assertions.
func (g *Grid) Rows() []string {
	out := make([]string, g.Size)
	for i, row := range g.letters {
		out[i] = string(row)
	}
	return out
}

// WordPlacement records where a word lives in the grid. Path holds one
// cell per letter, consecutive cells separated by a constant Direction.
// Found flips to true exactly once, when a selection matches the path.
type WordPlacement struct {
	Word  string `json:"word"`
	Path  []Cell `json:"path"`
	Found bool   `json:"found"`
}
