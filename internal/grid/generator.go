// internal/grid/generator.go
//
// Procedural placement of target words into a letter grid.
// Responsibilities:
//   - Place every word along a straight line in one of 8 directions.
//   - Allow crossings only where both words want the same letter.
//   - Retry from scratch when a word set does not fit; fall back to the
//     best partial layout rather than failing.
//   - Fill the remaining cells with random uppercase letters.
//
// Notes:
//   - Randomness comes exclusively from the injected *rand.Rand, so a
//     fixed seed reproduces the exact same board.
//   - Longer words are placed first: they have fewer candidate lines and
//     would otherwise be starved by short words grabbing space early.

package grid

import (
	"math/rand"
	"sort"
	"strings"
)

// maxBuildAttempts bounds how many times Generate restarts with a fresh
// grid before settling for the best partial layout.
const maxBuildAttempts = 100

// Generator places words into grids using an injected random source.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator constructs a Generator around rng. Pass
// rand.New(rand.NewSource(seed)) for reproducible boards.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate builds a size x size grid containing the given words. Words are
// uppercased before placement. The returned placements all have valid
// in-bounds straight-line paths whose letters agree with the grid; words
// that cannot be fit after repeated attempts are silently dropped, so the
// result is always playable even if smaller than requested.
func (gen *Generator) Generate(words []string, size int) (*Grid, []*WordPlacement) {
	targets := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w != "" {
			targets = append(targets, w)
		}
	}
	// Longest first; stable so equal-length words keep caller order.
	sort.SliceStable(targets, func(i, j int) bool {
		return len(targets[i]) > len(targets[j])
	})

	var bestGrid *Grid
	var bestPlaced []*WordPlacement
	for attempt := 0; attempt < maxBuildAttempts; attempt++ {
		g := NewGrid(size)
		placed := make([]*WordPlacement, 0, len(targets))
		for _, w := range targets {
			if p, ok := gen.placeWord(g, w); ok {
				placed = append(placed, p)
			}
		}
		if bestGrid == nil || len(placed) > len(bestPlaced) {
			bestGrid, bestPlaced = g, placed
		}
		if len(placed) == len(targets) {
			break
		}
	}

	gen.fillEmpty(bestGrid)
	return bestGrid, bestPlaced
}

// placeWord tries every (start, direction) pair from freshly shuffled
// pools and commits the first compatible line. Shuffling happens once per
// word, not per candidate, so layouts vary without bias toward the origin.
func (gen *Generator) placeWord(g *Grid, word string) (*WordPlacement, bool) {
	cells := gen.shuffledCells(g.Size)
	dirs := gen.shuffledDirections()

	for _, start := range cells {
		for _, dir := range dirs {
			path, ok := linePath(g, word, start, dir)
			if !ok {
				continue
			}
			for i, c := range path {
				g.Set(c, rune(word[i]))
			}
			return &WordPlacement{Word: word, Path: path}, true
		}
	}
	return nil, false
}

// linePath walks start along dir for len(word) steps and returns the path
// if every cell is in bounds and either unset or already holding the
// letter the word needs there.
func linePath(g *Grid, word string, start Cell, dir Direction) ([]Cell, bool) {
	path := make([]Cell, 0, len(word))
	c := start
	for i := 0; i < len(word); i++ {
		if !g.InBounds(c) {
			return nil, false
		}
		if got := g.At(c); got != 0 && got != rune(word[i]) {
			return nil, false
		}
		path = append(path, c)
		c = c.Step(dir)
	}
	return path, true
}

func (gen *Generator) shuffledCells(size int) []Cell {
	cells := make([]Cell, 0, size*size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			cells = append(cells, Cell{Row: r, Col: c})
		}
	}
	gen.rng.Shuffle(len(cells), func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})
	return cells
}

func (gen *Generator) shuffledDirections() []Direction {
	dirs := make([]Direction, len(Directions))
	copy(dirs, Directions[:])
	gen.rng.Shuffle(len(dirs), func(i, j int) {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	})
	return dirs
}

// fillEmpty writes a uniformly random uppercase letter into every cell the
// placement pass left unset.
func (gen *Generator) fillEmpty(g *Grid) {
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			cell := Cell{Row: r, Col: c}
			if g.At(cell) == 0 {
				g.Set(cell, rune('A'+gen.rng.Intn(26)))
			}
		}
	}
}
