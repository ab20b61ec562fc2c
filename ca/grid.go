package ca

import (
	"errors"
	"fmt"
	"math/rand"
)

// Cell is a single automaton cell state. Life-family rules use 0 (dead) and
// 1 (live); Brian's Brain additionally uses 2 (dying).
type Cell = uint8

// Grid is a dense row-major cell buffer. One-dimensional grids have
// Height == 1.
type Grid struct {
	Height int
	Width  int
	Cells  []Cell
}

// NewGrid allocates a zeroed grid of the given dimensions.
func NewGrid(height, width int) Grid {
	return Grid{
		Height: height,
		Width:  width,
		Cells:  make([]Cell, height*width),
	}
}

// At returns the cell at (row, col) with cyclic boundary wrapping.
func (g Grid) At(row, col int) Cell {
	row = wrap(row, g.Height)
	col = wrap(col, g.Width)
	return g.Cells[row*g.Width+col]
}

// Set stores a cell value at (row, col) without wrapping.
func (g Grid) Set(row, col int, v Cell) {
	g.Cells[row*g.Width+col] = v
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	cells := make([]Cell, len(g.Cells))
	copy(cells, g.Cells)
	return Grid{Height: g.Height, Width: g.Width, Cells: cells}
}

// Equal reports whether two grids have identical geometry and cells.
func (g Grid) Equal(other Grid) bool {
	if g.Height != other.Height || g.Width != other.Width {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != other.Cells[i] {
			return false
		}
	}
	return true
}

// Validate checks geometry consistency.
func (g Grid) Validate() error {
	if g.Height <= 0 || g.Width <= 0 {
		return fmt.Errorf("invalid grid dimensions %dx%d", g.Height, g.Width)
	}
	if len(g.Cells) != g.Height*g.Width {
		return fmt.Errorf("cell buffer length %d does not match %dx%d grid", len(g.Cells), g.Height, g.Width)
	}
	return nil
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// InitSimple1D returns a width-long row with a single live cell in the
// center, the canonical starting state for elementary automata.
func InitSimple1D(width int) Grid {
	g := NewGrid(1, width)
	g.Set(0, width/2, 1)
	return g
}

// InitSimple2D returns a height x width grid with a single live center cell.
func InitSimple2D(height, width int) Grid {
	g := NewGrid(height, width)
	g.Set(height/2, width/2, 1)
	return g
}

// InitRandom1D returns a seeded random row where each cell is live with the
// given density. The same seed always yields the same grid.
func InitRandom1D(width int, density float64, seed int64) Grid {
	return initRandom(1, width, density, seed)
}

// InitRandom2D returns a seeded random grid where each cell is live with the
// given density.
func InitRandom2D(height, width int, density float64, seed int64) Grid {
	return initRandom(height, width, density, seed)
}

func initRandom(height, width int, density float64, seed int64) Grid {
	g := NewGrid(height, width)
	rng := rand.New(rand.NewSource(seed))
	for i := range g.Cells {
		if rng.Float64() < density {
			g.Cells[i] = 1
		}
	}
	return g
}

// History is a full automaton evolution: the initial generation followed by
// one generation per step.
type History struct {
	// Dim is 1 for elementary automata and 2 for grid automata. It
	// controls the serialized shape of the history.
	Dim         int
	Generations []Grid
}

// Shape returns the serialized array shape: (generations, width) for 1D
// histories and (generations, height, width) for 2D.
func (h *History) Shape() []int {
	if len(h.Generations) == 0 {
		return nil
	}
	first := h.Generations[0]
	if h.Dim == 1 {
		return []int{len(h.Generations), first.Width}
	}
	return []int{len(h.Generations), first.Height, first.Width}
}

// Last returns the final generation.
func (h *History) Last() Grid {
	return h.Generations[len(h.Generations)-1]
}

// Flatten concatenates all generations into a single cell buffer in
// generation order.
func (h *History) Flatten() []Cell {
	if len(h.Generations) == 0 {
		return nil
	}
	cells := make([]Cell, 0, len(h.Generations)*len(h.Generations[0].Cells))
	for _, g := range h.Generations {
		cells = append(cells, g.Cells...)
	}
	return cells
}

// Validate checks that all generations share geometry consistent with Dim.
func (h *History) Validate() error {
	if h.Dim != 1 && h.Dim != 2 {
		return fmt.Errorf("invalid history dimension %d", h.Dim)
	}
	if len(h.Generations) == 0 {
		return errors.New("history has no generations")
	}
	first := h.Generations[0]
	for i, g := range h.Generations {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("generation %d: %w", i, err)
		}
		if g.Height != first.Height || g.Width != first.Width {
			return fmt.Errorf("generation %d geometry %dx%d differs from %dx%d", i, g.Height, g.Width, first.Height, first.Width)
		}
	}
	if h.Dim == 1 && first.Height != 1 {
		return fmt.Errorf("one-dimensional history has height %d", first.Height)
	}
	return nil
}
