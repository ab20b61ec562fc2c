package ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_WrapAccess(t *testing.T) {
	g := NewGrid(3, 3)
	g.Set(0, 0, 1)

	assert.Equal(t, Cell(1), g.At(0, 0))
	assert.Equal(t, Cell(1), g.At(3, 3))
	assert.Equal(t, Cell(1), g.At(-3, -3))
	assert.Equal(t, Cell(0), g.At(1, 1))
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	g := NewGrid(2, 2)
	c := g.Clone()
	c.Set(0, 0, 1)

	assert.Equal(t, Cell(0), g.At(0, 0))
	assert.Equal(t, Cell(1), c.At(0, 0))
}

func TestGrid_Validate(t *testing.T) {
	assert.NoError(t, NewGrid(2, 3).Validate())

	bad := Grid{Height: 2, Width: 2, Cells: make([]Cell, 3)}
	assert.Error(t, bad.Validate())
	assert.Error(t, Grid{Height: 0, Width: 4}.Validate())
}

func TestInitSimple_CenterCell(t *testing.T) {
	row := InitSimple1D(9)
	assert.Equal(t, Cell(1), row.At(0, 4))
	sum := 0
	for _, c := range row.Cells {
		sum += int(c)
	}
	assert.Equal(t, 1, sum)

	grid := InitSimple2D(6, 8)
	assert.Equal(t, Cell(1), grid.At(3, 4))
}

func TestInitRandom_DeterministicPerSeed(t *testing.T) {
	a := InitRandom2D(20, 20, 0.5, 7)
	b := InitRandom2D(20, 20, 0.5, 7)
	c := InitRandom2D(20, 20, 0.5, 8)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestInitRandom_DensityBounds(t *testing.T) {
	empty := InitRandom1D(100, 0, 1)
	full := InitRandom1D(100, 1, 1)

	for i := 0; i < 100; i++ {
		assert.Equal(t, Cell(0), empty.Cells[i])
		assert.Equal(t, Cell(1), full.Cells[i])
	}
}

func TestHistory_Validate(t *testing.T) {
	h := &History{Dim: 2, Generations: []Grid{NewGrid(3, 3), NewGrid(3, 3)}}
	require.NoError(t, h.Validate())

	mismatched := &History{Dim: 2, Generations: []Grid{NewGrid(3, 3), NewGrid(4, 3)}}
	assert.Error(t, mismatched.Validate())

	empty := &History{Dim: 2}
	assert.Error(t, empty.Validate())

	wrongDim := &History{Dim: 1, Generations: []Grid{NewGrid(3, 3)}}
	assert.Error(t, wrongDim.Validate())
}

func TestRender(t *testing.T) {
	g := gridFromStrings(
		".#.",
		"#*#",
	)
	assert.Equal(t, ".#.\n#*#", Render(g))
}
