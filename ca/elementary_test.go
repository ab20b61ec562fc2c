package ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowFromString(s string) Grid {
	g := NewGrid(1, len(s))
	for i, c := range s {
		if c == '#' {
			g.Cells[i] = 1
		}
	}
	return g
}

func rowString(g Grid) string {
	return Render(g)
}

func TestRule30_KnownEvolution(t *testing.T) {
	rule, err := NewElementaryRule(30)
	require.NoError(t, err)

	history, err := Evolve1D(InitSimple1D(7), 2, rule, 1)
	require.NoError(t, err)
	require.Len(t, history.Generations, 3)

	assert.Equal(t, "...#...", rowString(history.Generations[0]))
	assert.Equal(t, "..###..", rowString(history.Generations[1]))
	assert.Equal(t, ".##..#.", rowString(history.Generations[2]))
}

func TestRule110_KnownEvolution(t *testing.T) {
	rule, err := NewElementaryRule(110)
	require.NoError(t, err)

	history, err := Evolve1D(InitSimple1D(7), 2, rule, 1)
	require.NoError(t, err)

	assert.Equal(t, "...#...", rowString(history.Generations[0]))
	assert.Equal(t, "..##...", rowString(history.Generations[1]))
	assert.Equal(t, ".###...", rowString(history.Generations[2]))
}

func TestRule90_SierpinskiStep(t *testing.T) {
	rule, err := NewElementaryRule(90)
	require.NoError(t, err)

	history, err := Evolve1D(InitSimple1D(7), 2, rule, 1)
	require.NoError(t, err)

	// Rule 90 XORs the two outer neighbours.
	assert.Equal(t, "..#.#..", rowString(history.Generations[1]))
	assert.Equal(t, ".#...#.", rowString(history.Generations[2]))
}

func TestRule0_Extinction(t *testing.T) {
	rule, err := NewElementaryRule(0)
	require.NoError(t, err)

	history, err := Evolve1D(rowFromString("#.##.#"), 1, rule, 1)
	require.NoError(t, err)
	assert.Equal(t, "......", rowString(history.Last()))
}

func TestNewElementaryRule_Range(t *testing.T) {
	_, err := NewElementaryRule(-1)
	assert.Error(t, err)

	_, err = NewElementaryRule(256)
	assert.Error(t, err)

	r, err := NewElementaryRule(255)
	require.NoError(t, err)
	assert.Equal(t, "rule255", r.Name())
}
