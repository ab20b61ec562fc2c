package ca

import (
	"errors"
	"fmt"
	"strings"
)

// Neighbourhood selects which cells around a cell count as neighbours in
// two-dimensional evolution.
type Neighbourhood string

const (
	// Moore includes all cells within Chebyshev distance r.
	Moore Neighbourhood = "moore"
	// VonNeumann includes all cells within Manhattan distance r.
	VonNeumann Neighbourhood = "vonneumann"
)

// ParseNeighbourhood resolves a neighbourhood name, tolerating the spaced
// and capitalized spellings used in challenge parameters.
func ParseNeighbourhood(name string) (Neighbourhood, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "")) {
	case "", "moore":
		return Moore, nil
	case "vonneumann":
		return VonNeumann, nil
	}
	return "", fmt.Errorf("unknown neighbourhood %q", name)
}

// Evolve1D runs a one-dimensional automaton for the given number of steps
// with neighbourhood radius r and returns the full history, initial
// generation included.
func Evolve1D(initial Grid, steps int, rule Rule1D, r int) (*History, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	if initial.Height != 1 {
		return nil, fmt.Errorf("one-dimensional rule %s applied to %dx%d grid", rule.Name(), initial.Height, initial.Width)
	}
	if steps < 0 {
		return nil, errors.New("steps must be non-negative")
	}
	if r < 1 {
		return nil, fmt.Errorf("invalid radius %d", r)
	}

	history := &History{Dim: 1, Generations: make([]Grid, 0, steps+1)}
	current := initial.Clone()
	history.Generations = append(history.Generations, current)

	window := make([]Cell, 2*r+1)
	for step := 0; step < steps; step++ {
		next := NewGrid(1, current.Width)
		for col := 0; col < current.Width; col++ {
			for i := -r; i <= r; i++ {
				window[i+r] = current.At(0, col+i)
			}
			next.Set(0, col, rule.NextCell(window))
		}
		history.Generations = append(history.Generations, next)
		current = next
	}
	return history, nil
}

// Evolve2D runs a two-dimensional automaton for the given number of steps
// and returns the full history, initial generation included. Neighbour
// counts tally cells in state 1 within the neighbourhood, excluding the
// cell itself.
func Evolve2D(initial Grid, steps int, rule Rule2D, r int, n Neighbourhood) (*History, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	if initial.Height < 2 {
		return nil, fmt.Errorf("two-dimensional rule %s applied to %dx%d grid", rule.Name(), initial.Height, initial.Width)
	}
	if steps < 0 {
		return nil, errors.New("steps must be non-negative")
	}
	if r < 1 {
		return nil, fmt.Errorf("invalid radius %d", r)
	}
	if n != Moore && n != VonNeumann {
		return nil, fmt.Errorf("unknown neighbourhood %q", n)
	}

	history := &History{Dim: 2, Generations: make([]Grid, 0, steps+1)}
	current := initial.Clone()
	history.Generations = append(history.Generations, current)

	for step := 0; step < steps; step++ {
		next := NewGrid(current.Height, current.Width)
		for row := 0; row < current.Height; row++ {
			for col := 0; col < current.Width; col++ {
				live := countLive(current, row, col, r, n)
				next.Set(row, col, rule.NextCell(live, current.At(row, col)))
			}
		}
		history.Generations = append(history.Generations, next)
		current = next
	}
	return history, nil
}

func countLive(g Grid, row, col, r int, n Neighbourhood) int {
	live := 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			if n == VonNeumann && abs(dy)+abs(dx) > r {
				continue
			}
			if g.At(row+dy, col+dx) == 1 {
				live++
			}
		}
	}
	return live
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// Evolve dispatches on the rule's dimension. One-dimensional rules ignore
// the neighbourhood parameter.
func Evolve(initial Grid, steps int, rule Rule, r int, n Neighbourhood) (*History, error) {
	switch rule := rule.(type) {
	case Rule1D:
		return Evolve1D(initial, steps, rule, r)
	case Rule2D:
		return Evolve2D(initial, steps, rule, r, n)
	}
	return nil, fmt.Errorf("rule %s implements no evolution interface", rule.Name())
}
