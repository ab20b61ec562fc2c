// Package ca implements the cellular automata simulation engine used by
// miners and validators.
//
// The engine supports one-dimensional elementary automata (Wolfram/NKS rule
// numbering) and two-dimensional outer-totalistic automata (Conway's Game of
// Life and its variants, plus the three-state Brian's Brain). Grids use
// cyclic boundary conditions, so the neighbourhood of a cell on an edge
// wraps around to the opposite side.
//
// # Determinism
//
// Every operation in this package is deterministic. Initial grids are
// derived from a challenge seed, and evolving the same initial grid with
// the same rule always produces the same history. Validators rely on this
// to verify miner results with an exact digest comparison instead of
// re-checking individual cells.
//
// # Histories
//
// Evolve1D and Evolve2D return the full evolution history, generation by
// generation, including the initial state. A history over s steps therefore
// contains s+1 generations. Histories serialize to a JSON envelope holding
// the base64-encoded raw cell buffer together with its shape and dtype,
// which keeps payloads compact and lets receivers validate geometry before
// touching cell data.
package ca
