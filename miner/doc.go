// Package miner implements the miner neuron: it accepts signed simulation
// challenges from validators, enforces blacklist and stake-priority
// policies, runs the requested cellular automata evolution, and returns a
// signed result.
//
// The package is transport-agnostic. HTTP plumbing lives in the services
// package; everything here operates on protocol messages directly so the
// policies can be tested without a network.
package miner
