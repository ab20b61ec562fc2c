// Package validator implements the validator neuron: challenge generation,
// miner sampling, result verification, scoring, and weight computation.
//
// A validator round proceeds as follows. The validator draws a random
// challenge (rule, geometry, step count, seed) within the limits of the
// subnet configuration and sends it, signed, to a random sample of miners.
// Each response is verified by recomputing the evolution locally, which
// the challenge seed makes exact, and scored 1 for a correct history and
// 0 otherwise. Per-miner scores are folded into an exponential moving
// average, and the averages are normalized into weights that the validator
// submits to the registry.
//
// Like the miner package, this package is transport-agnostic: miners are
// reached through the MinerClient interface, and the services package
// provides the HTTP implementation.
package validator
