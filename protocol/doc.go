// Package protocol defines the wire types and round machinery of the
// automata subnet.
//
// # Roles
//
// The subnet has three participant roles:
//
//   - Miners run cellular automata simulations on request and return the
//     full evolution history together with a digest commitment.
//   - Validators generate randomized simulation challenges each round,
//     query a sample of miners, verify results by deterministic
//     re-simulation, and publish normalized weights.
//   - The registry (the metagraph service) tracks registered neurons,
//     their stake, and validator weight submissions.
//
// # Rounds
//
// Time is divided into fixed-duration rounds. Each round passes through
// four phases: Challenge (validators issue challenges), Compute (miners
// simulate), Score (validators verify and score), and Weights (validators
// submit weight updates to the registry). Round numbers and phases are
// derived from wall-clock time, so independently started services agree on
// the current round without coordination.
//
// # Authentication
//
// Every message that carries authority (registrations, simulation
// results, weight submissions) travels inside a Signed envelope: an
// Ed25519 signature over the serialized object concatenated with the
// signer's public key. Receivers recover the signer and compare it against
// the claimed hotkey.
//
// # Determinism
//
// A SimulationChallenge fully determines its outcome: the initial grid is
// derived from the challenge seed and the evolution is deterministic.
// Validators therefore verify a result by recomputing the evolution and
// comparing SHA3-256 digests, never by trusting reported cell data.
package protocol
