// Package crypto provides the identity and commitment primitives for the
// subnet: Ed25519 hotkeys for signing protocol messages and SHA3-256
// digests for committing to simulation outputs.
package crypto
