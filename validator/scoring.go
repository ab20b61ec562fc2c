package validator

import (
	"errors"
	"fmt"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

// VerifyResult checks a miner's signed response against the challenge that
// produced it. It returns the verified signer hotkey, or an error naming
// the first check that failed.
//
// Checks, in order: envelope signature, round and challenge binding,
// payload decodability, digest consistency between payload and claimed
// digest, and finally equality with the validator's own recomputed
// evolution.
func VerifyResult(challenge *protocol.SimulationChallenge, expected crypto.Hash, response *protocol.Signed[protocol.SimulationResult]) (crypto.PublicKey, error) {
	if response == nil || response.Object == nil {
		return nil, errors.New("empty response")
	}

	result, signer, err := response.Recover()
	if err != nil {
		return nil, fmt.Errorf("invalid result signature: %w", err)
	}

	if result.RoundNumber != challenge.RoundNumber {
		return signer, fmt.Errorf("result for round %d, challenge is round %d", result.RoundNumber, challenge.RoundNumber)
	}
	if result.ChallengeDigest != challenge.Digest() {
		return signer, errors.New("result bound to a different challenge")
	}

	history, err := ca.DecodeHistory(result.Payload)
	if err != nil {
		return signer, fmt.Errorf("undecodable payload: %w", err)
	}

	payloadDigest := ca.DigestHistory(history)
	if payloadDigest != result.HistoryDigest {
		return signer, errors.New("payload does not match claimed digest")
	}
	if payloadDigest != expected {
		return signer, errors.New("incorrect evolution")
	}

	return signer, nil
}

// Verdict records the outcome of one miner query in a round.
type Verdict struct {
	Hotkey  string
	Correct bool
	// Reason is empty for correct results.
	Reason string
}

// Score maps a verdict to the round score: 1 for a verified correct
// history, 0 otherwise.
func (v Verdict) Score() float64 {
	if v.Correct {
		return 1
	}
	return 0
}

// NormalizeWeights converts smoothed scores into weights summing to 1.
// When every score is zero there is nothing to express and nil is
// returned; the caller skips weight submission for the round.
func NormalizeWeights(scores map[string]float64) map[string]float64 {
	total := 0.0
	for _, s := range scores {
		if s > 0 {
			total += s
		}
	}
	if total == 0 {
		return nil
	}

	weights := make(map[string]float64, len(scores))
	for hotkey, s := range scores {
		if s > 0 {
			weights[hotkey] = s / total
		}
	}
	return weights
}
