package validator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

// MinerClient reaches a single miner. The services package implements it
// over HTTP; tests implement it in-process.
type MinerClient interface {
	// Hotkey returns the miner's identity.
	Hotkey() string

	// Simulate sends a signed challenge and returns the signed result.
	Simulate(ctx context.Context, req *protocol.ChallengeRequest) (*protocol.ChallengeResponse, error)
}

// RoundReport summarizes one completed validator round.
type RoundReport struct {
	Challenge *protocol.SimulationChallenge
	Verdicts  []Verdict
	// Weights are the normalized smoothed scores after this round, nil
	// when every score is zero.
	Weights map[string]float64
	// Winning holds the verified history of the first correct response,
	// for display purposes.
	Winning *ca.History
}

// Validator is the subnet's scoring neuron.
type Validator struct {
	config     *protocol.SubnetConfig
	signingKey crypto.PrivateKey
	state      *State

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a validator neuron with the given score state. Pass a seeded
// rng for reproducible challenge generation in tests; a nil rng seeds from
// crypto-quality randomness.
func New(config *protocol.SubnetConfig, signingKey crypto.PrivateKey, state *State, rng *rand.Rand) (*Validator, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subnet config: %w", err)
	}
	if state == nil {
		state = NewState()
	}
	if rng == nil {
		seed, err := randomSeed()
		if err != nil {
			return nil, err
		}
		rng = rand.New(rand.NewSource(seed))
	}
	if _, err := signingKey.PublicKey(); err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	return &Validator{
		config:     config,
		signingKey: signingKey,
		state:      state,
		rng:        rng,
	}, nil
}

// Hotkey returns the validator's public identity.
func (v *Validator) Hotkey() crypto.PublicKey {
	pub, _ := v.signingKey.PublicKey()
	return pub
}

// State exposes the validator's score state for persistence.
func (v *Validator) State() *State {
	return v.state
}

// RunRound executes a full validator round against the given miners:
// sample, challenge, query, verify, score. It returns a report with the
// resulting weights. An empty miner list skips the round without error.
func (v *Validator) RunRound(ctx context.Context, roundNumber int, miners []MinerClient) (*RoundReport, error) {
	v.mu.Lock()
	sample := SampleHotkeys(miners, v.config.SampleSize, v.rng)
	challenge := GenerateChallenge(v.config, roundNumber, v.rng)
	v.mu.Unlock()

	if len(sample) == 0 {
		return &RoundReport{Challenge: challenge}, nil
	}

	expectedHistory, err := challenge.Run()
	if err != nil {
		return nil, fmt.Errorf("computing expected evolution: %w", err)
	}
	expected := ca.DigestHistory(expectedHistory)

	signedChallenge, err := protocol.NewSigned(v.signingKey, challenge)
	if err != nil {
		return nil, fmt.Errorf("signing challenge: %w", err)
	}
	request := &protocol.ChallengeRequest{Challenge: signedChallenge}

	responses := make([]*protocol.ChallengeResponse, len(sample))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, m := range sample {
		i, m := i, m
		group.Go(func() error {
			resp, err := m.Simulate(groupCtx, request)
			if err != nil {
				// A failed query scores zero; it does not abort
				// the round for the other miners.
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &RoundReport{Challenge: challenge}
	for i, m := range sample {
		verdict := v.judge(m, challenge, expected, responses[i])
		if verdict.Correct && report.Winning == nil {
			if history, err := ca.DecodeHistory(responses[i].Result.UnsafeObject().Payload); err == nil {
				report.Winning = history
			}
		}
		v.state.UpdateScore(verdict.Hotkey, verdict.Score(), roundNumber, v.config.ScoreAlpha)
		report.Verdicts = append(report.Verdicts, verdict)
	}

	report.Weights = NormalizeWeights(v.state.Scores())
	return report, nil
}

func (v *Validator) judge(m MinerClient, challenge *protocol.SimulationChallenge, expected crypto.Hash, resp *protocol.ChallengeResponse) Verdict {
	if resp == nil || resp.Result == nil {
		return Verdict{Hotkey: m.Hotkey(), Reason: "no response"}
	}

	signer, err := VerifyResult(challenge, expected, resp.Result)
	if err != nil {
		return Verdict{Hotkey: m.Hotkey(), Reason: err.Error()}
	}
	if signer.String() != m.Hotkey() {
		return Verdict{Hotkey: m.Hotkey(), Reason: "result signed by a different hotkey"}
	}
	return Verdict{Hotkey: m.Hotkey(), Correct: true}
}

// WeightSubmission builds the signed weight message for the registry, or
// nil when there are no weights to submit.
func (v *Validator) WeightSubmission(roundNumber int) (*protocol.Signed[protocol.WeightSubmission], error) {
	weights := NormalizeWeights(v.state.Scores())
	if weights == nil {
		return nil, nil
	}
	return protocol.NewSigned(v.signingKey, &protocol.WeightSubmission{
		RoundNumber: roundNumber,
		Weights:     weights,
	})
}
