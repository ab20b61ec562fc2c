package miner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

// StakeSource exposes the miner's view of the metagraph: which hotkeys are
// registered and how much stake they carry.
type StakeSource interface {
	// Stake returns a hotkey's stake and whether the hotkey is
	// registered at all.
	Stake(hotkey string) (uint64, bool)
}

// ErrBlacklisted is returned for requests rejected before simulation.
var ErrBlacklisted = errors.New("request blacklisted")

// Miner is the subnet's compute neuron.
type Miner struct {
	config     *protocol.SubnetConfig
	signingKey crypto.PrivateKey
	stakes     StakeSource

	mu           sync.RWMutex
	currentRound protocol.Round
}

// New creates a miner neuron.
func New(config *protocol.SubnetConfig, signingKey crypto.PrivateKey, stakes StakeSource) (*Miner, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subnet config: %w", err)
	}
	if stakes == nil {
		return nil, errors.New("stake source cannot be nil")
	}
	if _, err := signingKey.PublicKey(); err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	return &Miner{
		config:     config,
		signingKey: signingKey,
		stakes:     stakes,
	}, nil
}

// Hotkey returns the miner's public identity.
func (m *Miner) Hotkey() crypto.PublicKey {
	pub, _ := m.signingKey.PublicKey()
	return pub
}

// AdvanceToRound updates the miner's notion of the current round.
// Challenges for rounds older than the previous one are rejected as stale.
func (m *Miner) AdvanceToRound(round protocol.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if round.IsAfter(m.currentRound) {
		m.currentRound = round
	}
}

// Blacklist decides whether a caller's request should be rejected before
// any simulation work happens. Unregistered hotkeys and hotkeys below the
// validator stake threshold are refused.
func (m *Miner) Blacklist(hotkey crypto.PublicKey) (bool, string) {
	stake, registered := m.stakes.Stake(hotkey.String())
	if !registered {
		return true, "unrecognized hotkey"
	}
	if stake < m.config.MinValidatorStake {
		return true, fmt.Sprintf("stake %d below validator threshold %d", stake, m.config.MinValidatorStake)
	}
	return false, "hotkey recognized"
}

// Priority ranks a caller by stake. Higher values are served first when the
// miner is saturated.
func (m *Miner) Priority(hotkey crypto.PublicKey) float64 {
	stake, registered := m.stakes.Stake(hotkey.String())
	if !registered {
		return 0
	}
	return float64(stake)
}

// Handle verifies a signed challenge, runs the simulation, and returns the
// signed result. The caller's signature is checked first so forged
// requests never reach the engine.
func (m *Miner) Handle(ctx context.Context, req *protocol.Signed[protocol.SimulationChallenge]) (*protocol.Signed[protocol.SimulationResult], error) {
	challenge, signer, err := req.Recover()
	if err != nil {
		return nil, fmt.Errorf("invalid challenge signature: %w", err)
	}

	if blacklisted, reason := m.Blacklist(signer); blacklisted {
		return nil, fmt.Errorf("%w: %s", ErrBlacklisted, reason)
	}

	if err := challenge.Validate(m.config); err != nil {
		return nil, fmt.Errorf("invalid challenge: %w", err)
	}

	m.mu.RLock()
	current := m.currentRound
	m.mu.RUnlock()
	if challenge.RoundNumber < current.Number-1 {
		return nil, fmt.Errorf("stale challenge for round %d, current round is %d", challenge.RoundNumber, current.Number)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	history, err := challenge.Run()
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	elapsed := time.Since(started)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := ca.EncodeHistory(history)
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}

	result := &protocol.SimulationResult{
		RoundNumber:     challenge.RoundNumber,
		ChallengeDigest: challenge.Digest(),
		Payload:         payload,
		HistoryDigest:   ca.DigestHistory(history),
		ComputeTime:     elapsed,
	}

	signed, err := protocol.NewSigned(m.signingKey, result)
	if err != nil {
		return nil, fmt.Errorf("signing result: %w", err)
	}
	return signed, nil
}
