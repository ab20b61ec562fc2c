package testutil

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

// TestConfigOption is a function that modifies a SubnetConfig for testing.
type TestConfigOption func(*protocol.SubnetConfig)

// WithRoundDuration sets the round duration.
func WithRoundDuration(duration time.Duration) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.RoundDuration = duration
	}
}

// WithSampleSize sets how many miners a validator queries per round.
func WithSampleSize(size int) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.SampleSize = size
	}
}

// WithGridSize sets the challenge grid dimensions.
func WithGridSize(width, height int) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.GridWidth = width
		config.GridHeight = height
	}
}

// WithStepRange bounds the step count of generated challenges.
func WithStepRange(minSteps, maxSteps int) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.MinSteps = minSteps
		config.MaxSteps = maxSteps
	}
}

// WithMinValidatorStake sets the stake threshold miners enforce.
func WithMinValidatorStake(stake uint64) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.MinValidatorStake = stake
	}
}

// WithScoreAlpha sets the EMA smoothing factor.
func WithScoreAlpha(alpha float64) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.ScoreAlpha = alpha
	}
}

// WithRules restricts the challenge rule pool.
func WithRules(rules ...string) TestConfigOption {
	return func(config *protocol.SubnetConfig) {
		config.Rules = rules
	}
}

// NewTestConfig creates a SubnetConfig sized for fast tests: small grids,
// few steps, short rounds. Options override individual fields.
func NewTestConfig(options ...TestConfigOption) *protocol.SubnetConfig {
	config := protocol.DefaultSubnetConfig()
	config.RoundDuration = time.Second
	config.SampleSize = 4
	config.MinSteps = 2
	config.MaxSteps = 5
	config.GridWidth = 16
	config.GridHeight = 16
	config.MinValidatorStake = 100

	for _, option := range options {
		option(config)
	}

	return config
}

// GenerateRandomBytes creates cryptographically secure random bytes of the
// specified length.
func GenerateRandomBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}

// GenerateTestKeyPair creates a new key pair for testing.
func GenerateTestKeyPair() (crypto.PublicKey, crypto.PrivateKey, error) {
	return crypto.GenerateKeyPair()
}

// GenerateTestPublicKeys creates the specified number of public keys.
func GenerateTestPublicKeys(count int) ([]crypto.PublicKey, error) {
	keys := make([]crypto.PublicKey, count)
	for i := 0; i < count; i++ {
		pub, _, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		keys[i] = pub
	}
	return keys, nil
}

// ChallengeOption is a function that modifies a SimulationChallenge.
type ChallengeOption func(*protocol.SimulationChallenge)

// WithRound sets the challenge's round number.
func WithRound(round int) ChallengeOption {
	return func(challenge *protocol.SimulationChallenge) {
		challenge.RoundNumber = round
	}
}

// WithRule sets the automaton rule and adjusts the geometry to match its
// dimension.
func WithRule(name string) ChallengeOption {
	return func(challenge *protocol.SimulationChallenge) {
		challenge.Rule = name
		if rule, err := ca.Lookup(name); err == nil {
			challenge.Dimension = rule.Dimension()
			if rule.Dimension() == 1 {
				challenge.Height = 0
				challenge.Neighbourhood = ""
			}
		}
	}
}

// WithSeed sets the initial grid seed.
func WithSeed(seed int64) ChallengeOption {
	return func(challenge *protocol.SimulationChallenge) {
		challenge.Seed = seed
	}
}

// WithSteps sets the number of evolution steps.
func WithSteps(steps int) ChallengeOption {
	return func(challenge *protocol.SimulationChallenge) {
		challenge.Steps = steps
	}
}

// WithNeighbourhood sets the 2D neighbourhood.
func WithNeighbourhood(n ca.Neighbourhood) ChallengeOption {
	return func(challenge *protocol.SimulationChallenge) {
		challenge.Neighbourhood = string(n)
	}
}

// GenerateTestChallenge creates a deterministic Conway challenge within the
// config's limits. Options customize individual fields.
func GenerateTestChallenge(config *protocol.SubnetConfig, options ...ChallengeOption) *protocol.SimulationChallenge {
	challenge := &protocol.SimulationChallenge{
		RoundNumber:   1,
		Rule:          "conway",
		Dimension:     2,
		Width:         config.GridWidth,
		Height:        config.GridHeight,
		Steps:         config.MinSteps,
		Seed:          42,
		Density:       config.Density,
		Neighbourhood: string(ca.Moore),
		Radius:        1,
	}

	for _, option := range options {
		option(challenge)
	}

	return challenge
}

// GenerateSignedChallenge creates a signed challenge envelope the way a
// validator sends it to miners.
func GenerateSignedChallenge(signingKey crypto.PrivateKey, config *protocol.SubnetConfig, options ...ChallengeOption) (*protocol.Signed[protocol.SimulationChallenge], error) {
	return protocol.NewSigned(signingKey, GenerateTestChallenge(config, options...))
}

// GenerateHonestResult simulates the challenge and signs the resulting
// history, mirroring what a correct miner produces.
func GenerateHonestResult(signingKey crypto.PrivateKey, challenge *protocol.SimulationChallenge) (*protocol.Signed[protocol.SimulationResult], error) {
	history, err := challenge.Run()
	if err != nil {
		return nil, fmt.Errorf("running challenge: %w", err)
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
		ComputeTime:     time.Millisecond,
	}

	return protocol.NewSigned(signingKey, result)
}

// GenerateTamperedResult produces a signed result whose payload comes from
// a different seed than the challenge asked for. The signature is valid so
// only re-simulation detects the cheat.
func GenerateTamperedResult(signingKey crypto.PrivateKey, challenge *protocol.SimulationChallenge) (*protocol.Signed[protocol.SimulationResult], error) {
	wrong := *challenge
	wrong.Seed++

	history, err := wrong.Run()
	if err != nil {
		return nil, fmt.Errorf("running tampered challenge: %w", err)
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
		ComputeTime:     time.Millisecond,
	}

	return protocol.NewSigned(signingKey, result)
}

// ExtractHistory decodes the history carried by a simulation result.
func ExtractHistory(result *protocol.SimulationResult) (*ca.History, error) {
	return ca.DecodeHistory(result.Payload)
}

// StaticStakes is a fixed hotkey-to-stake table satisfying the miner's
// stake source interface.
type StaticStakes map[string]uint64

func (s StaticStakes) Stake(hotkey string) (uint64, bool) {
	stake, ok := s[hotkey]
	return stake, ok
}
