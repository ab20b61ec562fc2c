package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
)

// SimulationChallenge is a validator's work assignment for a round. The
// challenge fully determines the expected result: the initial grid is
// derived from Seed and Density, and the evolution is deterministic.
type SimulationChallenge struct {
	RoundNumber int    `json:"round_number"`
	Rule        string `json:"rule"`
	// Dimension is 1 for elementary automata and 2 for grid automata.
	Dimension int `json:"dimension"`
	Width     int `json:"width"`
	// Height is ignored for one-dimensional challenges.
	Height int   `json:"height,omitempty"`
	Steps  int   `json:"steps"`
	Seed   int64 `json:"seed"`
	// Density is the live-cell probability of the initial grid. Zero
	// means a single live center cell.
	Density       float64 `json:"density,omitempty"`
	Neighbourhood string  `json:"neighbourhood,omitempty"`
	Radius        int     `json:"radius"`
}

// Validate checks challenge parameters against the subnet configuration
// limits.
func (c *SimulationChallenge) Validate(cfg *SubnetConfig) error {
	if _, err := ca.Lookup(c.Rule); err != nil {
		return err
	}
	if c.Dimension != 1 && c.Dimension != 2 {
		return fmt.Errorf("invalid dimension %d", c.Dimension)
	}
	if c.Width <= 0 || (c.Dimension == 2 && c.Height <= 0) {
		return fmt.Errorf("invalid grid geometry %dx%d", c.Height, c.Width)
	}
	if c.Steps < cfg.MinSteps || c.Steps > cfg.MaxSteps {
		return fmt.Errorf("steps %d outside allowed range %d..%d", c.Steps, cfg.MinSteps, cfg.MaxSteps)
	}
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("invalid density %f", c.Density)
	}
	if c.Radius < 1 {
		return fmt.Errorf("invalid radius %d", c.Radius)
	}
	if _, err := ca.ParseNeighbourhood(c.Neighbourhood); err != nil {
		return err
	}
	return nil
}

// InitialGrid derives the deterministic starting grid for the challenge.
func (c *SimulationChallenge) InitialGrid() ca.Grid {
	if c.Dimension == 1 {
		if c.Density > 0 {
			return ca.InitRandom1D(c.Width, c.Density, c.Seed)
		}
		return ca.InitSimple1D(c.Width)
	}
	if c.Density > 0 {
		return ca.InitRandom2D(c.Height, c.Width, c.Density, c.Seed)
	}
	return ca.InitSimple2D(c.Height, c.Width)
}

// Run executes the challenge and returns the full evolution history. Miner
// and validator both call this; their digests agree exactly when the miner
// computed honestly.
func (c *SimulationChallenge) Run() (*ca.History, error) {
	rule, err := ca.Lookup(c.Rule)
	if err != nil {
		return nil, err
	}
	if rule.Dimension() != c.Dimension {
		return nil, fmt.Errorf("rule %s is %d-dimensional, challenge says %d", c.Rule, rule.Dimension(), c.Dimension)
	}
	neighbourhood, err := ca.ParseNeighbourhood(c.Neighbourhood)
	if err != nil {
		return nil, err
	}
	return ca.Evolve(c.InitialGrid(), c.Steps, rule, c.Radius, neighbourhood)
}

// Digest commits to all challenge parameters. Results carry it back so a
// response cannot be bound to a different challenge.
func (c *SimulationChallenge) Digest() crypto.Hash {
	serialized, _ := json.Marshal(c)
	return crypto.HashData(serialized)
}

// SimulationResult is a miner's response to a challenge.
type SimulationResult struct {
	RoundNumber     int         `json:"round_number"`
	ChallengeDigest crypto.Hash `json:"challenge_digest"`
	// Payload is the encoded evolution history (see ca.EncodeHistory).
	Payload json.RawMessage `json:"payload"`
	// HistoryDigest is the miner's commitment to the payload contents.
	HistoryDigest crypto.Hash   `json:"history_digest"`
	ComputeTime   time.Duration `json:"compute_time,string"`
}

// ChallengeRequest wraps a signed challenge for HTTP transport.
type ChallengeRequest struct {
	Challenge *Signed[SimulationChallenge] `json:"challenge"`
}

// ChallengeResponse wraps a signed simulation result.
type ChallengeResponse struct {
	Result *Signed[SimulationResult] `json:"result"`
}

// Ping checks miner liveness.
type Ping struct {
	RoundNumber int `json:"round_number"`
}

// PingResponse reports miner liveness and identity.
type PingResponse struct {
	Status string `json:"status"`
	Hotkey string `json:"hotkey"`
}

// WeightSubmission carries a validator's normalized weights for a round.
// Weights are keyed by miner hotkey and sum to 1.
type WeightSubmission struct {
	RoundNumber int                `json:"round_number"`
	Weights     map[string]float64 `json:"weights"`
}
