package protocol

import (
	"fmt"
	"time"

	"github.com/vn-automata/automata/ca"
)

// SubnetConfig provides configuration parameters shared by all subnet
// participants. The registry serves it from /config so that miners and
// validators agree on round timing and challenge limits.
type SubnetConfig struct {
	// RoundDuration is the time duration of each protocol round.
	RoundDuration time.Duration `json:"round_duration,string"`

	// SampleSize is how many miners a validator queries per round.
	SampleSize int `json:"sample_size"`

	// MinSteps and MaxSteps bound the step count of generated challenges.
	MinSteps int `json:"min_steps"`
	MaxSteps int `json:"max_steps"`

	// GridWidth and GridHeight are the challenge grid dimensions.
	GridWidth  int `json:"grid_width"`
	GridHeight int `json:"grid_height"`

	// Density is the live-cell probability of random initial grids.
	Density float64 `json:"density"`

	// MinValidatorStake is the stake a neuron needs before miners accept
	// its challenges.
	MinValidatorStake uint64 `json:"min_validator_stake"`

	// ScoreAlpha is the smoothing factor of the exponential moving
	// average over per-round scores.
	ScoreAlpha float64 `json:"score_alpha"`

	// RoundsPerWindow defines rounds per participation window for rate
	// limiting.
	RoundsPerWindow uint32 `json:"rounds_per_window"`

	// Rules restricts which automaton rules validators may draw
	// challenges from. Empty means all registered rules.
	Rules []string `json:"rules,omitempty"`
}

// DefaultSubnetConfig returns the configuration used by local deployments
// and as the base for registry configuration files.
func DefaultSubnetConfig() *SubnetConfig {
	return &SubnetConfig{
		RoundDuration:     20 * time.Second,
		SampleSize:        8,
		MinSteps:          10,
		MaxSteps:          20,
		GridWidth:         64,
		GridHeight:        64,
		Density:           0.3,
		MinValidatorStake: 1000,
		ScoreAlpha:        0.1,
		RoundsPerWindow:   10,
	}
}

// Validate checks internal consistency.
func (c *SubnetConfig) Validate() error {
	if c.RoundDuration < 4*time.Millisecond {
		return fmt.Errorf("round duration %s too short", c.RoundDuration)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("invalid sample size %d", c.SampleSize)
	}
	if c.MinSteps <= 0 || c.MaxSteps < c.MinSteps {
		return fmt.Errorf("invalid step range %d..%d", c.MinSteps, c.MaxSteps)
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("invalid grid dimensions %dx%d", c.GridHeight, c.GridWidth)
	}
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("invalid density %f", c.Density)
	}
	if c.ScoreAlpha <= 0 || c.ScoreAlpha > 1 {
		return fmt.Errorf("invalid score alpha %f", c.ScoreAlpha)
	}
	for _, name := range c.Rules {
		if _, err := ca.Lookup(name); err != nil {
			return err
		}
	}
	return nil
}

// RuleNames returns the rule pool challenges are drawn from.
func (c *SubnetConfig) RuleNames() []string {
	if len(c.Rules) > 0 {
		return c.Rules
	}
	return ca.Names()
}
