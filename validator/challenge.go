package validator

import (
	"math/rand"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/protocol"
)

// GenerateChallenge draws a random simulation challenge for the given round
// within the subnet configuration limits. The rule is picked from the
// configured rule pool; geometry follows the rule's dimension.
func GenerateChallenge(cfg *protocol.SubnetConfig, roundNumber int, rng *rand.Rand) *protocol.SimulationChallenge {
	rules := cfg.RuleNames()
	name := rules[rng.Intn(len(rules))]
	rule, err := ca.Lookup(name)
	if err != nil {
		// The rule pool is validated with the config; fall back to a
		// rule that always resolves.
		rule, _ = ca.Lookup("conway")
	}

	challenge := &protocol.SimulationChallenge{
		RoundNumber: roundNumber,
		Rule:        rule.Name(),
		Dimension:   rule.Dimension(),
		Width:       cfg.GridWidth,
		Steps:       cfg.MinSteps + rng.Intn(cfg.MaxSteps-cfg.MinSteps+1),
		Seed:        rng.Int63(),
		Density:     cfg.Density,
		Radius:      1,
	}

	if rule.Dimension() == 2 {
		challenge.Height = cfg.GridHeight
		if rng.Intn(2) == 0 {
			challenge.Neighbourhood = string(ca.Moore)
		} else {
			challenge.Neighbourhood = string(ca.VonNeumann)
		}
	}

	return challenge
}

// SampleHotkeys picks up to k distinct entries from the candidate list.
// The sample size is clamped to the population, mirroring how the
// validator deals with small subnets.
func SampleHotkeys[T any](candidates []T, k int, rng *rand.Rand) []T {
	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return nil
	}
	picked := rng.Perm(len(candidates))[:k]
	sample := make([]T, 0, k)
	for _, idx := range picked {
		sample = append(sample, candidates[idx])
	}
	return sample
}
