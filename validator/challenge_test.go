package validator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vn-automata/automata/protocol"
)

func TestGenerateChallenge_WithinConfigLimits(t *testing.T) {
	cfg := protocol.DefaultSubnetConfig()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		c := GenerateChallenge(cfg, i, rng)
		require.NoError(t, c.Validate(cfg), "challenge %d", i)
		assert.Equal(t, i, c.RoundNumber)
		assert.GreaterOrEqual(t, c.Steps, cfg.MinSteps)
		assert.LessOrEqual(t, c.Steps, cfg.MaxSteps)
		if c.Dimension == 2 {
			assert.Equal(t, cfg.GridHeight, c.Height)
			assert.NotEmpty(t, c.Neighbourhood)
		} else {
			assert.Zero(t, c.Height)
		}
	}
}

func TestGenerateChallenge_HonoursRulePool(t *testing.T) {
	cfg := protocol.DefaultSubnetConfig()
	cfg.Rules = []string{"rule30"}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10; i++ {
		c := GenerateChallenge(cfg, i, rng)
		assert.Equal(t, "rule30", c.Rule)
		assert.Equal(t, 1, c.Dimension)
	}
}

func TestGenerateChallenge_Runnable(t *testing.T) {
	cfg := protocol.DefaultSubnetConfig()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		c := GenerateChallenge(cfg, i, rng)
		_, err := c.Run()
		require.NoError(t, err, "challenge %d (%s)", i, c.Rule)
	}
}

func TestSampleHotkeys(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	population := []string{"a", "b", "c", "d", "e"}

	sample := SampleHotkeys(population, 3, rng)
	assert.Len(t, sample, 3)
	seen := map[string]bool{}
	for _, s := range sample {
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}

	// Sample size clamps to the population.
	assert.Len(t, SampleHotkeys(population, 10, rng), 5)
	assert.Nil(t, SampleHotkeys([]string{}, 3, rng))
	assert.Nil(t, SampleHotkeys(population, 0, rng))
}
