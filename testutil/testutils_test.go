package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTestConfig(t *testing.T) {
	config := NewTestConfig()
	require.NoError(t, config.Validate())

	custom := NewTestConfig(
		WithGridSize(32, 24),
		WithStepRange(3, 7),
		WithRules("conway", "rule30"),
		WithMinValidatorStake(500),
	)
	require.NoError(t, custom.Validate())
	require.Equal(t, 32, custom.GridWidth)
	require.Equal(t, 24, custom.GridHeight)
	require.Equal(t, 3, custom.MinSteps)
	require.Equal(t, 7, custom.MaxSteps)
	require.Equal(t, []string{"conway", "rule30"}, custom.RuleNames())
	require.Equal(t, uint64(500), custom.MinValidatorStake)
}

func TestGenerateTestChallenge(t *testing.T) {
	config := NewTestConfig()

	challenge := GenerateTestChallenge(config)
	require.NoError(t, challenge.Validate(config))
	require.Equal(t, "conway", challenge.Rule)

	elementary := GenerateTestChallenge(config, WithRule("rule30"), WithSeed(7))
	require.NoError(t, elementary.Validate(config))
	require.Equal(t, 1, elementary.Dimension)
	require.Zero(t, elementary.Height)
	require.EqualValues(t, 7, elementary.Seed)
}

func TestGenerateHonestResultVerifies(t *testing.T) {
	config := NewTestConfig()
	challenge := GenerateTestChallenge(config)

	_, minerKey, err := GenerateTestKeyPair()
	require.NoError(t, err)

	signed, err := GenerateHonestResult(minerKey, challenge)
	require.NoError(t, err)

	result, _, err := signed.Recover()
	require.NoError(t, err)
	require.Equal(t, challenge.Digest(), result.ChallengeDigest)

	history, err := ExtractHistory(result)
	require.NoError(t, err)

	expected, err := challenge.Run()
	require.NoError(t, err)
	require.Equal(t, expected.Generations, history.Generations)
}

func TestGenerateTamperedResultDiffers(t *testing.T) {
	config := NewTestConfig()
	challenge := GenerateTestChallenge(config)

	_, minerKey, err := GenerateTestKeyPair()
	require.NoError(t, err)

	signed, err := GenerateTamperedResult(minerKey, challenge)
	require.NoError(t, err)

	result, _, err := signed.Recover()
	require.NoError(t, err)

	expected, err := challenge.Run()
	require.NoError(t, err)

	history, err := ExtractHistory(result)
	require.NoError(t, err)
	require.NotEqual(t, expected.Generations, history.Generations)
}
