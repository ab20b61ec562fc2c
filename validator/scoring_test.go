package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

func honestResult(t *testing.T, challenge *protocol.SimulationChallenge, priv crypto.PrivateKey) *protocol.Signed[protocol.SimulationResult] {
	t.Helper()
	history, err := challenge.Run()
	require.NoError(t, err)
	payload, err := ca.EncodeHistory(history)
	require.NoError(t, err)

	signed, err := protocol.NewSigned(priv, &protocol.SimulationResult{
		RoundNumber:     challenge.RoundNumber,
		ChallengeDigest: challenge.Digest(),
		Payload:         payload,
		HistoryDigest:   ca.DigestHistory(history),
	})
	require.NoError(t, err)
	return signed
}

func verificationFixture(t *testing.T) (*protocol.SimulationChallenge, crypto.Hash, crypto.PrivateKey) {
	t.Helper()
	challenge := &protocol.SimulationChallenge{
		RoundNumber:   3,
		Rule:          "highlife",
		Dimension:     2,
		Width:         12,
		Height:        12,
		Steps:         10,
		Seed:          11,
		Density:       0.4,
		Neighbourhood: "moore",
		Radius:        1,
	}
	history, err := challenge.Run()
	require.NoError(t, err)

	_, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return challenge, ca.DigestHistory(history), priv
}

func TestVerifyResult_Correct(t *testing.T) {
	challenge, expected, priv := verificationFixture(t)

	signer, err := VerifyResult(challenge, expected, honestResult(t, challenge, priv))
	require.NoError(t, err)

	pub, _ := priv.PublicKey()
	assert.Equal(t, pub.String(), signer.String())
}

func TestVerifyResult_WrongEvolution(t *testing.T) {
	challenge, expected, priv := verificationFixture(t)

	// A lazy miner simulates a different seed.
	wrong := *challenge
	wrong.Seed++
	forged := honestResult(t, &wrong, priv)
	// Rebind to the real challenge so only the evolution is wrong.
	forged.Object.ChallengeDigest = challenge.Digest()
	forged.Object.RoundNumber = challenge.RoundNumber
	resigned, err := protocol.NewSigned(priv, forged.Object)
	require.NoError(t, err)

	_, err = VerifyResult(challenge, expected, resigned)
	assert.ErrorContains(t, err, "incorrect evolution")
}

func TestVerifyResult_DigestMismatch(t *testing.T) {
	challenge, expected, priv := verificationFixture(t)

	result := honestResult(t, challenge, priv)
	result.Object.HistoryDigest = crypto.HashData([]byte("fake"))
	resigned, err := protocol.NewSigned(priv, result.Object)
	require.NoError(t, err)

	_, err = VerifyResult(challenge, expected, resigned)
	assert.ErrorContains(t, err, "does not match claimed digest")
}

func TestVerifyResult_WrongRoundOrBinding(t *testing.T) {
	challenge, expected, priv := verificationFixture(t)

	result := honestResult(t, challenge, priv)
	result.Object.RoundNumber = challenge.RoundNumber + 1
	resigned, err := protocol.NewSigned(priv, result.Object)
	require.NoError(t, err)
	_, err = VerifyResult(challenge, expected, resigned)
	assert.Error(t, err)

	result = honestResult(t, challenge, priv)
	result.Object.ChallengeDigest = crypto.HashData([]byte("other challenge"))
	resigned, err = protocol.NewSigned(priv, result.Object)
	require.NoError(t, err)
	_, err = VerifyResult(challenge, expected, resigned)
	assert.ErrorContains(t, err, "different challenge")
}

func TestVerifyResult_TamperedSignature(t *testing.T) {
	challenge, expected, priv := verificationFixture(t)

	result := honestResult(t, challenge, priv)
	result.Object.ComputeTime++

	_, err := VerifyResult(challenge, expected, result)
	assert.ErrorContains(t, err, "signature")
}

func TestVerifyResult_Empty(t *testing.T) {
	challenge, expected, _ := verificationFixture(t)

	_, err := VerifyResult(challenge, expected, nil)
	assert.Error(t, err)
	_, err = VerifyResult(challenge, expected, &protocol.Signed[protocol.SimulationResult]{})
	assert.Error(t, err)
}

func TestNormalizeWeights(t *testing.T) {
	weights := NormalizeWeights(map[string]float64{
		"a": 3,
		"b": 1,
		"c": 0,
	})

	require.NotNil(t, weights)
	assert.InDelta(t, 0.75, weights["a"], 1e-9)
	assert.InDelta(t, 0.25, weights["b"], 1e-9)
	_, ok := weights["c"]
	assert.False(t, ok)

	total := 0.0
	for _, w := range weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestNormalizeWeights_AllZero(t *testing.T) {
	assert.Nil(t, NormalizeWeights(map[string]float64{"a": 0, "b": 0}))
	assert.Nil(t, NormalizeWeights(nil))
}
