package validator

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/miner"
	"github.com/vn-automata/automata/protocol"
)

type stakeMap map[string]uint64

func (m stakeMap) Stake(hotkey string) (uint64, bool) {
	stake, ok := m[hotkey]
	return stake, ok
}

// minerBackedClient routes challenges to an in-process miner neuron.
type minerBackedClient struct {
	m *miner.Miner
}

func (c *minerBackedClient) Hotkey() string {
	return c.m.Hotkey().String()
}

func (c *minerBackedClient) Simulate(ctx context.Context, req *protocol.ChallengeRequest) (*protocol.ChallengeResponse, error) {
	result, err := c.m.Handle(ctx, req.Challenge)
	if err != nil {
		return nil, err
	}
	return &protocol.ChallengeResponse{Result: result}, nil
}

// cheatingClient computes a different evolution than the one assigned.
type cheatingClient struct {
	hotkey     string
	signingKey crypto.PrivateKey
}

func (c *cheatingClient) Hotkey() string { return c.hotkey }

func (c *cheatingClient) Simulate(_ context.Context, req *protocol.ChallengeRequest) (*protocol.ChallengeResponse, error) {
	challenge := *req.Challenge.UnsafeObject()
	challenge.Seed++
	history, err := challenge.Run()
	if err != nil {
		return nil, err
	}
	payload, err := ca.EncodeHistory(history)
	if err != nil {
		return nil, err
	}
	result, err := protocol.NewSigned(c.signingKey, &protocol.SimulationResult{
		RoundNumber:     req.Challenge.UnsafeObject().RoundNumber,
		ChallengeDigest: req.Challenge.UnsafeObject().Digest(),
		Payload:         payload,
		HistoryDigest:   ca.DigestHistory(history),
	})
	if err != nil {
		return nil, err
	}
	return &protocol.ChallengeResponse{Result: result}, nil
}

// silentClient never answers.
type silentClient struct {
	hotkey string
}

func (c *silentClient) Hotkey() string { return c.hotkey }

func (c *silentClient) Simulate(context.Context, *protocol.ChallengeRequest) (*protocol.ChallengeResponse, error) {
	return nil, errors.New("connection refused")
}

func testConfig() *protocol.SubnetConfig {
	cfg := protocol.DefaultSubnetConfig()
	cfg.GridWidth = 16
	cfg.GridHeight = 16
	cfg.MinSteps = 4
	cfg.MaxSteps = 8
	cfg.SampleSize = 8
	return cfg
}

func newTestValidator(t *testing.T, cfg *protocol.SubnetConfig) *Validator {
	t.Helper()
	_, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	v, err := New(cfg, priv, NewState(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	return v
}

func newTestMiner(t *testing.T, cfg *protocol.SubnetConfig, v *Validator) *minerBackedClient {
	t.Helper()
	_, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	stakes := stakeMap{v.Hotkey().String(): cfg.MinValidatorStake}
	m, err := miner.New(cfg, priv, stakes)
	require.NoError(t, err)
	return &minerBackedClient{m: m}
}

func TestRunRound_ScoresHonestOverDishonest(t *testing.T) {
	cfg := testConfig()
	v := newTestValidator(t, cfg)

	honest := newTestMiner(t, cfg, v)
	_, cheatKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	cheatPub, err := cheatKey.PublicKey()
	require.NoError(t, err)
	cheat := &cheatingClient{hotkey: cheatPub.String(), signingKey: cheatKey}
	silent := &silentClient{hotkey: "deadbeef"}

	report, err := v.RunRound(context.Background(), 1, []MinerClient{honest, cheat, silent})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 3)

	byHotkey := make(map[string]Verdict)
	for _, verdict := range report.Verdicts {
		byHotkey[verdict.Hotkey] = verdict
	}

	assert.True(t, byHotkey[honest.Hotkey()].Correct)
	assert.False(t, byHotkey[cheat.Hotkey()].Correct)
	assert.Contains(t, byHotkey[cheat.Hotkey()].Reason, "incorrect evolution")
	assert.False(t, byHotkey[silent.hotkey].Correct)
	assert.Equal(t, "no response", byHotkey[silent.hotkey].Reason)

	require.NotNil(t, report.Weights)
	assert.InDelta(t, 1.0, report.Weights[honest.Hotkey()], 1e-9)
	_, ok := report.Weights[cheat.Hotkey()]
	assert.False(t, ok)

	require.NotNil(t, report.Winning)
	assert.NoError(t, report.Winning.Validate())
}

func TestRunRound_EmptyMinerList(t *testing.T) {
	v := newTestValidator(t, testConfig())

	report, err := v.RunRound(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Verdicts)
	assert.Nil(t, report.Weights)
}

func TestRunRound_SmoothsScoresAcrossRounds(t *testing.T) {
	cfg := testConfig()
	cfg.ScoreAlpha = 0.5
	v := newTestValidator(t, cfg)

	honest := newTestMiner(t, cfg, v)

	_, err := v.RunRound(context.Background(), 1, []MinerClient{honest})
	require.NoError(t, err)
	score, ok := v.State().Score(honest.Hotkey())
	require.True(t, ok)
	assert.Equal(t, 1.0, score)

	// The miner goes offline; its score halves each missed round.
	offline := &silentClient{hotkey: honest.Hotkey()}
	_, err = v.RunRound(context.Background(), 2, []MinerClient{offline})
	require.NoError(t, err)
	score, _ = v.State().Score(honest.Hotkey())
	assert.InDelta(t, 0.5, score, 1e-9)

	_, err = v.RunRound(context.Background(), 3, []MinerClient{offline})
	require.NoError(t, err)
	score, _ = v.State().Score(honest.Hotkey())
	assert.InDelta(t, 0.25, score, 1e-9)
}

func TestRunRound_RejectsStolenResult(t *testing.T) {
	cfg := testConfig()
	v := newTestValidator(t, cfg)

	honest := newTestMiner(t, cfg, v)
	// An impostor relays the honest miner's signed results under its
	// own hotkey.
	impostor := &relayClient{hotkey: "c0ffee", inner: honest}

	report, err := v.RunRound(context.Background(), 1, []MinerClient{impostor})
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 1)
	assert.False(t, report.Verdicts[0].Correct)
	assert.Contains(t, report.Verdicts[0].Reason, "different hotkey")
}

type relayClient struct {
	hotkey string
	inner  MinerClient
}

func (c *relayClient) Hotkey() string { return c.hotkey }

func (c *relayClient) Simulate(ctx context.Context, req *protocol.ChallengeRequest) (*protocol.ChallengeResponse, error) {
	return c.inner.Simulate(ctx, req)
}

func TestWeightSubmission(t *testing.T) {
	cfg := testConfig()
	v := newTestValidator(t, cfg)

	// No scores yet: nothing to submit.
	submission, err := v.WeightSubmission(1)
	require.NoError(t, err)
	assert.Nil(t, submission)

	honest := newTestMiner(t, cfg, v)
	_, err = v.RunRound(context.Background(), 1, []MinerClient{honest})
	require.NoError(t, err)

	submission, err = v.WeightSubmission(1)
	require.NoError(t, err)
	require.NotNil(t, submission)

	weights, signer, err := submission.Recover()
	require.NoError(t, err)
	assert.Equal(t, v.Hotkey().String(), signer.String())
	assert.Equal(t, 1, weights.RoundNumber)
	assert.InDelta(t, 1.0, weights.Weights[honest.Hotkey()], 1e-9)
}
