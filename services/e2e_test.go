package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
	"github.com/vn-automata/automata/tdx"
)

const e2eAdminToken = "admin:test"

// e2eSubnetConfig uses a very long round so wall-clock round transitions
// do not interfere with the explicitly driven round below.
func e2eSubnetConfig(numMiners int) *protocol.SubnetConfig {
	cfg := protocol.DefaultSubnetConfig()
	cfg.RoundDuration = time.Hour
	cfg.SampleSize = numMiners
	cfg.GridWidth = 16
	cfg.GridHeight = 16
	cfg.MinSteps = 4
	cfg.MaxSteps = 8
	return cfg
}

func startE2ERegistry(t *testing.T, cfg *protocol.SubnetConfig) *httptest.Server {
	t.Helper()

	registry, err := NewRegistry(&RegistryConfig{
		AdminToken:          e2eAdminToken,
		AttestationProvider: &tdx.DummyProvider{},
		MeasurementSource:   DemoMeasurementSource(),
	}, cfg)
	require.NoError(t, err)

	server := httptest.NewServer(registry.Router())
	t.Cleanup(server.Close)
	return server
}

func e2eServiceConfig(cfg *protocol.SubnetConfig, registryURL, httpAddr string) *ServiceConfig {
	return &ServiceConfig{
		SubnetConfig:              cfg,
		AttestationProvider:       &tdx.DummyProvider{},
		AllowedMeasurementsSource: DemoMeasurementSource(),
		HTTPAddr:                  httpAddr,
		RegistryURL:               registryURL,
		AdminToken:                e2eAdminToken,
	}
}

// startE2EMiner brings up a miner on an httptest server. The server has to
// exist before the miner so the registration can attest its real endpoint.
func startE2EMiner(t *testing.T, ctx context.Context, cfg *protocol.SubnetConfig, registryURL string) *HTTPMiner {
	t.Helper()

	router := chi.NewRouter()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	_, signingKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	config := e2eServiceConfig(cfg, registryURL, strings.TrimPrefix(server.URL, "http://"))
	m, err := NewHTTPMiner(config, signingKey)
	require.NoError(t, err)
	m.RegisterRoutes(router)
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(ctx))
	return m
}

func startE2EValidator(t *testing.T, ctx context.Context, cfg *protocol.SubnetConfig, registryURL, statePath string) *HTTPValidator {
	t.Helper()

	router := chi.NewRouter()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	_, signingKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	config := e2eServiceConfig(cfg, registryURL, strings.TrimPrefix(server.URL, "http://"))
	config.StatePath = statePath
	v, err := NewHTTPValidator(config, signingKey, nil)
	require.NoError(t, err)
	v.RegisterRoutes(router)

	require.NoError(t, v.Start(ctx))
	return v
}

func setE2EStake(t *testing.T, registryURL, hotkey string, stake uint64) {
	t.Helper()

	body, err := json.Marshal(&StakeUpdateRequest{Stake: stake})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, registryURL+"/admin/stake/"+hotkey, strings.NewReader(string(body)))
	require.NoError(t, err)
	user, pass := parseAdminToken(e2eAdminToken)
	req.SetBasicAuth(user, pass)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestE2E_FullRound runs a complete round over HTTP: registration,
// discovery, challenge dispatch, verification, scoring, and weight
// consensus through the registry.
func TestE2E_FullRound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	const numMiners = 3

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := e2eSubnetConfig(numMiners)
	registryServer := startE2ERegistry(t, cfg)

	var miners []*HTTPMiner
	for i := 0; i < numMiners; i++ {
		miners = append(miners, startE2EMiner(t, ctx, cfg, registryServer.URL))
	}

	v := startE2EValidator(t, ctx, cfg, registryServer.URL, "")
	setE2EStake(t, registryServer.URL, v.Hotkey().String(), cfg.MinValidatorStake)

	// Make the stake assignment visible everywhere before challenging.
	for _, m := range miners {
		m.RefreshMetagraph()
	}
	v.RefreshMetagraph()

	roundNumber := protocol.RoundForTime(time.Now(), cfg.RoundDuration).Number
	report, err := v.RunRoundNow(ctx, roundNumber)
	require.NoError(t, err)
	require.Len(t, report.Verdicts, numMiners)
	for _, verdict := range report.Verdicts {
		require.True(t, verdict.Correct, "miner %s failed: %s", verdict.Hotkey[:16], verdict.Reason)
	}
	require.NotNil(t, report.Winning)

	// All miners computed correctly, so weights split evenly.
	require.Len(t, report.Weights, numMiners)
	for _, weight := range report.Weights {
		require.InDelta(t, 1.0/numMiners, weight, 1e-9)
	}

	require.NoError(t, v.SubmitWeights(ctx, roundNumber))

	resp, err := http.Get(registryServer.URL + "/weights/consensus")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var consensus ConsensusWeightsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&consensus))
	require.Equal(t, roundNumber, consensus.RoundNumber)
	require.Len(t, consensus.Weights, numMiners)

	total := 0.0
	for _, weight := range consensus.Weights {
		total += weight
	}
	require.InDelta(t, 1.0, total, 1e-9)
}

// TestE2E_UnstakedValidatorRejected checks that miners refuse challenges
// from validators below the stake threshold.
func TestE2E_UnstakedValidatorRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := e2eSubnetConfig(1)
	registryServer := startE2ERegistry(t, cfg)

	m := startE2EMiner(t, ctx, cfg, registryServer.URL)

	v := startE2EValidator(t, ctx, cfg, registryServer.URL, "")
	// No stake assigned.
	m.RefreshMetagraph()
	v.RefreshMetagraph()

	roundNumber := protocol.RoundForTime(time.Now(), cfg.RoundDuration).Number
	report, err := v.RunRoundNow(ctx, roundNumber)
	require.NoError(t, err)
	require.Len(t, report.Verdicts, 1)
	require.False(t, report.Verdicts[0].Correct)

	// Nothing scored positively, so there is nothing to submit.
	require.NoError(t, v.SubmitWeights(ctx, roundNumber))

	resp, err := http.Get(registryServer.URL + "/weights")
	require.NoError(t, err)
	defer resp.Body.Close()

	var weights WeightsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&weights))
	require.Empty(t, weights.Submissions)
}

// TestE2E_ValidatorStateSurvivesRestart checks score persistence through
// the configured state path.
func TestE2E_ValidatorStateSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := e2eSubnetConfig(1)
	registryServer := startE2ERegistry(t, cfg)
	statePath := t.TempDir() + "/validator_state.json"

	m := startE2EMiner(t, ctx, cfg, registryServer.URL)

	v := startE2EValidator(t, ctx, cfg, registryServer.URL, statePath)
	setE2EStake(t, registryServer.URL, v.Hotkey().String(), cfg.MinValidatorStake)
	m.RefreshMetagraph()
	v.RefreshMetagraph()

	roundNumber := protocol.RoundForTime(time.Now(), cfg.RoundDuration).Number
	report, err := v.RunRoundNow(ctx, roundNumber)
	require.NoError(t, err)
	require.Len(t, report.Weights, 1)

	minerHotkey := m.Hotkey().String()

	// A fresh validator process over the same state file sees the score.
	restarted := startE2EValidator(t, ctx, cfg, registryServer.URL, statePath)
	score, ok := restarted.neuron.State().Score(minerHotkey)
	require.True(t, ok)
	require.Equal(t, 1.0, score)
}
