package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/metrics"
	"github.com/vn-automata/automata/protocol"
	"github.com/vn-automata/automata/validator"
)

// RoundReportCallback is invoked after each completed validator round.
type RoundReportCallback func(*validator.RoundReport)

// HTTPValidator wraps a validator neuron with HTTP endpoints and registry
// integration. Each round it challenges discovered miners, verifies their
// results, and submits the resulting weights to the registry.
type HTTPValidator struct {
	*baseService
	neuron *validator.Validator
	log    *slog.Logger

	reportCallback RoundReportCallback
}

// NewHTTPValidator creates a validator service. Score state is loaded from
// config.StatePath when set, so a restarted validator keeps its miner
// score history.
func NewHTTPValidator(config *ServiceConfig, signingKey crypto.PrivateKey, log *slog.Logger) (*HTTPValidator, error) {
	config.NeuronType = ValidatorNeuron
	base, err := newBaseService(config, signingKey)
	if err != nil {
		return nil, err
	}

	state := validator.NewState()
	if config.StatePath != "" {
		state, err = validator.LoadState(config.StatePath)
		if err != nil {
			return nil, fmt.Errorf("loading validator state: %w", err)
		}
	}

	neuron, err := validator.New(config.SubnetConfig, signingKey, state, nil)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	return &HTTPValidator{
		baseService: base,
		neuron:      neuron,
		log:         log.With("hotkey", neuron.Hotkey().String()[:16]),
	}, nil
}

// SetRoundReportCallback sets a callback invoked when rounds complete.
func (v *HTTPValidator) SetRoundReportCallback(cb RoundReportCallback) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reportCallback = cb
}

// RegisterRoutes registers HTTP routes for the validator.
func (v *HTTPValidator) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Get("/ping", v.handlePing)
	r.Get("/scores", v.handleGetScores)
}

// Start registers with the registry and begins round-driven validation.
func (v *HTTPValidator) Start(ctx context.Context) error {
	if err := v.registerWithRegistry(); err != nil {
		return fmt.Errorf("registry registration failed: %w", err)
	}

	v.roundCoord.Start(ctx)
	go v.handleRoundTransitions(ctx)
	go v.runDiscoveryLoop(ctx, v)

	return nil
}

// RefreshMetagraph synchronously re-fetches the registry metagraph.
func (v *HTTPValidator) RefreshMetagraph() {
	v.discoverNeurons(v)
}

// Hotkey returns the validator's public identity.
func (v *HTTPValidator) Hotkey() crypto.PublicKey {
	return v.hotkey()
}

func (v *HTTPValidator) selfHotkey() string {
	return v.hotkey().String()
}

func (v *HTTPValidator) onMinerDiscovered(neuron *RegisteredNeuron) error {
	return v.verifyAndStoreMiner(neuron)
}

func (v *HTTPValidator) onValidatorDiscovered(neuron *RegisteredNeuron) error {
	return v.verifyAndStoreValidator(neuron)
}

func (v *HTTPValidator) handleRoundTransitions(ctx context.Context) {
	roundChan := v.roundCoord.SubscribeToRounds(ctx)

	// The subscription delivers the in-progress round first; only act on
	// phases that begin after us so a partially elapsed phase is not
	// re-run.
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case round := <-roundChan:
			v.mu.Lock()
			v.currentRound = round
			v.mu.Unlock()

			if first {
				first = false
				continue
			}

			switch round.Phase {
			case protocol.ChallengePhase:
				go func() {
					if _, err := v.RunRoundNow(ctx, round.Number); err != nil {
						v.log.Error("round failed", "round", round.Number, "err", err)
					}
				}()
			case protocol.WeightsPhase:
				go func() {
					if err := v.SubmitWeights(ctx, round.Number); err != nil {
						v.log.Error("weight submission failed", "round", round.Number, "err", err)
					}
				}()
			}
		}
	}
}

// RunRoundNow challenges the currently discovered miners and scores their
// results. It persists the updated score state before returning.
func (v *HTTPValidator) RunRoundNow(ctx context.Context, roundNumber int) (*validator.RoundReport, error) {
	miners := v.knownMiners()
	clients := make([]validator.MinerClient, 0, len(miners))
	for _, neuron := range miners {
		clients = append(clients, &httpMinerClient{
			hotkey:   neuron.Hotkey,
			endpoint: neuron.HTTPEndpoint,
			client:   v.httpClient,
		})
	}

	report, err := v.neuron.RunRound(ctx, roundNumber, clients)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, verdict := range report.Verdicts {
		if verdict.Correct {
			correct++
		}
	}
	v.log.Info("round complete",
		"round", roundNumber,
		"rule", report.Challenge.Rule,
		"queried", len(report.Verdicts),
		"correct", correct)
	metrics.RoundsCompleted.Inc()

	if v.config.StatePath != "" {
		if err := v.neuron.State().SaveState(v.config.StatePath); err != nil {
			v.log.Error("could not persist state", "err", err)
		}
	}

	v.mu.RLock()
	cb := v.reportCallback
	v.mu.RUnlock()
	if cb != nil {
		cb(report)
	}

	return report, nil
}

// SubmitWeights sends the validator's current normalized weights to the
// registry. A validator with no positive scores submits nothing.
func (v *HTTPValidator) SubmitWeights(ctx context.Context, roundNumber int) error {
	if v.config.RegistryURL == "" {
		return nil
	}

	submission, err := v.neuron.WeightSubmission(roundNumber)
	if err != nil {
		return fmt.Errorf("building weight submission: %w", err)
	}
	if submission == nil {
		return nil
	}

	body, _ := json.Marshal(submission)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.RegistryURL+"/weights", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weight submission rejected (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (v *HTTPValidator) handlePing(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(&protocol.PingResponse{
		Status: "ok",
		Hotkey: v.selfHotkey(),
	})
}

func (v *HTTPValidator) handleGetScores(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(v.neuron.State().Scores())
}

// httpMinerClient reaches a miner over its HTTP API.
type httpMinerClient struct {
	hotkey   string
	endpoint string
	client   *http.Client
}

func (c *httpMinerClient) Hotkey() string {
	return c.hotkey
}

func (c *httpMinerClient) Simulate(ctx context.Context, req *protocol.ChallengeRequest) (*protocol.ChallengeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/simulate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("miner returned %d: %s", resp.StatusCode, string(respBody))
	}

	return protocol.DecodeMessage[protocol.ChallengeResponse](resp.Body)
}
