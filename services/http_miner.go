package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/metrics"
	"github.com/vn-automata/automata/miner"
	"github.com/vn-automata/automata/protocol"
)

// HTTPMiner wraps a miner neuron with HTTP endpoints and registry
// integration. Challenges pass through a priority work queue so staked
// validators are served first when the miner is saturated.
type HTTPMiner struct {
	*baseService
	neuron *miner.Miner
	queue  *miner.WorkQueue
}

// metagraphStakes adapts the service's local metagraph to the miner's
// stake source.
type metagraphStakes struct {
	base *baseService
}

func (s metagraphStakes) Stake(hotkey string) (uint64, bool) {
	return s.base.stakeOf(hotkey)
}

// NewHTTPMiner creates a miner service that registers with a metagraph
// registry.
func NewHTTPMiner(config *ServiceConfig, signingKey crypto.PrivateKey) (*HTTPMiner, error) {
	config.NeuronType = MinerNeuron
	base, err := newBaseService(config, signingKey)
	if err != nil {
		return nil, err
	}

	neuron, err := miner.New(config.SubnetConfig, signingKey, metagraphStakes{base})
	if err != nil {
		return nil, err
	}

	return &HTTPMiner{
		baseService: base,
		neuron:      neuron,
		queue:       miner.NewWorkQueue(runtime.NumCPU(), 256),
	}, nil
}

// RegisterRoutes registers HTTP routes for the miner.
func (m *HTTPMiner) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Get("/ping", m.handlePing)
	r.Post("/simulate", m.handleSimulate)
}

// Start registers with the registry and begins round tracking and
// metagraph discovery.
func (m *HTTPMiner) Start(ctx context.Context) error {
	if err := m.registerWithRegistry(); err != nil {
		return fmt.Errorf("registry registration failed: %w", err)
	}

	m.roundCoord.Start(ctx)
	go m.handleRoundTransitions(ctx)
	go m.runDiscoveryLoop(ctx, m)

	return nil
}

// Close drains the work queue.
func (m *HTTPMiner) Close() {
	m.queue.Close()
}

// RefreshMetagraph synchronously re-fetches the registry metagraph.
func (m *HTTPMiner) RefreshMetagraph() {
	m.discoverNeurons(m)
}

// Hotkey returns the miner's public identity.
func (m *HTTPMiner) Hotkey() crypto.PublicKey {
	return m.hotkey()
}

func (m *HTTPMiner) selfHotkey() string {
	return m.hotkey().String()
}

func (m *HTTPMiner) onMinerDiscovered(neuron *RegisteredNeuron) error {
	return m.verifyAndStoreMiner(neuron)
}

func (m *HTTPMiner) onValidatorDiscovered(neuron *RegisteredNeuron) error {
	return m.verifyAndStoreValidator(neuron)
}

func (m *HTTPMiner) handleRoundTransitions(ctx context.Context) {
	roundChan := m.roundCoord.SubscribeToRounds(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case round := <-roundChan:
			m.mu.Lock()
			m.currentRound = round
			m.mu.Unlock()
			m.neuron.AdvanceToRound(round)
		}
	}
}

func (m *HTTPMiner) handlePing(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(&protocol.PingResponse{
		Status: "ok",
		Hotkey: m.selfHotkey(),
	})
}

func (m *HTTPMiner) handleSimulate(w http.ResponseWriter, r *http.Request) {
	metrics.SimulateRequests.Inc()

	req, err := protocol.DecodeMessage[protocol.ChallengeRequest](r.Body)
	if err != nil {
		metrics.SimulateErrors.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Challenge == nil {
		metrics.SimulateErrors.Inc()
		http.Error(w, "missing challenge", http.StatusBadRequest)
		return
	}

	_, signer, err := req.Challenge.Recover()
	if err != nil {
		metrics.SimulateErrors.Inc()
		http.Error(w, fmt.Errorf("invalid challenge signature: %w", err).Error(), http.StatusForbidden)
		return
	}

	if blacklisted, reason := m.neuron.Blacklist(signer); blacklisted {
		metrics.SimulateErrors.Inc()
		http.Error(w, reason, http.StatusForbidden)
		return
	}

	type outcome struct {
		result *protocol.Signed[protocol.SimulationResult]
		err    error
	}
	done := make(chan outcome, 1)

	err = m.queue.Submit(m.neuron.Priority(signer), func() {
		result, err := m.neuron.Handle(r.Context(), req.Challenge)
		done <- outcome{result, err}
	})
	if err != nil {
		metrics.SimulateErrors.Inc()
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	select {
	case <-r.Context().Done():
		metrics.SimulateErrors.Inc()
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		return
	case out := <-done:
		if out.err != nil {
			metrics.SimulateErrors.Inc()
			status := http.StatusBadRequest
			if errors.Is(out.err, miner.ErrBlacklisted) {
				status = http.StatusForbidden
			}
			http.Error(w, out.err.Error(), status)
			return
		}
		json.NewEncoder(w).Encode(&protocol.ChallengeResponse{Result: out.result})
	}
}
