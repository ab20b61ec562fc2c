package services

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/metrics"
	"github.com/vn-automata/automata/protocol"
)

// TEEProvider abstracts attestation generation and verification.
type TEEProvider interface {
	AttestationType() string
	Attest(reportData [64]byte) ([]byte, error)
	Verify(attestationReport []byte, expectedReportData [64]byte) (map[int][]byte, error)
}

// Measurements maps register indices to measurement values extracted from
// an attestation report.
type Measurements map[int][]byte

// RegistryConfig configures the metagraph registry.
type RegistryConfig struct {
	// AdminToken (user:pass) protects validator registration, stake
	// assignment and unregistration.
	AdminToken          string
	MeasurementSource   MeasurementSource
	AttestationProvider TEEProvider
	// Store persists registrations across restarts. Nil keeps the
	// metagraph in memory only.
	Store RegistryStore
}

// Registry is the subnet's metagraph service. It tracks registered miners
// and validators with their operator-assigned stake, serves the shared
// subnet configuration, and collects validator weight submissions.
type Registry struct {
	config       *RegistryConfig
	subnetConfig *protocol.SubnetConfig
	store        RegistryStore

	mu      sync.RWMutex
	neurons map[NeuronType]map[string]*RegisteredNeuron
	weights map[string]*protocol.Signed[protocol.WeightSubmission]
}

// NewRegistry creates a registry, loading any previously persisted
// metagraph from the configured store.
func NewRegistry(config *RegistryConfig, subnetConfig *protocol.SubnetConfig) (*Registry, error) {
	if err := subnetConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid subnet config: %w", err)
	}

	store := config.Store
	if store == nil {
		store = NewInMemoryStore()
	}

	neurons, err := store.LoadAllNeurons()
	if err != nil {
		return nil, fmt.Errorf("loading persisted metagraph: %w", err)
	}

	return &Registry{
		config:       config,
		subnetConfig: subnetConfig,
		store:        store,
		neurons:      neurons,
		weights:      make(map[string]*protocol.Signed[protocol.WeightSubmission]),
	}, nil
}

// Router builds the registry's full HTTP router: public routes plus the
// basic-auth protected admin subtree.
func (r *Registry) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	r.RegisterRoutes(router)
	return router
}

// RegisterRoutes mounts the registry's routes on an existing router. This
// satisfies the httpserver.RouteRegistrar interface.
func (r *Registry) RegisterRoutes(router chi.Router) {
	r.RegisterPublicRoutes(router)
	router.Route("/admin", func(admin chi.Router) {
		if r.config.AdminToken != "" {
			user, pass := parseAdminToken(r.config.AdminToken)
			admin.Use(middleware.BasicAuth("registry admin", map[string]string{user: pass}))
		}
		r.RegisterAdminRoutes(admin)
	})
}

func (r *Registry) RegisterAdminRoutes(router chi.Router) {
	router.Post("/register/{neuron_type}", r.handleRegister)
	router.Post("/stake/{hotkey}", r.handleSetStake)
	router.Delete("/unregister/{hotkey}", r.handleUnregister)
}

func (r *Registry) RegisterPublicRoutes(router chi.Router) {
	router.Post("/register/{neuron_type}", r.handleRegisterPublic)
	router.Get("/neurons", r.handleGetNeurons)
	router.Get("/neurons/{type}", r.handleGetNeuronsByType)
	router.Get("/config", r.handleGetConfig)
	router.Get("/health", r.handleHealth)
	router.Post("/weights", r.handleSubmitWeights)
	router.Get("/weights", r.handleGetWeights)
	router.Get("/weights/consensus", r.handleGetConsensusWeights)
}

// handleRegisterPublic admits miners without authentication. Validator
// registration goes through the admin endpoint since validators carry
// stake and stake is operator-assigned.
func (r *Registry) handleRegisterPublic(w http.ResponseWriter, req *http.Request) {
	if NeuronType(chi.URLParam(req, "neuron_type")) != MinerNeuron {
		http.Error(w, "only miners may register without admin credentials", http.StatusForbidden)
		return
	}
	r.handleRegister(w, req)
}

func (r *Registry) handleRegister(w http.ResponseWriter, req *http.Request) {
	neuronType := NeuronType(chi.URLParam(req, "neuron_type"))
	if !neuronType.Valid() {
		http.Error(w, "invalid neuron type", http.StatusBadRequest)
		return
	}

	var signedReq protocol.Signed[NeuronRegistrationRequest]
	if err := json.NewDecoder(req.Body).Decode(&signedReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	regReq, signer, err := signedReq.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid signature: %w", err).Error(), http.StatusForbidden)
		return
	}

	if regReq.NeuronType != neuronType {
		http.Error(w, fmt.Sprintf("neuron type mismatch: URL says %s, body says %s", neuronType, regReq.NeuronType), http.StatusBadRequest)
		return
	}

	hotkey, err := crypto.NewPublicKeyFromString(regReq.Hotkey)
	if err != nil {
		http.Error(w, "invalid hotkey", http.StatusBadRequest)
		return
	}

	if !signer.Equal(hotkey) {
		http.Error(w, "signer does not match claimed hotkey", http.StatusForbidden)
		return
	}

	neuron := &RegisteredNeuron{
		NeuronType:   neuronType,
		Hotkey:       regReq.Hotkey,
		HTTPEndpoint: regReq.HTTPEndpoint,
		Attestation:  regReq.Attestation,
		Signature:    signedReq.Signature.Bytes(),
	}

	if r.config.AttestationProvider != nil {
		if _, err := VerifyNeuron(r.config.MeasurementSource, r.config.AttestationProvider, neuron); err != nil {
			http.Error(w, fmt.Sprintf("attestation verification failed: %v", err), http.StatusForbidden)
			return
		}
	}

	r.mu.Lock()
	// Re-registration keeps the previously assigned stake.
	if existing, ok := r.neurons[neuronType][neuron.Hotkey]; ok {
		neuron.Stake = existing.Stake
	}
	r.neurons[neuronType][neuron.Hotkey] = neuron
	r.mu.Unlock()

	if err := r.store.SaveNeuron(neuron); err != nil {
		http.Error(w, fmt.Sprintf("persisting registration: %v", err), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(&NeuronRegistrationResponse{
		Success: true,
		Hotkey:  neuron.Hotkey,
	})
}

func (r *Registry) handleSetStake(w http.ResponseWriter, req *http.Request) {
	hotkey := chi.URLParam(req, "hotkey")

	var stakeReq StakeUpdateRequest
	if err := json.NewDecoder(req.Body).Decode(&stakeReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	var neuron *RegisteredNeuron
	for _, typeMap := range r.neurons {
		if n, ok := typeMap[hotkey]; ok {
			neuron = n
			n.Stake = stakeReq.Stake
		}
	}
	r.mu.Unlock()

	if neuron == nil {
		http.Error(w, "hotkey not registered", http.StatusNotFound)
		return
	}

	if err := r.store.UpdateStake(hotkey, stakeReq.Stake); err != nil {
		http.Error(w, fmt.Sprintf("persisting stake: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleUnregister(w http.ResponseWriter, req *http.Request) {
	hotkey := chi.URLParam(req, "hotkey")

	r.mu.Lock()
	for _, typeMap := range r.neurons {
		delete(typeMap, hotkey)
	}
	delete(r.weights, hotkey)
	r.mu.Unlock()

	if err := r.store.DeleteNeuron(hotkey); err != nil {
		http.Error(w, fmt.Sprintf("removing registration: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleGetNeurons(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	resp := &NeuronListResponse{
		Miners:     r.collectNeurons(MinerNeuron),
		Validators: r.collectNeurons(ValidatorNeuron),
	}
	r.mu.RUnlock()

	json.NewEncoder(w).Encode(resp)
}

func (r *Registry) handleGetNeuronsByType(w http.ResponseWriter, req *http.Request) {
	neuronType := NeuronType(chi.URLParam(req, "type"))
	if !neuronType.Valid() {
		http.Error(w, "invalid neuron type", http.StatusBadRequest)
		return
	}

	r.mu.RLock()
	neurons := r.collectNeurons(neuronType)
	r.mu.RUnlock()

	json.NewEncoder(w).Encode(neurons)
}

func (r *Registry) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(r.subnetConfig)
}

func (r *Registry) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleSubmitWeights accepts a signed weight submission from a registered
// validator with sufficient stake. Only the latest submission per
// validator is kept.
func (r *Registry) handleSubmitWeights(w http.ResponseWriter, req *http.Request) {
	signedReq, err := protocol.DecodeMessage[protocol.Signed[protocol.WeightSubmission]](req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	submission, signer, err := signedReq.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid signature: %w", err).Error(), http.StatusForbidden)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	validatorEntry, ok := r.neurons[ValidatorNeuron][signer.String()]
	if !ok {
		http.Error(w, "signer is not a registered validator", http.StatusForbidden)
		return
	}
	if validatorEntry.Stake < r.subnetConfig.MinValidatorStake {
		http.Error(w, fmt.Sprintf("validator stake %d below threshold %d", validatorEntry.Stake, r.subnetConfig.MinValidatorStake), http.StatusForbidden)
		return
	}

	if previous, ok := r.weights[signer.String()]; ok {
		if submission.RoundNumber < previous.UnsafeObject().RoundNumber {
			http.Error(w, "submission older than already accepted round", http.StatusBadRequest)
			return
		}
	}

	for hotkey, weight := range submission.Weights {
		if weight < 0 || weight > 1 {
			http.Error(w, fmt.Sprintf("weight %f for %s out of range", weight, hotkey), http.StatusBadRequest)
			return
		}
	}

	r.weights[signer.String()] = signedReq
	metrics.WeightSubmissions.Inc()
	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleGetWeights(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	resp := &WeightsResponse{Submissions: make(map[string]*protocol.Signed[protocol.WeightSubmission], len(r.weights))}
	for hotkey, submission := range r.weights {
		resp.Submissions[hotkey] = submission
	}
	r.mu.RUnlock()

	json.NewEncoder(w).Encode(resp)
}

// handleGetConsensusWeights combines all validator submissions into one
// weight vector, weighting each validator's opinion by its stake.
func (r *Registry) handleGetConsensusWeights(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	resp := r.consensusWeights()
	r.mu.RUnlock()

	json.NewEncoder(w).Encode(resp)
}

func (r *Registry) consensusWeights() *ConsensusWeightsResponse {
	resp := &ConsensusWeightsResponse{Weights: make(map[string]float64)}

	totalStake := uint64(0)
	for validatorHotkey, submission := range r.weights {
		entry, ok := r.neurons[ValidatorNeuron][validatorHotkey]
		if !ok {
			continue
		}
		totalStake += entry.Stake
		if submission.UnsafeObject().RoundNumber > resp.RoundNumber {
			resp.RoundNumber = submission.UnsafeObject().RoundNumber
		}
	}
	if totalStake == 0 {
		return resp
	}

	for validatorHotkey, submission := range r.weights {
		entry, ok := r.neurons[ValidatorNeuron][validatorHotkey]
		if !ok {
			continue
		}
		share := float64(entry.Stake) / float64(totalStake)
		for minerHotkey, weight := range submission.UnsafeObject().Weights {
			resp.Weights[minerHotkey] += share * weight
		}
	}
	return resp
}

func (r *Registry) collectNeurons(neuronType NeuronType) []*RegisteredNeuron {
	typeMap := r.neurons[neuronType]
	result := make([]*RegisteredNeuron, 0, len(typeMap))
	for _, neuron := range typeMap {
		copied := *neuron
		result = append(result, &copied)
	}
	return result
}

// ReportDataForNeuron computes the attestation report data binding a
// neuron's identity to its endpoint.
func ReportDataForNeuron(httpEndpoint string, hotkey crypto.PublicKey) []byte {
	hash := sha256.New()
	hash.Write([]byte(httpEndpoint))
	hash.Write(hotkey.Bytes())
	return hash.Sum(nil)
}

// AttestNeuronRegistration generates attestation evidence for a neuron.
func AttestNeuronRegistration(attestationProvider TEEProvider, r *NeuronRegistrationRequest) ([]byte, error) {
	if attestationProvider == nil {
		return nil, nil
	}
	hotkey, err := crypto.NewPublicKeyFromString(r.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("invalid hotkey: %w", err)
	}
	var reportData [64]byte
	copy(reportData[:], ReportDataForNeuron(r.HTTPEndpoint, hotkey))
	return attestationProvider.Attest(reportData)
}

// VerifyNeuron verifies the signature and attestation of a metagraph entry.
func VerifyNeuron(source MeasurementSource, attestationProvider TEEProvider, neuron *RegisteredNeuron) (Measurements, error) {
	hotkey, err := neuron.ParseHotkey()
	if err != nil {
		return nil, fmt.Errorf("invalid hotkey: %w", err)
	}

	req := neuron.registrationRequest()
	_, signer, err := (&protocol.Signed[NeuronRegistrationRequest]{
		PublicKey: hotkey,
		Signature: crypto.NewSignature(neuron.Signature),
		Object:    req,
	}).Recover()
	if err != nil {
		return nil, err
	}
	if signer.String() != neuron.Hotkey {
		return nil, errors.New("hotkey mismatch")
	}

	if attestationProvider == nil {
		return nil, nil
	}
	if len(req.Attestation) == 0 {
		return nil, errors.New("no attestation data")
	}

	var reportData [64]byte
	copy(reportData[:], ReportDataForNeuron(req.HTTPEndpoint, hotkey))
	measurements, err := attestationProvider.Verify(req.Attestation, reportData)
	if err != nil {
		return nil, fmt.Errorf("could not verify attestation: %w", err)
	}

	if source != nil {
		allowed, err := source.GetAllowedMeasurements()
		if err != nil {
			return nil, fmt.Errorf("could not fetch allowed measurements: %w", err)
		}
		if _, err := VerifyMeasurementsMatch(allowed, measurements); err != nil {
			return nil, fmt.Errorf("attestation is not allowed: %w", err)
		}
	}

	return measurements, nil
}
