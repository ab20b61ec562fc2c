package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
	"github.com/vn-automata/automata/tdx"
	"github.com/vn-automata/automata/validator"
)

// OrchestratorConfig contains local subnet deployment configuration.
type OrchestratorConfig struct {
	NumMiners     int
	NumValidators int

	BasePort      int // Starting port; registry takes it, neurons follow
	RoundDuration time.Duration
	// ValidatorStake is assigned to every deployed validator.
	ValidatorStake uint64
	AdminToken     string

	UseTDX          bool
	RemoteTDXURL    string
	MeasurementsURL string
}

// Orchestrator runs a full subnet in one process: a registry plus a set of
// miner and validator neurons talking over localhost HTTP.
type Orchestrator struct {
	config       *OrchestratorConfig
	subnetConfig *protocol.SubnetConfig

	registry       *Registry
	registryServer *http.Server
	registryURL    string

	attestationProvider TEEProvider
	measurementSource   MeasurementSource

	miners     []*DeployedNeuron
	validators []*DeployedNeuron

	httpClient *http.Client
	ctx        context.Context
	cancel     context.CancelFunc
}

// DeployedNeuron represents a running neuron instance.
type DeployedNeuron struct {
	Hotkey     string
	NeuronType NeuronType
	HTTPAddr   string
	HTTPServer *http.Server

	SigningKey crypto.PrivateKey

	Miner     *HTTPMiner
	Validator *HTTPValidator
}

// NewOrchestrator creates a local subnet orchestrator.
func NewOrchestrator(config *OrchestratorConfig) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	subnetConfig := protocol.DefaultSubnetConfig()
	subnetConfig.RoundDuration = config.RoundDuration
	if config.NumMiners > 0 && config.NumMiners < subnetConfig.SampleSize {
		subnetConfig.SampleSize = config.NumMiners
	}

	var attestationProvider TEEProvider
	if config.UseTDX {
		if config.RemoteTDXURL != "" {
			attestationProvider = &tdx.RemoteDCAPProvider{
				URL:     config.RemoteTDXURL,
				Timeout: 30 * time.Second,
			}
		} else {
			attestationProvider = &tdx.TDXProvider{}
		}
	} else {
		attestationProvider = &tdx.DummyProvider{}
	}

	var measurementSource MeasurementSource
	if config.MeasurementsURL != "" {
		measurementSource = NewRemoteMeasurementSource(config.MeasurementsURL)
	} else {
		measurementSource = DemoMeasurementSource()
	}

	return &Orchestrator{
		config:              config,
		subnetConfig:        subnetConfig,
		attestationProvider: attestationProvider,
		measurementSource:   measurementSource,
		httpClient:          &http.Client{Timeout: 10 * time.Second},
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// SubnetConfig returns the configuration shared by the deployed neurons.
func (o *Orchestrator) SubnetConfig() *protocol.SubnetConfig {
	return o.subnetConfig
}

// Validators returns the deployed validator neurons.
func (o *Orchestrator) Validators() []*DeployedNeuron {
	return o.validators
}

// Miners returns the deployed miner neurons.
func (o *Orchestrator) Miners() []*DeployedNeuron {
	return o.miners
}

// Deploy starts the registry and all neurons, assigns validator stake, and
// waits until every neuron has a complete view of the metagraph.
func (o *Orchestrator) Deploy() error {
	fmt.Println("Starting subnet deployment...")

	if err := o.deployRegistry(); err != nil {
		return fmt.Errorf("deploy registry: %w", err)
	}

	for i := 0; i < o.config.NumMiners; i++ {
		neuron, err := o.deployNeuron(MinerNeuron, o.config.BasePort+1+i)
		if err != nil {
			return fmt.Errorf("deploy miner %d: %w", i, err)
		}
		o.miners = append(o.miners, neuron)
	}

	for i := 0; i < o.config.NumValidators; i++ {
		neuron, err := o.deployNeuron(ValidatorNeuron, o.config.BasePort+1+o.config.NumMiners+i)
		if err != nil {
			return fmt.Errorf("deploy validator %d: %w", i, err)
		}
		o.validators = append(o.validators, neuron)
	}

	for _, v := range o.validators {
		if err := o.setStake(v.Hotkey, o.config.ValidatorStake); err != nil {
			return fmt.Errorf("stake validator %s: %w", v.Hotkey[:16], err)
		}
	}

	// Refresh every neuron's metagraph now that stakes are assigned.
	for _, m := range o.miners {
		m.Miner.RefreshMetagraph()
	}
	for _, v := range o.validators {
		v.Validator.RefreshMetagraph()
	}

	fmt.Printf("Deployment complete: %d miners, %d validators\n",
		len(o.miners), len(o.validators))

	return nil
}

func (o *Orchestrator) deployRegistry() error {
	registry, err := NewRegistry(&RegistryConfig{
		AdminToken:          o.config.AdminToken,
		AttestationProvider: o.attestationProvider,
		MeasurementSource:   o.measurementSource,
	}, o.subnetConfig)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("localhost:%d", o.config.BasePort)
	o.registry = registry
	o.registryURL = fmt.Sprintf("http://%s", addr)
	o.registryServer = &http.Server{
		Addr:    addr,
		Handler: registry.Router(),
	}

	go func() {
		if err := o.registryServer.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Printf("Registry error: %v\n", err)
		}
	}()

	return o.waitForHealth(o.registryURL + "/health")
}

func (o *Orchestrator) deployNeuron(neuronType NeuronType, port int) (*DeployedNeuron, error) {
	_, signingKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate keys: %w", err)
	}

	addr := fmt.Sprintf("localhost:%d", port)
	config := &ServiceConfig{
		SubnetConfig:              o.subnetConfig,
		AttestationProvider:       o.attestationProvider,
		AllowedMeasurementsSource: o.measurementSource,
		HTTPAddr:                  addr,
		NeuronType:                neuronType,
		RegistryURL:               o.registryURL,
		AdminToken:                o.config.AdminToken,
	}

	neuron := &DeployedNeuron{
		NeuronType: neuronType,
		HTTPAddr:   fmt.Sprintf("http://%s", addr),
		SigningKey: signingKey,
	}

	router := chi.NewRouter()

	switch neuronType {
	case MinerNeuron:
		m, err := NewHTTPMiner(config, signingKey)
		if err != nil {
			return nil, err
		}
		m.RegisterRoutes(router)
		neuron.Miner = m
		neuron.Hotkey = m.Hotkey().String()

	case ValidatorNeuron:
		v, err := NewHTTPValidator(config, signingKey, nil)
		if err != nil {
			return nil, err
		}
		v.RegisterRoutes(router)
		neuron.Validator = v
		neuron.Hotkey = v.Hotkey().String()
	}

	neuron.HTTPServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting %s %s on %s\n", neuronType, neuron.Hotkey[:16], addr)
		if err := neuron.HTTPServer.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Printf("Neuron %s error: %v\n", neuron.Hotkey[:16], err)
		}
	}()

	if err := o.waitForHealth(neuron.HTTPAddr + "/ping"); err != nil {
		return nil, err
	}

	switch neuronType {
	case MinerNeuron:
		if err := neuron.Miner.Start(o.ctx); err != nil {
			return nil, err
		}
	case ValidatorNeuron:
		if err := neuron.Validator.Start(o.ctx); err != nil {
			return nil, err
		}
	}

	return neuron, nil
}

// setStake assigns stake to a hotkey through the registry admin API.
func (o *Orchestrator) setStake(hotkey string, stake uint64) error {
	body, _ := json.Marshal(&StakeUpdateRequest{Stake: stake})
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/admin/stake/%s", o.registryURL, hotkey), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.config.AdminToken != "" {
		user, pass := parseAdminToken(o.config.AdminToken)
		req.SetBasicAuth(user, pass)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stake update failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// waitForHealth polls an endpoint until it answers or the deadline passes.
func (o *Orchestrator) waitForHealth(url string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := o.httpClient.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("endpoint %s did not come up", url)
}

// RunRound drives one validation round through the first validator,
// submits the resulting weights to the registry, and returns the report.
// The round number follows wall-clock time so it agrees with the miners'
// round coordinators.
func (o *Orchestrator) RunRound(ctx context.Context) (*validator.RoundReport, error) {
	if len(o.validators) == 0 {
		return nil, fmt.Errorf("no validators deployed")
	}
	round := protocol.RoundForTime(time.Now(), o.subnetConfig.RoundDuration)
	report, err := o.validators[0].Validator.RunRoundNow(ctx, round.Number)
	if err != nil {
		return nil, err
	}
	if err := o.validators[0].Validator.SubmitWeights(ctx, round.Number); err != nil {
		return nil, fmt.Errorf("submitting weights: %w", err)
	}
	return report, nil
}

// ConsensusWeights fetches the registry's stake-weighted consensus.
func (o *Orchestrator) ConsensusWeights() (*ConsensusWeightsResponse, error) {
	resp, err := o.httpClient.Get(o.registryURL + "/weights/consensus")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return protocol.DecodeMessage[ConsensusWeightsResponse](resp.Body)
}

// Shutdown stops all neurons and the registry.
func (o *Orchestrator) Shutdown() error {
	fmt.Println("Shutting down deployment...")

	o.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, neuron := range append(append([]*DeployedNeuron{}, o.miners...), o.validators...) {
		if neuron.Miner != nil {
			neuron.Miner.Close()
		}
		if err := neuron.HTTPServer.Shutdown(ctx); err != nil {
			fmt.Printf("Error shutting down %s: %v\n", neuron.Hotkey[:16], err)
		}
	}

	if o.registryServer != nil {
		if err := o.registryServer.Shutdown(ctx); err != nil {
			fmt.Printf("Error shutting down registry: %v\n", err)
		}
	}

	return nil
}
