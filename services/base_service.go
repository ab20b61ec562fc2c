package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

// discoveryHandler processes discovered neurons during the discovery loop.
type discoveryHandler interface {
	onMinerDiscovered(*RegisteredNeuron) error
	onValidatorDiscovered(*RegisteredNeuron) error
	selfHotkey() string
}

// baseService contains common fields and methods for miner and validator
// HTTP services.
type baseService struct {
	config      *ServiceConfig
	roundCoord  *protocol.LocalRoundCoordinator
	httpClient  *http.Client
	attestation []byte
	signingKey  crypto.PrivateKey

	mu             sync.RWMutex
	currentRound   protocol.Round
	metagraph      *LocalMetagraph
	discoveryReqCh chan struct{}
}

func newBaseService(config *ServiceConfig, signingKey crypto.PrivateKey) (*baseService, error) {
	roundCoord := protocol.NewLocalRoundCoordinator(config.SubnetConfig.RoundDuration)

	hotkey, err := signingKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	req := &NeuronRegistrationRequest{
		NeuronType:   config.NeuronType,
		Hotkey:       hotkey.String(),
		HTTPEndpoint: fmt.Sprintf("http://%s", config.HTTPAddr),
	}

	attestation, err := AttestNeuronRegistration(config.AttestationProvider, req)
	if err != nil {
		return nil, fmt.Errorf("could not attest registration: %w", err)
	}

	return &baseService{
		config:         config,
		roundCoord:     roundCoord,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		attestation:    attestation,
		signingKey:     signingKey,
		metagraph:      NewLocalMetagraph(),
		discoveryReqCh: make(chan struct{}, 1),
	}, nil
}

func (b *baseService) hotkey() crypto.PublicKey {
	hotkey, _ := b.signingKey.PublicKey()
	return hotkey
}

func (b *baseService) registrationRequest() *NeuronRegistrationRequest {
	return &NeuronRegistrationRequest{
		NeuronType:   b.config.NeuronType,
		Hotkey:       b.hotkey().String(),
		HTTPEndpoint: fmt.Sprintf("http://%s", b.config.HTTPAddr),
		Attestation:  b.attestation,
	}
}

// registerWithRegistry registers this neuron with the metagraph registry.
// Validators go through the authenticated admin endpoint since their
// registration carries stake assignments.
func (b *baseService) registerWithRegistry() error {
	if b.config.RegistryURL == "" {
		return nil
	}

	signedReq, err := protocol.NewSigned(b.signingKey, b.registrationRequest())
	if err != nil {
		return fmt.Errorf("failed to sign registration: %w", err)
	}

	body, _ := json.Marshal(signedReq)

	var url string
	if b.config.NeuronType == MinerNeuron {
		url = fmt.Sprintf("%s/register/%s", b.config.RegistryURL, b.config.NeuronType)
	} else {
		url = fmt.Sprintf("%s/admin/register/%s", b.config.RegistryURL, b.config.NeuronType)
	}

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if b.config.NeuronType == ValidatorNeuron && b.config.AdminToken != "" {
		user, pass := parseAdminToken(b.config.AdminToken)
		httpReq.SetBasicAuth(user, pass)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("registration failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// requestDiscovery asks the discovery loop for an early metagraph refresh.
func (b *baseService) requestDiscovery() {
	select {
	case b.discoveryReqCh <- struct{}{}:
	default:
	}
}

// Note: this really should be async (sse/ws)
func (b *baseService) runDiscoveryLoop(ctx context.Context, handler discoveryHandler) {
	b.discoverNeurons(handler)

	discoveryTickerDuration := time.Minute

	ticker := time.NewTicker(discoveryTickerDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.discoverNeurons(handler)
		case <-b.discoveryReqCh:
			ticker.Reset(discoveryTickerDuration)
			b.discoverNeurons(handler)

			// drain
			select {
			case <-b.discoveryReqCh:
			default:
			}
		}
	}
}

// discoverNeurons fetches the registry metagraph and folds it into the
// local mirror. New hotkeys are verified before admission; known hotkeys
// only get their stake and endpoint refreshed.
func (b *baseService) discoverNeurons(handler discoveryHandler) {
	if b.config.RegistryURL == "" {
		return
	}

	resp, err := b.httpClient.Get(b.config.RegistryURL + "/neurons")
	if err != nil {
		return
	}
	defer resp.Body.Close()

	var list NeuronListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	self := handler.selfHotkey()

	for _, neuron := range list.Miners {
		if neuron.Hotkey == self {
			continue
		}
		if known, exists := b.metagraph.Miners[neuron.Hotkey]; exists {
			known.Stake = neuron.Stake
			known.HTTPEndpoint = neuron.HTTPEndpoint
			continue
		}
		if err := handler.onMinerDiscovered(neuron); err != nil {
			continue
		}
	}

	for _, neuron := range list.Validators {
		if neuron.Hotkey == self {
			continue
		}
		if known, exists := b.metagraph.Validators[neuron.Hotkey]; exists {
			known.Stake = neuron.Stake
			known.HTTPEndpoint = neuron.HTTPEndpoint
			continue
		}
		if err := handler.onValidatorDiscovered(neuron); err != nil {
			continue
		}
	}
}

// verifyAndStoreMiner admits a discovered miner into the local metagraph.
// Callers hold b.mu.
func (b *baseService) verifyAndStoreMiner(neuron *RegisteredNeuron) error {
	if _, err := VerifyNeuron(b.config.AllowedMeasurementsSource, b.config.AttestationProvider, neuron); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	b.metagraph.Miners[neuron.Hotkey] = neuron
	return nil
}

// verifyAndStoreValidator admits a discovered validator into the local
// metagraph. Callers hold b.mu.
func (b *baseService) verifyAndStoreValidator(neuron *RegisteredNeuron) error {
	if _, err := VerifyNeuron(b.config.AllowedMeasurementsSource, b.config.AttestationProvider, neuron); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	b.metagraph.Validators[neuron.Hotkey] = neuron
	return nil
}

// stakeOf reports the stake of a hotkey present in the local metagraph.
func (b *baseService) stakeOf(hotkey string) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if neuron, ok := b.metagraph.Validators[hotkey]; ok {
		return neuron.Stake, true
	}
	if neuron, ok := b.metagraph.Miners[hotkey]; ok {
		return neuron.Stake, true
	}
	return 0, false
}

// knownMiners returns a snapshot of the discovered miners.
func (b *baseService) knownMiners() []*RegisteredNeuron {
	b.mu.RLock()
	defer b.mu.RUnlock()
	miners := make([]*RegisteredNeuron, 0, len(b.metagraph.Miners))
	for _, neuron := range b.metagraph.Miners {
		copied := *neuron
		miners = append(miners, &copied)
	}
	return miners
}

// FetchSubnetConfig retrieves the shared subnet configuration from a
// registry, so cmd binaries agree with the registry on round timing.
func FetchSubnetConfig(registryURL string) (*protocol.SubnetConfig, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(registryURL + "/config")
	if err != nil {
		return nil, fmt.Errorf("fetching subnet config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("config endpoint returned %d: %s", resp.StatusCode, body)
	}

	config, err := protocol.DecodeMessage[protocol.SubnetConfig](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding subnet config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("registry served invalid config: %w", err)
	}
	return config, nil
}

func parseAdminToken(token string) (user, pass string) {
	idx := strings.Index(token, ":")
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}
