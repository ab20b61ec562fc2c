package services

import (
	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
)

// ServiceConfig contains configuration for HTTP neuron services.
type ServiceConfig struct {
	SubnetConfig              *protocol.SubnetConfig
	AttestationProvider       TEEProvider
	AllowedMeasurementsSource MeasurementSource
	HTTPAddr                  string
	NeuronType                NeuronType
	RegistryURL               string
	// AdminToken for authenticating with registry admin endpoints (user:pass).
	AdminToken string
	// StatePath is where a validator persists its score state. Empty
	// disables persistence.
	StatePath string
}

// NeuronType identifies the role of a subnet participant.
type NeuronType string

const (
	MinerNeuron     NeuronType = "miner"
	ValidatorNeuron NeuronType = "validator"
)

// Valid returns true if the neuron type is recognized.
func (t NeuronType) Valid() bool {
	switch t {
	case MinerNeuron, ValidatorNeuron:
		return true
	}
	return false
}

// NeuronRegistrationRequest is the signed body of a registration.
type NeuronRegistrationRequest struct {
	NeuronType   NeuronType `json:"neuron_type"`
	Hotkey       string     `json:"hotkey"`
	HTTPEndpoint string     `json:"http_endpoint"`
	Attestation  []byte     `json:"attestation,omitempty"`
}

// RegisteredNeuron is a metagraph entry: one registered subnet participant.
// The registry is the source of truth for these; miners and validators
// mirror them into their local metagraph through discovery.
type RegisteredNeuron struct {
	NeuronType   NeuronType `json:"neuron_type"`
	Hotkey       string     `json:"hotkey"`
	HTTPEndpoint string     `json:"http_endpoint"`
	// Stake is assigned by the registry operator, not the neuron.
	Stake       uint64 `json:"stake"`
	Attestation []byte `json:"attestation,omitempty"`
	// Signature is the neuron's signature over its registration request.
	Signature []byte `json:"signature"`
}

// ParseHotkey returns the neuron's parsed public key.
func (n *RegisteredNeuron) ParseHotkey() (crypto.PublicKey, error) {
	return crypto.NewPublicKeyFromString(n.Hotkey)
}

// registrationRequest reconstructs the signed request from a metagraph
// entry, for signature and attestation re-verification.
func (n *RegisteredNeuron) registrationRequest() *NeuronRegistrationRequest {
	return &NeuronRegistrationRequest{
		NeuronType:   n.NeuronType,
		Hotkey:       n.Hotkey,
		HTTPEndpoint: n.HTTPEndpoint,
		Attestation:  n.Attestation,
	}
}

// NeuronRegistrationResponse confirms registry registration.
type NeuronRegistrationResponse struct {
	Success bool   `json:"success"`
	Hotkey  string `json:"hotkey,omitempty"`
	Message string `json:"message,omitempty"`
}

// NeuronListResponse contains all registered neurons by type.
type NeuronListResponse struct {
	Miners     []*RegisteredNeuron `json:"miners"`
	Validators []*RegisteredNeuron `json:"validators"`
}

// StakeUpdateRequest sets a neuron's stake through the admin API.
type StakeUpdateRequest struct {
	Stake uint64 `json:"stake"`
}

// WeightsResponse returns the latest weight submission per validator.
type WeightsResponse struct {
	Submissions map[string]*protocol.Signed[protocol.WeightSubmission] `json:"submissions"`
}

// ConsensusWeightsResponse returns the stake-weighted combination of all
// validator submissions.
type ConsensusWeightsResponse struct {
	RoundNumber int                `json:"round_number"`
	Weights     map[string]float64 `json:"weights"`
}

// LocalMetagraph is a neuron's verified local mirror of the registry's
// metagraph. It doubles as the miner's stake source for blacklisting and
// prioritization.
type LocalMetagraph struct {
	Miners     map[string]*RegisteredNeuron
	Validators map[string]*RegisteredNeuron
}

// NewLocalMetagraph creates an empty local metagraph.
func NewLocalMetagraph() *LocalMetagraph {
	return &LocalMetagraph{
		Miners:     make(map[string]*RegisteredNeuron),
		Validators: make(map[string]*RegisteredNeuron),
	}
}
