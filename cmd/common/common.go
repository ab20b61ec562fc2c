// Package common provides shared utilities for the subnet CLI commands.
//
// This package contains helper functions used across the standalone neuron
// binaries (registry, miner, validator) to reduce code duplication:
//
//   - Key loading and generation for Ed25519 hotkeys
//   - YAML configuration files with flag overrides
//   - TEE provider and measurement source factory functions
package common

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vn-automata/automata/crypto"
	"github.com/vn-automata/automata/protocol"
	"github.com/vn-automata/automata/services"
	"github.com/vn-automata/automata/tdx"
)

// Config is the YAML configuration shared by the neuron binaries. Flags
// override individual fields.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	RegistryURL string `yaml:"registry_url"`
	AdminToken  string `yaml:"admin_token"`
	StatePath   string `yaml:"state_path"`

	Keys struct {
		SigningKey string `yaml:"signing_key"`
	} `yaml:"keys"`

	Attestation struct {
		UseTDX          bool   `yaml:"use_tdx"`
		TDXRemoteURL    string `yaml:"tdx_remote_url"`
		MeasurementsURL string `yaml:"measurements_url"`
	} `yaml:"attestation"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"postgres"`

	// Subnet configures the protocol parameters distributed by the
	// registry. Neuron binaries ignore it and fetch the registry's copy.
	Subnet *protocol.SubnetConfig `yaml:"subnet"`
}

// DefaultConfig returns a config suitable for local deployments.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Subnet:   protocol.DefaultSubnetConfig(),
	}
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// NewAttestationProvider creates a TEE provider based on configuration flags.
// Returns TDXProvider or RemoteDCAPProvider when useTDX is true,
// otherwise returns DummyProvider for testing.
func NewAttestationProvider(useTDX bool, remoteTDXURL string) services.TEEProvider {
	if useTDX {
		if remoteTDXURL != "" {
			return &tdx.RemoteDCAPProvider{URL: remoteTDXURL, Timeout: 30 * time.Second}
		}
		return &tdx.TDXProvider{}
	}
	return &tdx.DummyProvider{}
}

// NewMeasurementSource creates a measurement source from a URL.
// Returns nil if measurementsURL is empty, indicating no measurement
// verification should be performed.
func NewMeasurementSource(measurementsURL string) services.MeasurementSource {
	if measurementsURL != "" {
		return services.NewRemoteMeasurementSource(measurementsURL)
	}
	return nil
}
