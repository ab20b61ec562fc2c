// Command validator runs a standalone validator neuron.
//
// Each round the validator samples registered miners, sends them a freshly
// generated simulation challenge, re-simulates their answers to verify
// them, folds the outcome into smoothed per-miner scores, and submits the
// normalized weights to the registry.
//
// # Registration
//
// Validators carry stake and are registered through the registry's admin
// endpoint, so the --admin-token flag must match the registry's token.
// Stake is assigned separately by the operator:
//
//	curl -u admin:secret -X POST http://localhost:8080/admin/stake/<hotkey> \
//	    -d '{"stake": 5000}'
//
// # State
//
// Scores survive restarts when --state points to a file.
//
// # Usage
//
//	go run ./cmd/validator --registry=http://localhost:8080 --admin-token=admin:secret
//	go run ./cmd/validator --config=validator.yaml --state=validator.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vn-automata/automata/api/httpserver"
	"github.com/vn-automata/automata/cmd/common"
	"github.com/vn-automata/automata/services"
)

func main() {
	var (
		configPath      = flag.String("config", "", "Path to YAML config file")
		addr            = flag.String("addr", ":8082", "HTTP listen address")
		metricsAddr     = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		registryURL     = flag.String("registry", "", "Registry URL")
		adminToken      = flag.String("admin-token", "", "Registry admin token (user:pass)")
		statePath       = flag.String("state", "", "Path for persisted score state (empty disables)")
		measurementsURL = flag.String("measurements-url", "", "URL for allowed measurements")
		useTDX          = flag.Bool("tdx", false, "Use real TDX attestation")
		remoteTDXURL    = flag.String("tdx-url", "", "Remote TDX attestation service URL")
		signingKeyHex   = flag.String("signing-key", "", "Ed25519 hotkey (hex, generates if empty)")
	)
	flag.Parse()

	cfg := common.DefaultConfig()
	if *configPath != "" {
		loaded, err := common.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if *addr != ":8082" || cfg.HTTPAddr == "" {
		cfg.HTTPAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
	}
	if *adminToken != "" {
		cfg.AdminToken = *adminToken
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *measurementsURL != "" {
		cfg.Attestation.MeasurementsURL = *measurementsURL
	}
	if *useTDX {
		cfg.Attestation.UseTDX = true
	}
	if *remoteTDXURL != "" {
		cfg.Attestation.TDXRemoteURL = *remoteTDXURL
	}
	if *signingKeyHex != "" {
		cfg.Keys.SigningKey = *signingKeyHex
	}

	if cfg.RegistryURL == "" {
		fmt.Println("Error: --registry is required")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	signingKey, err := common.LoadOrGenerateSigningKey(cfg.Keys.SigningKey)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	hotkey, _ := signingKey.PublicKey()
	log.Info("Validator hotkey", "hotkey", hotkey.String())

	subnetConfig, err := services.FetchSubnetConfig(cfg.RegistryURL)
	if err != nil {
		return fmt.Errorf("fetching subnet config: %w", err)
	}

	validator, err := services.NewHTTPValidator(&services.ServiceConfig{
		SubnetConfig:              subnetConfig,
		AttestationProvider:       common.NewAttestationProvider(cfg.Attestation.UseTDX, cfg.Attestation.TDXRemoteURL),
		AllowedMeasurementsSource: common.NewMeasurementSource(cfg.Attestation.MeasurementsURL),
		HTTPAddr:                  cfg.HTTPAddr,
		NeuronType:                services.ValidatorNeuron,
		RegistryURL:               cfg.RegistryURL,
		AdminToken:                cfg.AdminToken,
		StatePath:                 cfg.StatePath,
	}, signingKey, log)
	if err != nil {
		return fmt.Errorf("creating validator: %w", err)
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             60 * time.Second,
	}, validator)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.RunInBackground()
	if err := validator.Start(ctx); err != nil {
		return fmt.Errorf("starting validator: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down validator")
	cancel()
	srv.Shutdown()
	return nil
}
