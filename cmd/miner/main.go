// Command miner runs a standalone miner neuron.
//
// Miners receive signed simulation challenges from validators, run the
// requested cellular automaton, and return the signed evolution history.
// Requests from unknown or understaked hotkeys are refused, and accepted
// work is ordered by the caller's stake.
//
// Miners self-register through the registry's public endpoint and keep
// their local metagraph fresh by polling the registry.
//
// # Usage
//
//	go run ./cmd/miner --registry=http://localhost:8080
//	go run ./cmd/miner --config=miner.yaml
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
		addr            = flag.String("addr", ":8081", "HTTP listen address")
		metricsAddr     = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		registryURL     = flag.String("registry", "", "Registry URL")
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

	if *addr != ":8081" || cfg.HTTPAddr == "" {
		cfg.HTTPAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
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
	log.Info("Miner hotkey", "hotkey", hotkey.String())

	subnetConfig, err := services.FetchSubnetConfig(cfg.RegistryURL)
	if err != nil {
		return fmt.Errorf("fetching subnet config: %w", err)
	}

	miner, err := services.NewHTTPMiner(&services.ServiceConfig{
		SubnetConfig:              subnetConfig,
		AttestationProvider:       common.NewAttestationProvider(cfg.Attestation.UseTDX, cfg.Attestation.TDXRemoteURL),
		AllowedMeasurementsSource: common.NewMeasurementSource(cfg.Attestation.MeasurementsURL),
		HTTPAddr:                  cfg.HTTPAddr,
		NeuronType:                services.MinerNeuron,
		RegistryURL:               cfg.RegistryURL,
	}, signingKey)
	if err != nil {
		return fmt.Errorf("creating miner: %w", err)
	}
	defer miner.Close()

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             60 * time.Second,
	}, miner)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.RunInBackground()
	if err := miner.Start(ctx); err != nil {
		return fmt.Errorf("starting miner: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down miner")
	cancel()
	srv.Shutdown()
	return nil
}
