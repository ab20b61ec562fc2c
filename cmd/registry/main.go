// Command registry runs the subnet's metagraph registry.
//
// The registry tracks registered miners and validators, distributes the
// shared subnet configuration, collects validator weight submissions, and
// serves the stake-weighted consensus weights.
//
// # Configuration File
//
// Create a YAML file with registry settings:
//
//	http_addr: ":8080"
//	metrics_addr: ""
//	admin_token: "admin:secret"
//	attestation:
//	  use_tdx: false
//	  measurements_url: ""
//	postgres:
//	  host: ""          # Empty keeps the metagraph in memory
//	subnet:
//	  round_duration: 20s
//	  sample_size: 8
//	  grid_width: 64
//	  grid_height: 64
//
// # Endpoints
//
// Public (no auth):
//   - POST /register/miner - Miner self-registration
//   - GET /neurons - List all neurons
//   - GET /neurons/{type} - List neurons by type
//   - GET /config - Subnet configuration
//   - GET /health - Health check
//   - POST /weights - Validator weight submission
//   - GET /weights/consensus - Stake-weighted consensus weights
//
// Admin (basic auth when admin_token set):
//   - POST /admin/register/{neuron_type} - Register a validator
//   - POST /admin/stake/{hotkey} - Assign stake
//   - DELETE /admin/unregister/{hotkey} - Remove a neuron
//
// # Usage
//
//	go run ./cmd/registry --config=registry.yaml
//	go run ./cmd/registry --addr=:8080 --admin-token="admin:secret"
package main

import (
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
		addr            = flag.String("addr", "", "HTTP listen address")
		metricsAddr     = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		adminToken      = flag.String("admin-token", "", "Basic auth token for admin operations (user:pass)")
		measurementsURL = flag.String("measurements-url", "", "URL for allowed measurements")
		useTDX          = flag.Bool("tdx", false, "Use real TDX attestation verification")
		remoteTDXURL    = flag.String("tdx-url", "", "Remote TDX verification service URL")
		roundDuration   = flag.Duration("round", 0, "Round duration")
		sampleSize      = flag.Int("sample-size", 0, "Miners queried per round")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *adminToken != "" {
		cfg.AdminToken = *adminToken
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
	if *roundDuration != 0 {
		cfg.Subnet.RoundDuration = *roundDuration
	}
	if *sampleSize != 0 {
		cfg.Subnet.SampleSize = *sampleSize
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func run(cfg *common.Config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var store services.RegistryStore
	if cfg.Postgres.Host != "" {
		pgStore, err := services.NewPostgresStore(&services.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
	}

	registry, err := services.NewRegistry(&services.RegistryConfig{
		AdminToken:          cfg.AdminToken,
		MeasurementSource:   common.NewMeasurementSource(cfg.Attestation.MeasurementsURL),
		AttestationProvider: common.NewAttestationProvider(cfg.Attestation.UseTDX, cfg.Attestation.TDXRemoteURL),
		Store:               store,
	}, cfg.Subnet)
	if err != nil {
		return fmt.Errorf("creating registry: %w", err)
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, registry)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if cfg.AdminToken == "" {
		log.Warn("No admin token configured, /admin/* routes are unprotected")
	}
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down registry")
	srv.Shutdown()
	return nil
}
