// Package cmd provides CLI commands for the subnet services.
//
// # Commands
//
// registry: Central metagraph service. Tracks miners and validators,
// distributes the subnet configuration, collects weight submissions, and
// serves the stake-weighted consensus.
//
//	go run ./cmd/registry --addr=:8080 --admin-token=admin:secret
//	go run ./cmd/registry --config=registry.yaml
//
// miner: Compute neuron. Answers validator challenges by simulating the
// requested cellular automaton and returning the signed history.
//
//	go run ./cmd/miner --registry=http://localhost:8080
//
// validator: Scoring neuron. Challenges miners each round, verifies their
// answers by re-simulation, and submits normalized weights.
//
//	go run ./cmd/validator --registry=http://localhost:8080 --admin-token=admin:secret
//
// demo: Runs a full subnet in one process for local experimentation.
//
//	go run ./cmd/demo --miners=5 --round=10s --render
//
// cli: Inspection tools for a deployed subnet.
//
//	go run ./cmd/cli status -r http://localhost:8080
//	go run ./cmd/cli weights -r http://localhost:8080
//	go run ./cmd/cli simulate --rule=rule110 --width=80 --steps=40
//
// # Configuration
//
// The registry, miner, and validator commands support YAML configuration
// files via the --config flag. Command-line flags override config file
// values.
//
// Example config for a validator:
//
//	http_addr: ":8082"
//	registry_url: "http://localhost:8080"
//	admin_token: "admin:secret"
//	state_path: "validator-state.json"
//	keys:
//	  signing_key: ""    # Hex-encoded, generates if empty
//	attestation:
//	  use_tdx: false
//	  tdx_remote_url: ""
//	  measurements_url: ""
package cmd
