/*
# Subnet Services Package

The services package provides the HTTP deployment layer of the subnet:
a metagraph registry plus miner and validator neuron services.

## Components

 1. **Registry** (`registry.go`)
    The subnet's metagraph. Tracks registered miners and validators with
    their operator-assigned stake, serves the shared subnet
    configuration, and collects validator weight submissions.
    Endpoints:
    - `POST /register/{neuron_type}` - Public miner registration
    - `POST /admin/register/validator` - Authenticated validator registration
    - `POST /admin/stake/{hotkey}` - Assign stake
    - `GET /neurons` - List the metagraph
    - `GET /config` - Shared subnet configuration
    - `POST /weights` - Signed validator weight submission
    - `GET /weights/consensus` - Stake-weighted consensus weights

 2. **HTTPMiner** (`http_miner.go`)
    Wraps `miner.Miner` with a priority work queue.
    Endpoints:
    - `GET /ping` - Liveness and identity
    - `POST /simulate` - Run a signed simulation challenge

 3. **HTTPValidator** (`http_validator.go`)
    Wraps `validator.Validator`. Each round it challenges discovered
    miners, verifies results, updates smoothed scores, and submits
    weights to the registry.
    Endpoints:
    - `GET /ping` - Liveness and identity
    - `GET /scores` - Current smoothed miner scores

## Round flow

 1. **Challenge phase**: validators sample miners from their local
    metagraph and dispatch signed simulation challenges.
 2. **Compute phase**: miners run the deterministic evolution and return
    signed results with a payload digest.
 3. **Score phase**: validators re-simulate, compare digests, and fold
    verdicts into per-miner moving averages.
 4. **Weights phase**: validators submit normalized weights; the registry
    combines them stake-weighted into the consensus vector.

## Discovery

Neurons mirror the registry metagraph locally. New hotkeys are admitted
only after signature and (when configured) attestation verification;
known hotkeys get stake and endpoint refreshes on every discovery tick.

## Deployment

The `Orchestrator` (`orchestrator.go`) runs a full subnet in one process
for demos and tests:

	config := &services.OrchestratorConfig{
	    NumMiners:      4,
	    NumValidators:  1,
	    BasePort:       8000,
	    RoundDuration:  10 * time.Second,
	    ValidatorStake: 10000,
	    AdminToken:     "admin:admin",
	}

	orchestrator := services.NewOrchestrator(config)
	if err := orchestrator.Deploy(); err != nil {
	    log.Fatal(err)
	}
	defer orchestrator.Shutdown()

Persistence: the registry can be backed by PostgreSQL
(`postgres_store.go`) so the metagraph and stake assignments survive
restarts; validators persist their score state as JSON.
*/
package services
