// Command demo runs a full subnet in one process: a registry plus a set of
// miner and validator neurons talking over localhost HTTP.
//
// Each round the lead validator challenges every miner with a random
// cellular automaton, verifies the returned histories by re-simulation,
// and submits the resulting weights to the registry. The winning evolution
// is rendered to the terminal.
//
// # Usage
//
//	go run ./cmd/demo
//	go run ./cmd/demo --miners=5 --validators=2 --round=10s --render
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/services"
	"github.com/vn-automata/automata/validator"
)

func main() {
	var (
		numMiners       = flag.Int("miners", 3, "Number of miner neurons")
		numValidators   = flag.Int("validators", 1, "Number of validator neurons")
		basePort        = flag.Int("port", 7900, "Base port; registry takes it, neurons follow")
		roundDuration   = flag.Duration("round", 10*time.Second, "Round duration")
		validatorStake  = flag.Uint64("stake", 5000, "Stake assigned to each validator")
		adminToken      = flag.String("admin-token", "admin:demo", "Registry admin token (user:pass)")
		useTDX          = flag.Bool("tdx", false, "Use real TDX attestation")
		remoteTDXURL    = flag.String("tdx-url", "", "Remote TDX attestation service URL")
		measurementsURL = flag.String("measurements-url", "", "URL for allowed measurements")
		render          = flag.Bool("render", false, "Render the winning evolution as ASCII")
	)
	flag.Parse()

	orchestrator := services.NewOrchestrator(&services.OrchestratorConfig{
		NumMiners:       *numMiners,
		NumValidators:   *numValidators,
		BasePort:        *basePort,
		RoundDuration:   *roundDuration,
		ValidatorStake:  *validatorStake,
		AdminToken:      *adminToken,
		UseTDX:          *useTDX,
		RemoteTDXURL:    *remoteTDXURL,
		MeasurementsURL: *measurementsURL,
	})

	if err := orchestrator.Deploy(); err != nil {
		fmt.Printf("Deploy error: %v\n", err)
		os.Exit(1)
	}
	defer orchestrator.Shutdown()

	fmt.Printf("\nSubnet running: %d miners, %d validators, %s rounds\n",
		*numMiners, *numValidators, *roundDuration)
	fmt.Printf("Registry: http://localhost:%d\n\n", *basePort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	ticker := time.NewTicker(*roundDuration)
	defer ticker.Stop()

	for {
		report, err := orchestrator.RunRound(ctx)
		if err != nil {
			fmt.Printf("Round error: %v\n", err)
		} else {
			printReport(report, *render)
			printConsensus(orchestrator)
		}

		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down demo subnet...")
			return
		case <-ticker.C:
		}
	}
}

func printReport(report *validator.RoundReport, render bool) {
	c := report.Challenge
	if c.Dimension == 1 {
		fmt.Printf("Round %d: %s, %d cells, %d steps, seed %d\n",
			c.RoundNumber, c.Rule, c.Width, c.Steps, c.Seed)
	} else {
		fmt.Printf("Round %d: %s (%s), %dx%d, %d steps, seed %d\n",
			c.RoundNumber, c.Rule, c.Neighbourhood, c.Width, c.Height, c.Steps, c.Seed)
	}

	for _, verdict := range report.Verdicts {
		status := "ok"
		if !verdict.Correct {
			status = "rejected: " + verdict.Reason
		}
		fmt.Printf("  %s... %s\n", verdict.Hotkey[:16], status)
	}

	if render && report.Winning != nil {
		fmt.Println(ca.RenderHistory(report.Winning))
	}
}

func printConsensus(orchestrator *services.Orchestrator) {
	consensus, err := orchestrator.ConsensusWeights()
	if err != nil {
		fmt.Printf("  consensus unavailable: %v\n", err)
		return
	}

	hotkeys := make([]string, 0, len(consensus.Weights))
	for hotkey := range consensus.Weights {
		hotkeys = append(hotkeys, hotkey)
	}
	sort.Strings(hotkeys)

	fmt.Println("  consensus weights:")
	for _, hotkey := range hotkeys {
		fmt.Printf("    %s... %.4f\n", hotkey[:16], consensus.Weights[hotkey])
	}
	fmt.Println()
}
