// Command cli provides tools for inspecting a deployed subnet.
//
// # Commands
//
// status: Display the metagraph: registered miners and validators with
// their stake.
//
//	cli status --registry=http://localhost:8080
//
// weights: Display the stake-weighted consensus weights.
//
//	cli weights --registry=http://localhost:8080
//
// simulate: Run a cellular automaton locally and render the evolution.
//
//	cli simulate --rule=conway --width=40 --height=20 --steps=10
//	cli simulate --rule=rule110 --width=80 --steps=40 --render
package main

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/vn-automata/automata/ca"
	"github.com/vn-automata/automata/protocol"
	"github.com/vn-automata/automata/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "status":
		err = runStatus(args)
	case "weights":
		err = runWeights(args)
	case "simulate":
		err = runSimulate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cli - tools for inspecting a deployed subnet

Usage:
  cli <command> [options]

Commands:
  status    Display registered neurons and their stake
  weights   Display stake-weighted consensus weights
  simulate  Run a cellular automaton locally

Run 'cli <command> --help' for command-specific options.`)
}

func parseRegistry(args []string) string {
	registryURL := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--registry", "-r":
			i++
			if i < len(args) {
				registryURL = args[i]
			}
		}
	}
	if registryURL == "" {
		registryURL = "http://localhost:8080"
	}
	return registryURL
}

// --- Status Command ---

func runStatus(args []string) error {
	registryURL := parseRegistry(args)
	httpClient := &http.Client{Timeout: 10 * time.Second}

	resp, err := httpClient.Get(registryURL + "/config")
	if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	defer resp.Body.Close()
	config, err := protocol.DecodeMessage[protocol.SubnetConfig](resp.Body)
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	neurons, err := fetchNeurons(httpClient, registryURL)
	if err != nil {
		return err
	}

	fmt.Printf("Registry: %s\n", registryURL)
	fmt.Printf("Round duration: %s, sample size: %d, grids: %dx%d\n\n",
		config.RoundDuration, config.SampleSize, config.GridWidth, config.GridHeight)

	fmt.Printf("Validators (%d):\n", len(neurons.Validators))
	for _, n := range neurons.Validators {
		fmt.Printf("  %s... stake=%d endpoint=%s\n", n.Hotkey[:16], n.Stake, n.HTTPEndpoint)
	}

	fmt.Printf("\nMiners (%d):\n", len(neurons.Miners))
	for _, n := range neurons.Miners {
		fmt.Printf("  %s... endpoint=%s\n", n.Hotkey[:16], n.HTTPEndpoint)
	}

	return nil
}

func fetchNeurons(httpClient *http.Client, registryURL string) (*services.NeuronListResponse, error) {
	resp, err := httpClient.Get(registryURL + "/neurons")
	if err != nil {
		return nil, fmt.Errorf("fetch neurons: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}
	return protocol.DecodeMessage[services.NeuronListResponse](resp.Body)
}

// --- Weights Command ---

func runWeights(args []string) error {
	registryURL := parseRegistry(args)
	httpClient := &http.Client{Timeout: 10 * time.Second}

	resp, err := httpClient.Get(registryURL + "/weights/consensus")
	if err != nil {
		return fmt.Errorf("fetch consensus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	consensus, err := protocol.DecodeMessage[services.ConsensusWeightsResponse](resp.Body)
	if err != nil {
		return fmt.Errorf("decode consensus: %w", err)
	}

	if len(consensus.Weights) == 0 {
		fmt.Println("No weight submissions yet")
		return nil
	}

	hotkeys := make([]string, 0, len(consensus.Weights))
	for hotkey := range consensus.Weights {
		hotkeys = append(hotkeys, hotkey)
	}
	sort.Slice(hotkeys, func(i, j int) bool {
		return consensus.Weights[hotkeys[i]] > consensus.Weights[hotkeys[j]]
	})

	fmt.Printf("Consensus weights as of round %d:\n", consensus.RoundNumber)
	for _, hotkey := range hotkeys {
		fmt.Printf("  %s... %.4f\n", hotkey[:16], consensus.Weights[hotkey])
	}
	return nil
}

// --- Simulate Command ---

func runSimulate(args []string) error {
	var (
		rule    = "conway"
		width   = 40
		height  = 20
		steps   = 10
		seed    = int64(time.Now().UnixNano())
		density = 0.3
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--rule":
			i++
			if i < len(args) {
				rule = args[i]
			}
		case "--width":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%d", &width)
			}
		case "--height":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%d", &height)
			}
		case "--steps":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%d", &steps)
			}
		case "--seed":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%d", &seed)
			}
		case "--density":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%f", &density)
			}
		case "--help", "-h":
			fmt.Println(`cli simulate - Run a cellular automaton locally

Options:
  --rule      Rule name (conway, highlife, brain, rule30, ...)
  --width     Grid width (default: 40)
  --height    Grid height, 2D rules only (default: 20)
  --steps     Evolution steps (default: 10)
  --seed      Initial grid seed (default: current time)
  --density   Live-cell probability (default: 0.3)`)
			return nil
		}
	}

	resolved, err := ca.Lookup(rule)
	if err != nil {
		return err
	}

	challenge := &protocol.SimulationChallenge{
		RoundNumber: 1,
		Rule:        resolved.Name(),
		Dimension:   resolved.Dimension(),
		Width:       width,
		Steps:       steps,
		Seed:        seed,
		Density:     density,
		Radius:      1,
	}
	if resolved.Dimension() == 2 {
		challenge.Height = height
		challenge.Neighbourhood = string(ca.Moore)
	}

	started := time.Now()
	history, err := challenge.Run()
	if err != nil {
		return err
	}

	fmt.Print(ca.RenderHistory(history))
	fmt.Printf("\n%s: %d generations in %s (digest %s)\n",
		resolved.Name(), len(history.Generations), time.Since(started),
		ca.DigestHistory(history))
	return nil
}
