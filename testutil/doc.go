/*
Package testutil provides testing utilities for the subnet protocol
implementation.

This package contains test data generators designed to simplify writing
tests for subnet components: configurations, key pairs, simulation
challenges, and miner results, all customizable through the option
pattern.

# Configuration Generators

Functions for creating customizable SubnetConfig instances sized for fast
tests:

	// Create default test config
	config := testutil.NewTestConfig()

	// Create custom config with specific options
	customConfig := testutil.NewTestConfig(
	    testutil.WithGridSize(32, 32),
	    testutil.WithStepRange(5, 10),
	    testutil.WithRules("conway", "highlife"),
	)

# Cryptographic Generators

Utilities for generating keys and random data:

	// Generate random bytes
	randomBytes, _ := testutil.GenerateRandomBytes(32)

	// Generate key pairs
	pubKey, privKey, _ := testutil.GenerateTestKeyPair()

	// Generate multiple public keys
	publicKeys, _ := testutil.GenerateTestPublicKeys(10)

# Challenge and Result Generators

Functions for creating deterministic challenges and the results miners
produce for them:

	// Create a challenge within the config's limits
	challenge := testutil.GenerateTestChallenge(config,
	    testutil.WithRule("rule30"),
	    testutil.WithSeed(7),
	)

	// Sign it the way a validator does
	signed, _ := testutil.GenerateSignedChallenge(validatorKey, config)

	// Produce a correct miner result
	result, _ := testutil.GenerateHonestResult(minerKey, challenge)

	// Produce a validly signed but incorrect result
	cheat, _ := testutil.GenerateTamperedResult(minerKey, challenge)

# Stake Fixtures

StaticStakes is a fixed hotkey-to-stake table that satisfies the miner's
stake source interface:

	stakes := testutil.StaticStakes{validatorHotkey.String(): 5000}
	m, _ := miner.New(config, minerKey, stakes)
*/
package testutil
