// Package testutil provides test fixtures and utilities.
//
// This package contains embedded fixtures, helper functions for loading
// them, and a TestEnv that wires mocks into the application context.
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/inventory.toml          three targets, vars file, env file
//	fixtures/invalid_inventory.toml  fails validation
//	fixtures/vars.yaml               every variable the directives reference
//	fixtures/agent.env               env-file variables
//	fixtures/ml2_conf.ini            unpatched agent configuration
//
// # Loading Fixtures
//
//	inv, err := testutil.ValidInventory(dir)
//	doc, err := testutil.AgentConfig()
//	m, err := testutil.Vars()
//	data, err := testutil.LoadFixture("ml2_conf.ini")
//
// # Test Environment
//
//	env := testutil.NewTestEnv(t)
//	path := env.FixtureProject()
//	env.FailOn("setup.py install", "error: invalid command")
//	// run commands against app.Default, inspect env.Executor and env.FS
package testutil
