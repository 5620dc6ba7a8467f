package testutil

import (
	"embed"

	"github.com/firefly-engineering/agent-deploy/internal/inifile"
	"github.com/firefly-engineering/agent-deploy/internal/inventory"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadInventoryFixture parses an inventory fixture. Relative paths resolve
// inside dir.
func LoadInventoryFixture(name, dir string) (*inventory.Inventory, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return inventory.Parse(string(data), dir)
}

// ValidInventory returns the three-target inventory fixture.
func ValidInventory(dir string) (*inventory.Inventory, error) {
	return LoadInventoryFixture("inventory.toml", dir)
}

// InvalidInventory parses the invalid inventory fixture and returns the
// resulting error.
func InvalidInventory(dir string) error {
	_, err := LoadInventoryFixture("invalid_inventory.toml", dir)
	return err
}

// AgentConfig returns the unpatched agent configuration fixture.
func AgentConfig() (*inifile.Document, error) {
	data, err := LoadFixture("ml2_conf.ini")
	if err != nil {
		return nil, err
	}
	return inifile.Parse(string(data))
}

// Vars returns the variables fixture, which defines every variable the
// default directives reference.
func Vars() (vars.Map, error) {
	data, err := LoadFixture("vars.yaml")
	if err != nil {
		return nil, err
	}
	return vars.ParseYAML(data)
}
