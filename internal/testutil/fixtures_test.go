package testutil

import (
	"testing"

	"github.com/firefly-engineering/agent-deploy/internal/patch"
)

func TestValidInventory(t *testing.T) {
	inv, err := ValidInventory(t.TempDir())
	if err != nil {
		t.Fatalf("ValidInventory() error: %v", err)
	}

	hosts := inv.Hosts()
	if len(hosts) != 3 {
		t.Fatalf("got %d hosts, want 3", len(hosts))
	}
	if hosts[1].Port != 2222 {
		t.Errorf("node2 port = %d, want 2222", hosts[1].Port)
	}
	if hosts[2].Launcher != "systemd" {
		t.Errorf("node3 launcher = %q, want systemd", hosts[2].Launcher)
	}
	for _, h := range hosts {
		if h.User != "stack" {
			t.Errorf("%s: user = %q, want inherited %q", h.Name, h.User, "stack")
		}
	}
}

func TestInvalidInventory(t *testing.T) {
	if err := InvalidInventory(t.TempDir()); err == nil {
		t.Error("invalid inventory should fail validation")
	}
}

func TestVarsCoverDefaultDirectives(t *testing.T) {
	m, err := Vars()
	if err != nil {
		t.Fatalf("Vars() error: %v", err)
	}

	missing, err := patch.Missing(patch.DefaultDirectives(), m)
	if err != nil {
		t.Fatalf("Missing() error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("vars fixture misses %v", missing)
	}
	if got := m["nsxv3_managed_hosts"]; got != "esx-01a,esx-02a" {
		t.Errorf("nsxv3_managed_hosts = %q, want joined list", got)
	}
}

func TestAgentConfig(t *testing.T) {
	doc, err := AgentConfig()
	if err != nil {
		t.Fatalf("AgentConfig() error: %v", err)
	}

	if v, ok := doc.Get("AGENT", "report_interval"); !ok || v != "30" {
		t.Errorf("report_interval = %q, %v", v, ok)
	}

	raw, _ := LoadFixture("ml2_conf.ini")
	if doc.String() != string(raw) {
		t.Error("fixture should round-trip unchanged")
	}
}

func TestLoadFixtureMissing(t *testing.T) {
	if _, err := LoadFixture("nonexistent.toml"); err == nil {
		t.Error("LoadFixture should fail for a missing fixture")
	}
}
