// Package testutil provides test utilities for integration tests
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firefly-engineering/agent-deploy/internal/app"
	"github.com/firefly-engineering/agent-deploy/internal/system"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

// TestEnv holds the test environment
type TestEnv struct {
	T         *testing.T
	TmpDir    string
	SourceDir string
	Executor  *system.MockExecutor
	FS        *system.MockFS
	Env       vars.Map
	Stdout    *bytes.Buffer
	Stderr    *bytes.Buffer
	App       *app.App
	cleanup   func()
}

// NewTestEnv creates a new test environment with a mock executor and file
// system, and installs its App as the default.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	sourceDir := filepath.Join(tmpDir, "src", "networking-nsxv3")
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		t.Fatalf("Failed to create source directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "setup.py"), []byte("from setuptools import setup\nsetup()\n"), 0644); err != nil {
		t.Fatalf("Failed to write setup.py: %v", err)
	}

	executor := system.NewMockExecutor()
	fsys := system.NewMockFS()
	fsys.AddDir(sourceDir)
	env := vars.Map{}
	var stdout, stderr bytes.Buffer

	testApp := app.New(
		app.WithExecutor(executor),
		app.WithFS(fsys),
		app.WithEnv(env),
		app.WithOutput(&stdout, &stderr),
	)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(testApp)

	e := &TestEnv{
		T:         t,
		TmpDir:    tmpDir,
		SourceDir: sourceDir,
		Executor:  executor,
		FS:        fsys,
		Env:       env,
		Stdout:    &stdout,
		Stderr:    &stderr,
		App:       testApp,
		cleanup: func() {
			app.SetDefault(originalDefault)
		},
	}
	t.Cleanup(e.Cleanup)

	return e
}

// Cleanup restores the original app default
func (e *TestEnv) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// WriteFile writes content to a file relative to the test directory and
// returns its path.
func (e *TestEnv) WriteFile(name, content string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.T.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// WriteInventory writes an inventory file and returns its path.
func (e *TestEnv) WriteInventory(content string) string {
	e.T.Helper()
	return e.WriteFile("inventory.toml", content)
}

// CopyFixture copies an embedded fixture into the test directory and returns
// its path.
func (e *TestEnv) CopyFixture(name string) string {
	e.T.Helper()

	data, err := LoadFixture(name)
	if err != nil {
		e.T.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	return e.WriteFile(name, string(data))
}

// FixtureProject lays out the inventory fixture with its vars file, env
// file and source tree, and returns the inventory path.
func (e *TestEnv) FixtureProject() string {
	e.T.Helper()

	e.CopyFixture("vars.yaml")
	e.CopyFixture("agent.env")
	return e.CopyFixture("inventory.toml")
}

// FailOn makes every command whose line contains substr fail with exit
// code 1 and the given output. Other commands keep their previous behavior.
// Call it before the commands run.
func (e *TestEnv) FailOn(substr, output string) {
	prev := e.Executor.Handler
	e.Executor.Handler = func(cmd system.MockCommand) system.MockResponse {
		if strings.Contains(cmd.Line(), substr) {
			return system.MockResponse{
				Output: []byte(output),
				Err:    &system.CommandError{Command: cmd.Name, ExitCode: 1},
			}
		}
		if prev != nil {
			return prev(cmd)
		}
		return system.MockResponse{}
	}
}

// FullVars returns a variable map that defines every variable the default
// directives reference.
func FullVars() vars.Map {
	m, err := Vars()
	if err != nil {
		panic("testutil: vars fixture: " + err.Error())
	}
	return m
}
