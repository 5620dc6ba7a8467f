// Package app provides the application context for agent-deploy.
// It allows dependency injection for testing.
package app

import (
	"io"
	"os"

	"github.com/firefly-engineering/agent-deploy/internal/inventory"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
	"github.com/firefly-engineering/agent-deploy/internal/system"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

// App holds the application dependencies
type App struct {
	// Executor runs ssh, rsync and local commands
	Executor system.CommandExecutor

	// FS is the control host's file system, used by local targets
	FS system.FileSystem

	// Env resolves variables from the environment
	Env vars.Resolver

	// Stdout receives reports and patched documents
	Stdout io.Writer

	// Stderr receives the progress view
	Stderr io.Writer
}

// Option is a function that configures the App
type Option func(*App)

// WithExecutor sets a custom command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = exec
	}
}

// WithFS sets a custom file system
func WithFS(fsys system.FileSystem) Option {
	return func(a *App) {
		a.FS = fsys
	}
}

// WithEnv sets the environment variable resolver
func WithEnv(env vars.Resolver) Option {
	return func(a *App) {
		a.Env = env
	}
}

// WithOutput sets the output writers
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.Stdout = stdout
		a.Stderr = stderr
	}
}

// New creates a new App with the given options.
// Unset dependencies default to the real operating system.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.Executor == nil {
		app.Executor = system.DefaultExecutor()
	}
	if app.FS == nil {
		app.FS = system.DefaultFS()
	}
	if app.Env == nil {
		app.Env = vars.FromEnv(vars.DefaultEnvPrefix)
	}
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}

	return app
}

// Targets loads the variable sources of inv and builds a pipeline target
// for each host.
func (a *App) Targets(inv *inventory.Inventory, hosts []inventory.Host) ([]pipeline.Target, error) {
	sources, err := inv.LoadSources(a.Env)
	if err != nil {
		return nil, err
	}
	return inv.BuildTargets(hosts, inventory.BuildOptions{
		Executor: a.Executor,
		FS:       a.FS,
		Sources:  sources,
	})
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
