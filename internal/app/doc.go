// Package app provides the application context for agent-deploy.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Executor system.CommandExecutor // ssh, rsync, local commands
//	    FS       system.FileSystem      // control host file system
//	    Env      vars.Resolver          // AGENT_DEPLOY_VAR_* environment
//	    Stdout   io.Writer              // reports
//	    Stderr   io.Writer              // progress view
//	}
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New()
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithExecutor(system.NewMockExecutor()),
//	    app.WithFS(system.NewMockFS()),
//	    app.WithEnv(vars.Map{}),
//	)
//
// # Available Options
//
//	WithExecutor(exec)          // Custom command executor
//	WithFS(fs)                  // Custom file system
//	WithEnv(resolver)           // Custom environment resolver
//	WithOutput(stdout, stderr)  // Custom output writers
package app
