package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/agent-deploy/internal/app"
	"github.com/firefly-engineering/agent-deploy/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "agent-deploy",
	Short: "Deploy the NSX-T neutron agent to a fleet of hosts",
	Long: `agent-deploy installs, configures and starts the networking-nsxv3
neutron agent on every host of an inventory.

Each target goes through four stages, stopping at the first failure:
  - sync:      rsync the agent source tree to the host
  - install:   run the install command in the synced tree
  - configure: patch the agent's INI configuration from variables
  - launch:    (re)start the agent in screen or as a systemd unit`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, app.Default.Stderr)
		logging.SetOutput(app.Default.Stdout, app.Default.Stderr)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context, so running targets stop before their next stage.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
