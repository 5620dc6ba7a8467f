package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/agent-deploy/internal/app"
	"github.com/firefly-engineering/agent-deploy/internal/errors"
	"github.com/firefly-engineering/agent-deploy/internal/patch"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the inventory and every target's variables without deploying",
	Long: `Validate loads the inventory, checks that every target's source tree
exists and that every variable the directive list references resolves for
every target. Nothing is run on the targets.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var (
	validateInventory string
	validateLimit     []string
)

func init() {
	validateCmd.Flags().StringVarP(&validateInventory, "inventory", "i", "inventory.toml", "Inventory file")
	validateCmd.Flags().StringSliceVar(&validateLimit, "limit", nil, "Only check these targets (comma-separated)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, targets, err := loadTargets(validateInventory, validateLimit)
	if err != nil {
		return err
	}

	directives := patch.DefaultDirectives()
	fsys := app.Default.FS

	var undefined, invalid []string
	for _, t := range targets {
		if info, err := fsys.Stat(t.SourceDir); err != nil || !info.IsDir() {
			logError("%s: source %s is not a directory", t.Name, t.SourceDir)
			invalid = append(invalid, t.Name)
			continue
		}

		missing, err := patch.Missing(directives, t.Resolver)
		if err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
		if len(missing) > 0 {
			logError("%s: undefined variables: %s", t.Name, strings.Join(missing, ", "))
			undefined = append(undefined, t.Name)
			continue
		}
		logSuccess("%s: %s, all %d variables defined", t.Name, t.Conn, len(patch.Variables(directives)))
	}

	if len(invalid) > 0 {
		return errors.InventoryError("invalid targets", fmt.Errorf("%s", strings.Join(invalid, ", ")))
	}
	if len(undefined) > 0 {
		return errors.UndefinedVariable(fmt.Errorf("targets %s", strings.Join(undefined, ", ")))
	}
	return nil
}
