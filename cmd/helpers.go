package cmd

import (
	"fmt"
	"io"

	"github.com/firefly-engineering/agent-deploy/internal/app"
	"github.com/firefly-engineering/agent-deploy/internal/errors"
	"github.com/firefly-engineering/agent-deploy/internal/inventory"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// Output formats of reports.
const (
	outputText = "text"
	outputJSON = "json"
)

// stdout returns the writer reports and documents go to.
func stdout() io.Writer {
	return app.Default.Stdout
}

// checkOutputFormat rejects unknown --output values.
func checkOutputFormat(format string) error {
	switch format {
	case outputText, outputJSON:
		return nil
	default:
		return errors.ValidationError(fmt.Sprintf("invalid output format %q (must be %s or %s)", format, outputText, outputJSON))
	}
}

// loadTargets loads the inventory at path and builds the targets named in
// limit, every target when limit is empty. Failures are inventory errors.
func loadTargets(path string, limit []string) (*inventory.Inventory, []pipeline.Target, error) {
	inv, err := inventory.Load(path)
	if err != nil {
		return nil, nil, errors.InventoryError("failed to load inventory", err)
	}

	hosts, err := inv.Select(limit)
	if err != nil {
		return nil, nil, errors.InventoryError("invalid --limit", err)
	}

	targets, err := app.Default.Targets(inv, hosts)
	if err != nil {
		return nil, nil, errors.InventoryError("failed to resolve targets", err)
	}
	return inv, targets, nil
}

// targetNames returns the names of targets in order.
func targetNames(targets []pipeline.Target) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return names
}
