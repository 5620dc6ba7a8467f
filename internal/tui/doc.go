// Package tui provides terminal user interface components for agent-deploy.
//
// This package uses the Bubble Tea framework to show the live progress of a
// deployment: one row per target with its current stage and state.
//
// # Progress View
//
// Pipeline events reach the model as messages through an Observer attached
// to the running program:
//
//	rep, err := tui.RunProgress(ctx, os.Stderr, names, func(ctx context.Context, obs pipeline.Observer) (*fleet.Report, error) {
//	    orch.Pipeline.Observer = pipeline.Observers{obs, other}
//	    return orch.Run(ctx, targets, directives)
//	})
//
// # Progress Features
//
//   - Rows in inventory order with a spinner on targets still running
//   - Color-coded states: launched, failed(stage), pending
//   - Ctrl+C cancels the deployment; remaining targets stop before their next stage
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
