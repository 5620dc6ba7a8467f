// Package logging provides logging utilities for agent-deploy.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("stage started", "target", name, "stage", stage)
//	logging.ForTarget(name).Warn("rsync retry", "attempt", n)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Deploying to %d targets...", n)
//	logging.UserSuccess("Target %s launched", name)
//	logging.UserWarning("Target %s has no vars", name)
//	logging.UserError("Deployment failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: Stdout (os.Stdout unless redirected)
//   - UserWarning, UserError: Stderr (os.Stderr unless redirected)
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
