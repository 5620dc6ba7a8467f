// Package errors provides typed errors with exit codes for agent-deploy.
//
// # Error Types
//
// AgentError is the base error type that wraps an error with an exit code:
//
//	type AgentError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess           = 0  // Success
//	ExitGeneralError      = 1  // General/unknown errors
//	ExitInventoryError    = 2  // Inventory missing or invalid
//	ExitDeployFailed      = 3  // At least one target failed
//	ExitMalformedDocument = 4  // Configuration file could not be parsed
//	ExitUndefinedVariable = 5  // A directive references an unset variable
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
