package errors

import (
	"errors"
	"fmt"
)

// Exit codes for agent-deploy
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitInventoryError    = 2
	ExitDeployFailed      = 3
	ExitMalformedDocument = 4
	ExitUndefinedVariable = 5
)

// AgentError is the base error type for agent-deploy
type AgentError struct {
	Code    int
	Message string
	Cause   error
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AgentError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *AgentError) ExitCode() int {
	return e.Code
}

// New creates a new AgentError
func New(code int, message string) *AgentError {
	return &AgentError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AgentError
func Wrap(code int, message string, cause error) *AgentError {
	return &AgentError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// InventoryError returns an error for an unreadable or invalid inventory
func InventoryError(message string, cause error) *AgentError {
	return Wrap(ExitInventoryError, message, cause)
}

// DeployFailed returns an error for a run in which some targets failed
func DeployFailed(failed, total int) *AgentError {
	return New(ExitDeployFailed, fmt.Sprintf("%d of %d targets failed", failed, total))
}

// MalformedDocument returns an error for a configuration file that cannot be parsed
func MalformedDocument(path string, cause error) *AgentError {
	return Wrap(ExitMalformedDocument, fmt.Sprintf("malformed configuration %s", path), cause)
}

// UndefinedVariable returns an error for template variables without a value
func UndefinedVariable(cause error) *AgentError {
	return Wrap(ExitUndefinedVariable, "unresolved template variables", cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *AgentError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
