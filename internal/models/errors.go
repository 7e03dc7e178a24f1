package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable orchestration failures. Callers match
// them with errors.Is and retry after adjusting input or ordering.
var (
	ErrUnknownScale       = errors.New("unknown business scale")
	ErrAlreadyRunning     = errors.New("stage already running")
	ErrPrerequisiteNotMet = errors.New("prerequisite stage not done")
)

// ConfigurationError reports invalid or missing caller input. Recoverable:
// the user adjusts the request and retries.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// InvariantViolation reports that data synthesis produced an inconsistent
// row set. Fatal to that run; the output must be discarded and regenerated,
// never clamped or partially trusted.
type InvariantViolation struct {
	Table  string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Table, e.Detail)
}

// ProcessFailure reports a non-zero exit from an out-of-process unit of
// work, with the captured stderr text. Recoverable by rerun.
type ProcessFailure struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ProcessFailure) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}
