package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrProcessNotFound is returned when a signal targets a process that no longer exists.
var ErrProcessNotFound = errors.New("process not found")

// ConfigurationError reports a missing/invalid video path or a malformed
// config document. It is fatal to the requested operation and never retried.
type ConfigurationError struct {
	Message string
	Err     error
}

// NewConfigurationError formats a ConfigurationError without a cause.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProcessSpawnError reports that the renderer subprocess could not be created.
type ProcessSpawnError struct {
	Program string
	Err     error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to launch renderer %s: %v", e.Program, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error { return e.Err }

// ServiceManagerError reports a failed service-manager command.
type ServiceManagerError struct {
	Op         string // "load" or "unload"
	Descriptor string
	Err        error
}

func (e *ServiceManagerError) Error() string {
	return fmt.Sprintf("service manager %s %s: %v", e.Op, e.Descriptor, e.Err)
}

func (e *ServiceManagerError) Unwrap() error { return e.Err }

// LockTimeoutError is returned when another control invocation holds the
// lifecycle lock for longer than the bounded wait.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("another control operation holds %s (waited %s)", e.Path, e.Timeout)
}
