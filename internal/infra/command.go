package infra

import "os/exec"

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	// CombinedOutput runs the command and returns stdout and stderr together
	CombinedOutput(name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// CombinedOutput executes a command and waits for it to complete
func (r *RealCommandRunner) CombinedOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}
