package infra

import (
	"os"
	"strconv"
	"strings"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// RunCommand is the literal last argument of every renderer invocation.
const RunCommand = "run"

// RendererCommand describes the renderer entry point: a program plus any
// fixed leading arguments (e.g. an interpreter and a script).
type RendererCommand struct {
	Program string
	Args    []string
}

// DefaultRendererCommand returns the entry point from AURAFLOW_RENDERER,
// falling back to the current executable.
func DefaultRendererCommand() RendererCommand {
	if fields := strings.Fields(os.Getenv(EnvRenderer)); len(fields) > 0 {
		return RendererCommand{Program: fields[0], Args: fields[1:]}
	}

	executable, err := os.Executable()
	if err != nil {
		executable = os.Args[0]
	}
	return RendererCommand{Program: executable}
}

// Prefix returns the program followed by its fixed arguments.
func (c RendererCommand) Prefix() []string {
	prefix := make([]string, 0, len(c.Args)+1)
	prefix = append(prefix, c.Program)
	return append(prefix, c.Args...)
}

// Argv builds the full renderer invocation. instanceID is omitted when empty.
func (c RendererCommand) Argv(configPath string, o domain.LaunchOverrides, instanceID string) []string {
	argv := append(c.Prefix(), "--config", configPath)
	if o.VideoPath != "" {
		argv = append(argv, "--video", o.VideoPath)
	}
	if o.Speed != nil {
		argv = append(argv, "--speed", formatFloat(*o.Speed))
	}
	if o.Volume != nil {
		argv = append(argv, "--volume", formatFloat(*o.Volume))
	}
	if instanceID != "" {
		argv = append(argv, "--instance", instanceID)
	}
	return append(argv, RunCommand)
}

// Matches reports whether cmdline is a renderer invocation: it starts with
// the entry point prefix and ends with the run command.
func (c RendererCommand) Matches(cmdline []string) bool {
	prefix := c.Prefix()
	if len(cmdline) <= len(prefix) {
		return false
	}
	for i, arg := range prefix {
		if cmdline[i] != arg {
			return false
		}
	}
	return cmdline[len(cmdline)-1] == RunCommand
}

// InstanceOf returns the --instance marker from cmdline, if any.
func InstanceOf(cmdline []string) string {
	for i := 0; i < len(cmdline)-1; i++ {
		if cmdline[i] == "--instance" {
			return cmdline[i+1]
		}
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
