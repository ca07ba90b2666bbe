package infra

import (
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/auraflow/internal/domain"
	"github.com/eliteGoblin/auraflow/test/fixtures"
)

// mockCommandRunner records invocations and returns canned results keyed by
// the first argument (e.g. "load", "unload", "enable").
type mockCommandRunner struct {
	calls   []string
	outputs map[string][]byte
	errors  map[string]error
}

func newMockCommandRunner() *mockCommandRunner {
	return &mockCommandRunner{
		outputs: make(map[string][]byte),
		errors:  make(map[string]error),
	}
}

func (m *mockCommandRunner) CombinedOutput(name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, strings.Join(append([]string{name}, args...), " "))
	key := ""
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			key = a
			break
		}
	}
	return m.outputs[key], m.errors[key]
}

// startFakeRenderer runs the fake renderer script directly and registers cleanup.
func startFakeRenderer(t *testing.T, dir string, stubborn bool) (*exec.Cmd, RendererCommand) {
	t.Helper()

	fake, err := fixtures.NewFakeRenderer(dir, dir+"/daemon.pid", stubborn)
	require.NoError(t, err)

	rc := RendererCommand{Program: fixtures.Shell, Args: fake.Args()}
	argv := rc.Argv(dir+"/config.json", domain.LaunchOverrides{}, "")
	cmd := exec.Command(argv[0], argv[1:]...)
	require.NoError(t, cmd.Start())

	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return cmd, rc
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 20*time.Millisecond)
}
