package infra

import (
	"errors"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using x/sys/unix signals
// and the gopsutil process table.
type ProcessManagerImpl struct {
	renderer RendererCommand
}

// NewProcessManager creates a process manager that recognises renderer
// invocations of the given entry point.
func NewProcessManager(renderer RendererCommand) *ProcessManagerImpl {
	return &ProcessManagerImpl{renderer: renderer}
}

// IsAlive probes pid with signal 0. A zombie counts as dead: it has exited
// and only waits for its parent to reap it.
func (pm *ProcessManagerImpl) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// ESRCH and EPERM both mean "not ours to supervise"
	if err := unix.Kill(pid, 0); err != nil {
		return false
	}

	return !isZombie(pid)
}

// IsRenderer reports whether pid's command line is a renderer invocation.
func (pm *ProcessManagerImpl) IsRenderer(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	cmdline, err := p.CmdlineSlice()
	if err != nil {
		return false
	}
	return pm.renderer.Matches(cmdline)
}

// InstanceID returns the launch marker of pid, empty for unmarked launches.
func (pm *ProcessManagerImpl) InstanceID(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	cmdline, err := p.CmdlineSlice()
	if err != nil {
		return ""
	}
	return InstanceOf(cmdline)
}

// FindRenderers returns pids of live renderer processes, excluding the caller.
func (pm *ProcessManagerImpl) FindRenderers() ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	self := os.Getpid()
	var found []int
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == self {
			continue
		}

		cmdline, err := p.CmdlineSlice()
		if err != nil {
			continue // Process may have exited
		}
		if !pm.renderer.Matches(cmdline) {
			continue
		}
		if isZombie(pid) {
			continue
		}
		found = append(found, pid)
	}

	return found, nil
}

// Terminate sends SIGTERM.
func (pm *ProcessManagerImpl) Terminate(pid int) error {
	return sendSignal(pid, unix.SIGTERM)
}

// Kill sends SIGKILL.
func (pm *ProcessManagerImpl) Kill(pid int) error {
	return sendSignal(pid, unix.SIGKILL)
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

func sendSignal(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return domain.ErrProcessNotFound
	}
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return domain.ErrProcessNotFound
		}
		return err
	}
	return nil
}

// isZombie reports whether pid has exited but not been reaped.
// Lookup errors report false; the signal probe already decided liveness.
func isZombie(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == process.Zombie {
			return true
		}
	}
	return false
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
