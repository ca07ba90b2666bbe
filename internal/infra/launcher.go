package infra

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// DetachedLauncher implements domain.ProcessLauncher. The renderer is spawned
// in a new session with stdout/stderr appended to the shared log file.
type DetachedLauncher struct {
	renderer RendererCommand
	logPath  string
	logger   *zap.Logger
}

// NewDetachedLauncher creates a launcher for the given entry point.
func NewDetachedLauncher(renderer RendererCommand, logPath string, logger *zap.Logger) *DetachedLauncher {
	return &DetachedLauncher{
		renderer: renderer,
		logPath:  logPath,
		logger:   logger,
	}
}

// Launch spawns the renderer and returns its pid without waiting for readiness.
func (l *DetachedLauncher) Launch(configPath string, o domain.LaunchOverrides) (int, error) {
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return 0, &domain.ProcessSpawnError{Program: l.renderer.Program, Err: err}
	}

	logFile, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, &domain.ProcessSpawnError{
			Program: l.renderer.Program,
			Err:     fmt.Errorf("failed to open log file: %w", err),
		}
	}
	// The child holds its own descriptor after Start
	defer logFile.Close()

	instanceID := uuid.NewString()
	argv := l.renderer.Argv(configPath, o, instanceID)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	if err := cmd.Start(); err != nil {
		return 0, &domain.ProcessSpawnError{Program: l.renderer.Program, Err: err}
	}

	pid := cmd.Process.Pid
	l.logger.Info("renderer launched",
		zap.Int("pid", pid),
		zap.String("instance", instanceID),
		zap.String("config", configPath))

	// Reap in the background so a terminated child never lingers as a zombie
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// Ensure DetachedLauncher implements domain.ProcessLauncher.
var _ domain.ProcessLauncher = (*DetachedLauncher)(nil)
