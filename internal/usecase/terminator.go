// Package usecase contains application business logic.
package usecase

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

const (
	// DefaultPollInterval is how often liveness is re-probed while waiting.
	DefaultPollInterval = 50 * time.Millisecond
	// MinTerminateTimeout floors every termination wait.
	MinTerminateTimeout = 200 * time.Millisecond
)

// TerminationSequencer implements domain.Terminator: SIGTERM, bounded wait, SIGKILL.
type TerminationSequencer struct {
	processManager domain.ProcessManager
	interval       time.Duration
	logger         *zap.Logger
}

// NewTerminationSequencer creates a sequencer polling at DefaultPollInterval.
func NewTerminationSequencer(pm domain.ProcessManager, logger *zap.Logger) *TerminationSequencer {
	return &TerminationSequencer{
		processManager: pm,
		interval:       DefaultPollInterval,
		logger:         logger,
	}
}

// Terminate asks pid to exit and force-kills it once timeout elapses.
// It does not wait after SIGKILL.
func (s *TerminationSequencer) Terminate(pid int, timeout time.Duration) domain.TerminationOutcome {
	if !s.processManager.IsAlive(pid) {
		return domain.TerminationNotRunning
	}

	if err := s.processManager.Terminate(pid); err != nil {
		if errors.Is(err, domain.ErrProcessNotFound) {
			return domain.TerminationNotRunning
		}
		s.logger.Warn("failed to send SIGTERM", zap.Int("pid", pid), zap.Error(err))
		return domain.TerminationFailed
	}

	if timeout < MinTerminateTimeout {
		timeout = MinTerminateTimeout
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !s.processManager.IsAlive(pid) {
			return domain.TerminationGraceful
		}
		time.Sleep(s.interval)
	}

	if !s.processManager.IsAlive(pid) {
		return domain.TerminationGraceful
	}

	s.logger.Warn("process ignored SIGTERM, sending SIGKILL",
		zap.Int("pid", pid),
		zap.Duration("timeout", timeout))

	if err := s.processManager.Kill(pid); err != nil {
		if errors.Is(err, domain.ErrProcessNotFound) {
			return domain.TerminationGraceful
		}
		s.logger.Warn("failed to send SIGKILL", zap.Int("pid", pid), zap.Error(err))
		return domain.TerminationFailed
	}
	return domain.TerminationForced
}

// Ensure TerminationSequencer implements domain.Terminator.
var _ domain.Terminator = (*TerminationSequencer)(nil)
