package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// OrphanTerminateTimeout bounds the wait for each stray renderer.
const OrphanTerminateTimeout = 500 * time.Millisecond

// Reaper implements domain.OrphanReaper.
type Reaper struct {
	processManager domain.ProcessManager
	identity       domain.IdentityStore
	terminator     domain.Terminator
	logger         *zap.Logger
}

// NewReaper creates an orphan reaper.
func NewReaper(
	pm domain.ProcessManager,
	identity domain.IdentityStore,
	terminator domain.Terminator,
	logger *zap.Logger,
) *Reaper {
	return &Reaper{
		processManager: pm,
		identity:       identity,
		terminator:     terminator,
		logger:         logger,
	}
}

// Reconcile terminates every renderer except the keep set, the recorded
// identity and the calling process. Failures are logged, never returned.
func (r *Reaper) Reconcile(keep ...int) {
	keepSet := make(map[int]struct{}, len(keep)+2)
	for _, pid := range keep {
		keepSet[pid] = struct{}{}
	}
	if pid, ok := r.identity.Read(); ok {
		keepSet[pid] = struct{}{}
	}
	keepSet[r.processManager.GetCurrentPID()] = struct{}{}

	pids, err := r.processManager.FindRenderers()
	if err != nil {
		r.logger.Warn("failed to enumerate renderer processes", zap.Error(err))
		return
	}

	for _, pid := range pids {
		if _, ok := keepSet[pid]; ok {
			continue
		}

		// Read before signalling; the command line is gone once it exits
		instance := r.processManager.InstanceID(pid)

		outcome := r.terminator.Terminate(pid, OrphanTerminateTimeout)
		switch outcome {
		case domain.TerminationFailed:
			r.logger.Warn("failed to terminate orphan renderer",
				zap.Int("pid", pid),
				zap.String("instance", instance))
		default:
			r.logger.Info("orphan renderer reaped",
				zap.Int("pid", pid),
				zap.String("instance", instance),
				zap.String("outcome", string(outcome)))
		}
	}
}

// Ensure Reaper implements domain.OrphanReaper.
var _ domain.OrphanReaper = (*Reaper)(nil)
