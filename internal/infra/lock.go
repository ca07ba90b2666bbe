package infra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

const lockRetryDelay = 25 * time.Millisecond

// FileLock implements domain.Locker with an advisory lock on a dedicated file.
type FileLock struct {
	path string
}

// NewFileLock creates a locker backed by path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire takes the exclusive lock, retrying until timeout elapses.
func (l *FileLock) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(l.path)
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.LockTimeoutError{Path: l.path, Timeout: timeout}
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, &domain.LockTimeoutError{Path: l.path, Timeout: timeout}
	}

	return func() { _ = lock.Unlock() }, nil
}

// Ensure FileLock implements domain.Locker.
var _ domain.Locker = (*FileLock)(nil)
