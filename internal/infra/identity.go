package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// FileIdentityStore implements domain.IdentityStore as a plain-text pid file.
type FileIdentityStore struct {
	path string
}

// NewFileIdentityStore creates an identity store at path.
func NewFileIdentityStore(path string) *FileIdentityStore {
	return &FileIdentityStore{path: path}
}

// Path returns the pid file path.
func (s *FileIdentityStore) Path() string {
	return s.path
}

// Write atomically replaces the pid file.
func (s *FileIdentityStore) Write(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	return WriteFileAtomic(s.path, []byte(strconv.Itoa(pid)), 0644)
}

// Read returns the recorded pid. Missing, unreadable and corrupt files all report false.
func (s *FileIdentityStore) Read() (int, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Clear removes the pid file.
func (s *FileIdentityStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ClearIf removes the pid file only while it still names pid.
// A newer instance's record is left untouched.
func (s *FileIdentityStore) ClearIf(pid int) error {
	current, ok := s.Read()
	if !ok || current != pid {
		return nil
	}
	return s.Clear()
}

// Ensure FileIdentityStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*FileIdentityStore)(nil)
