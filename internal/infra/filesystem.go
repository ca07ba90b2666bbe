package infra

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// FileSystemManagerImpl implements domain.FileSystemManager.
type FileSystemManagerImpl struct {
	homeDir string
}

// NewFileSystemManager creates a new filesystem manager.
func NewFileSystemManager() *FileSystemManagerImpl {
	home, _ := os.UserHomeDir()
	return &FileSystemManagerImpl{homeDir: home}
}

// NewFileSystemManagerWithHome creates a filesystem manager with custom home (for testing).
func NewFileSystemManagerWithHome(home string) *FileSystemManagerImpl {
	return &FileSystemManagerImpl{homeDir: home}
}

// Exists checks if a path exists.
func (fm *FileSystemManagerImpl) Exists(path string) bool {
	expanded := fm.ExpandHome(path)
	_, err := os.Stat(expanded)
	return err == nil
}

// ExpandHome expands ~ to the user's home directory.
func (fm *FileSystemManagerImpl) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(fm.homeDir, path[2:])
	}
	if path == "~" {
		return fm.homeDir
	}
	return path
}

// ValidateVideo expands and absolutises path and requires a regular file.
func (fm *FileSystemManagerImpl) ValidateVideo(path string) (string, error) {
	resolved := fm.ExpandHome(path)
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", domain.NewConfigurationError("Video file not found: %s", resolved)
	}
	if !info.Mode().IsRegular() {
		return "", domain.NewConfigurationError("Expected a file, got: %s", resolved)
	}
	return resolved, nil
}

// Ensure FileSystemManagerImpl implements domain.FileSystemManager.
var _ domain.FileSystemManager = (*FileSystemManagerImpl)(nil)
