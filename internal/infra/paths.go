// Package infra implements infrastructure concerns (process, filesystem, identity, service manager).
package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppID is the service-manager label and descriptor file stem.
const AppID = "com.example.videowallpaper"

// Environment overrides.
const (
	EnvHome     = "AURAFLOW_HOME"     // Overrides the support directory
	EnvRenderer = "AURAFLOW_RENDERER" // Overrides the renderer entry point program
)

// Backend names the host service manager used for autostart.
type Backend string

const (
	// BackendLaunchd registers a LaunchAgent plist (macOS)
	BackendLaunchd Backend = "launchd"
	// BackendSystemd registers a systemd user unit (Linux and others)
	BackendSystemd Backend = "systemd"
)

// Paths holds every well-known file location.
type Paths struct {
	SupportDir     string // Directory holding config, identity, log and lock
	ConfigPath     string
	PIDPath        string
	LogPath        string
	LockPath       string
	Backend        Backend
	DescriptorDir  string // Where the autostart descriptor goes
	DescriptorPath string // Full path to the autostart descriptor
}

// DetectPaths resolves paths for the current user and host OS.
func DetectPaths() *Paths {
	home, _ := os.UserHomeDir()
	return NewPathsWithHome(home, runtime.GOOS)
}

// NewPathsWithHome resolves paths relative to home for goos (for testing).
func NewPathsWithHome(home, goos string) *Paths {
	p := &Paths{}

	if goos == "darwin" {
		p.SupportDir = filepath.Join(home, "Library", "Application Support", "AuraFlow")
		p.Backend = BackendLaunchd
		p.DescriptorDir = filepath.Join(home, "Library", "LaunchAgents")
		p.DescriptorPath = filepath.Join(p.DescriptorDir, AppID+".plist")
	} else {
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		p.SupportDir = filepath.Join(configHome, "auraflow")
		p.Backend = BackendSystemd
		p.DescriptorDir = filepath.Join(configHome, "systemd", "user")
		p.DescriptorPath = filepath.Join(p.DescriptorDir, AppID+".service")
	}

	if dir := os.Getenv(EnvHome); dir != "" {
		p.SupportDir = dir
	}

	p.ConfigPath = filepath.Join(p.SupportDir, "config.json")
	p.PIDPath = filepath.Join(p.SupportDir, "daemon.pid")
	p.LogPath = filepath.Join(p.SupportDir, "daemon.log")
	p.LockPath = filepath.Join(p.SupportDir, "daemon.lock")
	return p
}

// EnsureSupportDir creates the support directory if missing.
func (p *Paths) EnsureSupportDir() error {
	return os.MkdirAll(p.SupportDir, 0755)
}

// String returns a human-readable description of the backend.
func (b Backend) String() string {
	switch b {
	case BackendLaunchd:
		return "launchd (LaunchAgent)"
	case BackendSystemd:
		return "systemd (user unit)"
	default:
		return "unknown"
	}
}
