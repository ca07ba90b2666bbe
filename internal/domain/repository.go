package domain

import (
	"context"
	"time"
)

// IdentityStore persists the pid of the daemon the supervisor believes it owns.
// Implementation: plain-text pid file replaced atomically.
type IdentityStore interface {
	// Write replaces the record with pid.
	Write(pid int) error

	// Read returns the recorded pid. Absent or corrupt records report false.
	Read() (int, bool)

	// Clear removes the record. Succeeds if already absent.
	Clear() error

	// ClearIf removes the record only while it still names pid.
	ClearIf(pid int) error

	// Path returns the identity file path.
	Path() string
}

// ProcessManager handles OS process operations.
// Implementation: x/sys/unix signals plus gopsutil process table.
type ProcessManager interface {
	// IsAlive probes pid with signal 0. Zombies and EPERM are not alive.
	IsAlive(pid int) bool

	// IsRenderer reports whether pid's command line is a renderer invocation.
	IsRenderer(pid int) bool

	// FindRenderers returns pids of all renderer processes in the process table.
	FindRenderers() ([]int, error)

	// InstanceID returns the --instance marker of pid's command line, or "".
	InstanceID(pid int) string

	// Terminate sends SIGTERM. Returns ErrProcessNotFound if pid is gone.
	Terminate(pid int) error

	// Kill sends SIGKILL. Returns ErrProcessNotFound if pid is gone.
	Kill(pid int) error

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// ProcessLauncher spawns the renderer as a detached subprocess.
type ProcessLauncher interface {
	// Launch returns the provisional pid of the new renderer.
	Launch(configPath string, overrides LaunchOverrides) (int, error)
}

// Terminator stops a process via escalating signals with a bounded wait.
type Terminator interface {
	Terminate(pid int, timeout time.Duration) TerminationOutcome
}

// OrphanReaper terminates renderer processes that are not the recorded identity.
type OrphanReaper interface {
	// Reconcile keeps the given pids and the recorded identity; everything
	// else matching the renderer is terminated. Never fails.
	Reconcile(keep ...int)
}

// ConfigStore reads and writes the JSON config document.
type ConfigStore interface {
	// Load returns the config at path, creating it with defaults if missing.
	Load(path string) (DaemonConfig, error)

	// Save atomically replaces the config at path, preserving unknown keys.
	Save(path string, cfg DaemonConfig) error

	// Update loads, applies fn and saves.
	Update(path string, fn func(*DaemonConfig)) (DaemonConfig, error)

	// Fingerprint hashes the raw config bytes; empty if unreadable.
	Fingerprint(path string) string
}

// FileSystemManager handles filesystem operations.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string

	// ValidateVideo resolves path and requires an existing regular file.
	ValidateVideo(path string) (string, error)
}

// Locker serialises lifecycle decisions across control invocations.
type Locker interface {
	// Acquire blocks up to timeout; release must be called on every exit path.
	Acquire(ctx context.Context, timeout time.Duration) (release func(), err error)
}

// DescriptorStore persists the autostart descriptor file.
type DescriptorStore interface {
	// Write renders desc and atomically replaces the descriptor file.
	Write(desc AutostartDescriptor) error

	// Remove deletes the descriptor file. Succeeds if already absent.
	Remove() error

	// Exists checks if the descriptor file is present.
	Exists() bool

	// Path returns the descriptor file path.
	Path() string
}

// ServiceManager is the host service manager (launchd, systemd --user).
type ServiceManager interface {
	// Name returns the backend name (e.g. "launchd").
	Name() string

	// Load registers and enables the descriptor.
	Load(descriptorPath string) error

	// Unload deregisters the descriptor.
	Unload(descriptorPath string) error
}

// AutostartRegistrar toggles automatic launch at login.
type AutostartRegistrar interface {
	Enable(configPath string) error
	Disable() error
	IsEnabled() bool
}
