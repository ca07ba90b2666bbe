// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Config document defaults, applied to any key missing from the file.
const (
	DefaultPlaybackSpeed = 1.0
	DefaultVolume        = 0.0
	DefaultPlayer        = "mpv"
)

// DaemonConfig is the persisted settings document shared by the control
// surface and the renderer.
type DaemonConfig struct {
	VideoPath     string  `json:"video_path"`
	PlaybackSpeed float64 `json:"playback_speed"`
	Volume        float64 `json:"volume"`
	Autostart     bool    `json:"autostart"`
	Player        string  `json:"player,omitempty"` // External playback program used by the renderer
}

// DefaultConfig returns the document written when no config file exists yet.
func DefaultConfig() DaemonConfig {
	return DaemonConfig{
		VideoPath:     "",
		PlaybackSpeed: DefaultPlaybackSpeed,
		Volume:        DefaultVolume,
		Autostart:     false,
	}
}

// LaunchOverrides carries per-launch values that take precedence over the
// config document. Empty/nil fields are not passed to the renderer.
type LaunchOverrides struct {
	VideoPath string
	Speed     *float64
	Volume    *float64
}

// Float returns a pointer to v, for building LaunchOverrides.
func Float(v float64) *float64 {
	return &v
}

// LaunchSignature identifies an equivalent start request. It is comparable
// with == and is never persisted.
type LaunchSignature struct {
	ConfigPath string
	VideoPath  string
	HasSpeed   bool
	Speed      float64
	HasVolume  bool
	Volume     float64
	ConfigHash string // Empty when the config file could not be read
}

// NewLaunchSignature builds the signature for a start request.
func NewLaunchSignature(configPath string, o LaunchOverrides, configHash string) LaunchSignature {
	sig := LaunchSignature{
		ConfigPath: configPath,
		VideoPath:  o.VideoPath,
		ConfigHash: configHash,
	}
	if o.Speed != nil {
		sig.HasSpeed = true
		sig.Speed = *o.Speed
	}
	if o.Volume != nil {
		sig.HasVolume = true
		sig.Volume = *o.Volume
	}
	return sig
}

// AutostartDescriptor is the host-service registration record.
type AutostartDescriptor struct {
	Label             string
	ProgramArguments  []string
	RunAtLoad         bool
	KeepAlive         bool
	StandardOutPath   string
	StandardErrorPath string
}

// Status is the snapshot printed after every control command.
type Status struct {
	Running   bool         `json:"running"`
	Config    DaemonConfig `json:"config"`
	PID       *int         `json:"pid"`
	Autostart bool         `json:"autostart"`
}

// TerminationOutcome reports how a termination sequence ended.
type TerminationOutcome string

const (
	TerminationNotRunning TerminationOutcome = "not_running" // Process was already gone
	TerminationGraceful   TerminationOutcome = "terminated"  // Exited after SIGTERM
	TerminationForced     TerminationOutcome = "killed"      // SIGKILL sent after timeout
	TerminationFailed     TerminationOutcome = "failed"      // Signal could not be delivered
)

// StartRequest describes a lifecycle start/restart call.
type StartRequest struct {
	ConfigPath string
	Overrides  LaunchOverrides
	Wait       time.Duration // Await-ready budget after launch
}
