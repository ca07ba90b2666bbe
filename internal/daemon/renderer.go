// Package daemon implements the renderer host: the long-lived process the
// lifecycle controller launches and supervises.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

const (
	// MinPlaybackSpeed is the slowest rate handed to the player.
	MinPlaybackSpeed = 0.1
	// DefaultStopGrace is how long the player gets between SIGTERM and SIGKILL.
	// It must stay below the supervisor's shortest termination wait, or the
	// host is killed before it can kill the player group.
	DefaultStopGrace = 150 * time.Millisecond
)

// RenderSettings are the effective playback parameters.
type RenderSettings struct {
	Player    string
	VideoPath string
	Speed     float64
	Volume    float64 // 0..1
}

// ResolveSettings applies overrides to cfg and clamps speed and volume.
func ResolveSettings(cfg domain.DaemonConfig, o domain.LaunchOverrides) RenderSettings {
	s := RenderSettings{
		Player:    cfg.Player,
		VideoPath: cfg.VideoPath,
		Speed:     cfg.PlaybackSpeed,
		Volume:    cfg.Volume,
	}
	if s.Player == "" {
		s.Player = domain.DefaultPlayer
	}
	if o.VideoPath != "" {
		s.VideoPath = o.VideoPath
	}
	if o.Speed != nil {
		s.Speed = *o.Speed
	}
	if o.Volume != nil {
		s.Volume = *o.Volume
	}

	s.Speed = max(MinPlaybackSpeed, s.Speed)
	s.Volume = max(0, min(s.Volume, 1))
	return s
}

// Renderer plays the video until ctx is canceled.
type Renderer interface {
	Run(ctx context.Context) error
}

// RendererFactory builds a renderer for the resolved settings.
type RendererFactory func(s RenderSettings) Renderer

// PlayerArgs builds mpv-compatible arguments for looping playback.
func PlayerArgs(s RenderSettings) []string {
	return []string{
		"--no-terminal",
		"--loop-file=inf",
		"--speed=" + strconv.FormatFloat(s.Speed, 'g', -1, 64),
		"--volume=" + strconv.Itoa(int(s.Volume*100+0.5)),
		"--",
		s.VideoPath,
	}
}

// PlayerRenderer delegates playback to an external player process running
// in its own process group.
type PlayerRenderer struct {
	settings RenderSettings
	grace    time.Duration
	logger   *zap.Logger
}

// NewPlayerRenderer creates a player-backed renderer.
func NewPlayerRenderer(s RenderSettings, logger *zap.Logger) *PlayerRenderer {
	return &PlayerRenderer{settings: s, grace: DefaultStopGrace, logger: logger}
}

// Run starts the player and stops its whole process group when ctx ends.
// A player that exits on its own is an error.
func (r *PlayerRenderer) Run(ctx context.Context) error {
	cmd := exec.Command(r.settings.Player, PlayerArgs(r.settings)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player %s: %w", r.settings.Player, err)
	}
	pgid := cmd.Process.Pid

	r.logger.Info("player started",
		zap.Int("pid", pgid),
		zap.String("player", r.settings.Player),
		zap.String("video", r.settings.VideoPath))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			err = errors.New("exited with status 0")
		}
		return fmt.Errorf("player exited unexpectedly: %w", err)

	case <-ctx.Done():
	}

	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(r.grace):
		r.logger.Warn("player ignored SIGTERM, killing process group", zap.Int("pgid", pgid))
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
	}

	r.logger.Info("player stopped", zap.Int("pid", pgid))
	return nil
}
