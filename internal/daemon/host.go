package daemon

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// HostOptions are the arguments of one renderer invocation.
type HostOptions struct {
	ConfigPath string
	Overrides  domain.LaunchOverrides
	InstanceID string // Launch marker, empty when started by the service manager
}

// Host runs the renderer side of the identity contract: record own pid on
// start, release it on every exit path.
type Host struct {
	configs     domain.ConfigStore
	fsManager   domain.FileSystemManager
	identity    domain.IdentityStore
	newRenderer RendererFactory
	logger      *zap.Logger
}

// NewHost creates a renderer host.
func NewHost(
	configs domain.ConfigStore,
	fs domain.FileSystemManager,
	identity domain.IdentityStore,
	newRenderer RendererFactory,
	logger *zap.Logger,
) *Host {
	return &Host{
		configs:     configs,
		fsManager:   fs,
		identity:    identity,
		newRenderer: newRenderer,
		logger:      logger,
	}
}

// Run plays until ctx is canceled (SIGTERM/SIGINT) or the renderer fails.
func (h *Host) Run(ctx context.Context, opts HostOptions) error {
	if err := h.seedConfig(opts); err != nil {
		return err
	}

	cfg, err := h.configs.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	settings := ResolveSettings(cfg, opts.Overrides)
	if settings.VideoPath == "" {
		return domain.NewConfigurationError("No video configured")
	}
	video, err := h.fsManager.ValidateVideo(settings.VideoPath)
	if err != nil {
		return err
	}
	settings.VideoPath = video

	pid := os.Getpid()
	if err := h.identity.Write(pid); err != nil {
		h.logger.Warn("failed to write pid file", zap.Error(err))
	}
	defer func() {
		if err := h.identity.ClearIf(pid); err != nil {
			h.logger.Warn("failed to remove pid file", zap.Error(err))
		}
	}()

	h.logger.Info("renderer host started",
		zap.Int("pid", pid),
		zap.String("instance", opts.InstanceID),
		zap.String("video", settings.VideoPath),
		zap.Float64("speed", settings.Speed),
		zap.Float64("volume", settings.Volume))

	err = h.newRenderer(settings).Run(ctx)
	if ctx.Err() != nil {
		h.logger.Info("renderer host stopping", zap.Int("pid", pid))
		return nil
	}
	if err != nil {
		h.logger.Error("renderer failed", zap.Error(err))
		return fmt.Errorf("renderer failed: %w", err)
	}
	return nil
}

// seedConfig creates a missing config document from defaults and overrides.
// An existing document is left untouched.
func (h *Host) seedConfig(opts HostOptions) error {
	if h.fsManager.Exists(opts.ConfigPath) {
		return nil
	}

	cfg := domain.DefaultConfig()
	o := opts.Overrides
	if o.VideoPath != "" {
		cfg.VideoPath = o.VideoPath
	}
	if o.Speed != nil {
		cfg.PlaybackSpeed = *o.Speed
	}
	if o.Volume != nil {
		cfg.Volume = *o.Volume
	}

	if err := h.configs.Save(opts.ConfigPath, cfg); err != nil {
		return fmt.Errorf("failed to seed config: %w", err)
	}
	h.logger.Info("config created", zap.String("path", opts.ConfigPath))
	return nil
}
