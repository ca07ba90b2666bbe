package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// NoVideoMessage is reported when neither the config nor the request names a video.
const NoVideoMessage = "No video configured. Use 'set-video' first or pass --video."

// ControllerConfig holds lifecycle timing.
type ControllerConfig struct {
	RestartStopTimeout time.Duration // Stop budget used by Restart
	LockTimeout        time.Duration // Bounded wait for the lifecycle lock
	PollInterval       time.Duration // Await-ready probe interval
}

// DefaultControllerConfig returns default lifecycle timing.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		RestartStopTimeout: 1500 * time.Millisecond,
		LockTimeout:        5 * time.Second,
		PollInterval:       DefaultPollInterval,
	}
}

// Controller makes start/stop/restart decisions for the single renderer.
// Every state-changing call runs under the cross-process lifecycle lock.
type Controller struct {
	config         ControllerConfig
	identity       domain.IdentityStore
	processManager domain.ProcessManager
	launcher       domain.ProcessLauncher
	terminator     domain.Terminator
	reaper         domain.OrphanReaper
	configs        domain.ConfigStore
	fsManager      domain.FileSystemManager
	locker         domain.Locker
	logger         *zap.Logger

	// last is the signature of the most recent launch by this controller.
	last *domain.LaunchSignature
}

// NewController creates a lifecycle controller.
func NewController(
	config ControllerConfig,
	identity domain.IdentityStore,
	pm domain.ProcessManager,
	launcher domain.ProcessLauncher,
	terminator domain.Terminator,
	reaper domain.OrphanReaper,
	configs domain.ConfigStore,
	fs domain.FileSystemManager,
	locker domain.Locker,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		config:         config,
		identity:       identity,
		processManager: pm,
		launcher:       launcher,
		terminator:     terminator,
		reaper:         reaper,
		configs:        configs,
		fsManager:      fs,
		locker:         locker,
		logger:         logger,
	}
}

// Start ensures a renderer matching req is running and returns its pid.
// An equivalent running launch is reused; anything else is replaced.
func (c *Controller) Start(ctx context.Context, req domain.StartRequest) (int, error) {
	release, err := c.locker.Acquire(ctx, c.config.LockTimeout)
	if err != nil {
		return 0, err
	}
	defer release()

	return c.start(req)
}

// Stop terminates the recorded renderer and sweeps strays. Stopping a
// stopped system succeeds.
func (c *Controller) Stop(ctx context.Context, timeout time.Duration) error {
	release, err := c.locker.Acquire(ctx, c.config.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	return c.stop(timeout)
}

// Restart always replaces the renderer process.
func (c *Controller) Restart(ctx context.Context, req domain.StartRequest) (int, error) {
	release, err := c.locker.Acquire(ctx, c.config.LockTimeout)
	if err != nil {
		return 0, err
	}
	defer release()

	return c.restart(req)
}

// Status re-validates the identity record; it is never cached.
func (c *Controller) Status() (bool, int) {
	pid, ok := c.identity.Read()
	if !ok || !c.processManager.IsAlive(pid) {
		return false, 0
	}
	return true, pid
}

func (c *Controller) start(req domain.StartRequest) (int, error) {
	configPath := absPath(req.ConfigPath)
	if err := c.validate(configPath, req.Overrides); err != nil {
		return 0, err
	}

	sig := domain.NewLaunchSignature(configPath, req.Overrides, c.configs.Fingerprint(configPath))

	c.reaper.Reconcile()

	if running, _ := c.Status(); running {
		if c.last != nil && *c.last == sig {
			if pid, ok := c.identity.Read(); ok {
				c.logger.Debug("equivalent renderer already running", zap.Int("pid", pid))
				return pid, nil
			}
		}
		return c.restart(req)
	}

	pid, err := c.launcher.Launch(configPath, req.Overrides)
	if err != nil {
		return 0, err
	}

	if err := c.identity.Write(pid); err != nil {
		// Until the renderer records itself, the next reconcile treats it as an orphan
		c.logger.Error("failed to record renderer pid",
			zap.Int("pid", pid),
			zap.String("path", c.identity.Path()),
			zap.Error(err))
	}
	c.last = &sig

	c.awaitReady(pid, req.Wait)
	c.reaper.Reconcile(pid)

	c.logger.Info("renderer started", zap.Int("pid", pid), zap.String("config", configPath))
	return pid, nil
}

func (c *Controller) stop(timeout time.Duration) error {
	c.last = nil

	if pid, ok := c.identity.Read(); ok {
		c.terminateRecorded(pid, timeout)
	}

	if err := c.identity.Clear(); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}

	c.reaper.Reconcile()
	return nil
}

func (c *Controller) restart(req domain.StartRequest) (int, error) {
	if err := c.stop(c.config.RestartStopTimeout); err != nil {
		return 0, err
	}
	return c.start(req)
}

// terminateRecorded stops pid unless it has been reused by an unrelated process.
func (c *Controller) terminateRecorded(pid int, timeout time.Duration) {
	if !c.processManager.IsAlive(pid) {
		return
	}
	if !c.processManager.IsRenderer(pid) {
		c.logger.Warn("recorded pid is not a renderer, leaving it alone", zap.Int("pid", pid))
		return
	}

	outcome := c.terminator.Terminate(pid, timeout)
	c.logger.Info("renderer stopped", zap.Int("pid", pid), zap.String("outcome", string(outcome)))
}

// validate requires an existing video file and a positive playback speed.
func (c *Controller) validate(configPath string, o domain.LaunchOverrides) error {
	cfg, err := c.configs.Load(configPath)
	if err != nil {
		return err
	}

	video := cfg.VideoPath
	if o.VideoPath != "" {
		video = o.VideoPath
	}
	if video == "" {
		return domain.NewConfigurationError(NoVideoMessage)
	}
	if _, err := c.fsManager.ValidateVideo(video); err != nil {
		return err
	}

	speed := cfg.PlaybackSpeed
	if o.Speed != nil {
		speed = *o.Speed
	}
	if speed <= 0 {
		return domain.NewConfigurationError("Playback speed must be positive, got: %g", speed)
	}
	return nil
}

// awaitReady polls until pid is alive or wait elapses.
func (c *Controller) awaitReady(pid int, wait time.Duration) {
	if wait <= 0 {
		return
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if c.processManager.IsAlive(pid) {
			return
		}
		time.Sleep(c.config.PollInterval)
	}
	c.logger.Warn("renderer not alive after launch", zap.Int("pid", pid), zap.Duration("wait", wait))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
