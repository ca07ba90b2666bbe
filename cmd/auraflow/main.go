// Package main is the CLI entry point for auraflow.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/daemon"
	"github.com/eliteGoblin/auraflow/internal/domain"
	"github.com/eliteGoblin/auraflow/internal/infra"
	"github.com/eliteGoblin/auraflow/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

const (
	// startWait is the await-ready budget for CLI-initiated launches
	startWait = 350 * time.Millisecond
	// stopTimeout is the SIGTERM grace for the stop command
	stopTimeout = 1500 * time.Millisecond
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "auraflow",
	Short: "Video wallpaper control surface",
	Long: `auraflow plays a looping video as the desktop background.

Control commands start, stop and reconfigure a single background renderer
and print a JSON status snapshot. Configuration changes are applied by
restarting the renderer.`,
	Version:      Version,
	SilenceUsage: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the renderer (reuses an equivalent running instance)",
	Long: `Starts the renderer with the configured video. --video, --speed and
--volume are validated and saved to the config before starting.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the renderer",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Replace the renderer process",
	Long:  `Stops the renderer and starts a fresh one. Flags apply to this launch only.`,
	Args:  cobra.NoArgs,
	RunE:  runRestart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status snapshot",
	Long:  `Prints {running, config, pid, autostart}. With --watch, prints a new snapshot on every change.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var setVideoCmd = &cobra.Command{
	Use:   "set-video <path>",
	Short: "Set the video file (restarts a running renderer)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetVideo,
}

var setSpeedCmd = &cobra.Command{
	Use:   "set-speed <rate>",
	Short: "Set the playback speed (restarts a running renderer)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetSpeed,
}

var setVolumeCmd = &cobra.Command{
	Use:   "set-volume <0..1>",
	Short: "Set the playback volume (restarts a running renderer)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetVolume,
}

var setAutostartCmd = &cobra.Command{
	Use:       "set-autostart on|off",
	Short:     "Enable or disable launch at login",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runSetAutostart,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

// Hidden run command - the renderer entry point launched by start and by the service manager
var runCmd = &cobra.Command{
	Use:    "run",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runRenderer,
}

var (
	configPath   string
	debugLogging bool
	jsonOutput   bool
	watchStatus  bool

	videoFlag    string
	speedFlag    float64
	volumeFlag   float64
	instanceFlag string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", infra.DetectPaths().ConfigPath, "Path to JSON config")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Log to stderr at debug level")

	for _, cmd := range []*cobra.Command{startCmd, restartCmd, runCmd} {
		cmd.Flags().StringVar(&videoFlag, "video", "", "Video file to play")
		cmd.Flags().Float64Var(&speedFlag, "speed", domain.DefaultPlaybackSpeed, "Playback speed")
		cmd.Flags().Float64Var(&volumeFlag, "volume", domain.DefaultVolume, "Playback volume (0..1)")
	}
	runCmd.Flags().StringVar(&instanceFlag, "instance", "", "Launch marker")
	statusCmd.Flags().BoolVar(&watchStatus, "watch", false, "Print a new snapshot on every change")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setVideoCmd)
	rootCmd.AddCommand(setSpeedCmd)
	rootCmd.AddCommand(setVolumeCmd)
	rootCmd.AddCommand(setAutostartCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	cfg, err := a.configs.Load(configPath)
	if err != nil {
		return err
	}

	// Flags given to start are persisted
	changed := false
	if cmd.Flags().Changed("video") {
		resolved, err := a.fs.ValidateVideo(videoFlag)
		if err != nil {
			return err
		}
		cfg.VideoPath = resolved
		changed = true
	}
	if cmd.Flags().Changed("speed") {
		if err := validateSpeed(speedFlag); err != nil {
			return err
		}
		cfg.PlaybackSpeed = speedFlag
		changed = true
	}
	if cmd.Flags().Changed("volume") {
		if err := validateVolume(volumeFlag); err != nil {
			return err
		}
		cfg.Volume = volumeFlag
		changed = true
	}
	if changed {
		if err := a.configs.Save(configPath, cfg); err != nil {
			return err
		}
	}

	if cfg.VideoPath == "" {
		return domain.NewConfigurationError(usecase.NoVideoMessage)
	}

	if _, err := a.controller.Start(cmd.Context(), startRequest(cfg)); err != nil {
		return err
	}
	return printStatus(a)
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	if err := a.controller.Stop(cmd.Context(), stopTimeout); err != nil {
		return err
	}
	return printStatus(a)
}

func runRestart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	cfg, err := a.configs.Load(configPath)
	if err != nil {
		return err
	}

	cfg, err = applyRestartFlags(cmd.Flags().Changed, a.fs, cfg)
	if err != nil {
		return err
	}

	if _, err := a.controller.Restart(cmd.Context(), startRequest(cfg)); err != nil {
		return err
	}
	return printStatus(a)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	if err := printStatus(a); err != nil {
		return err
	}
	if !watchStatus {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := infra.NewFileWatcher(a.logger, configPath, a.paths.PIDPath, a.paths.DescriptorPath)
	return watcher.Watch(ctx, func() {
		if err := printStatus(a); err != nil {
			a.logger.Warn("failed to print status", zap.Error(err))
		}
	})
}

func runSetVideo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	resolved, err := a.fs.ValidateVideo(args[0])
	if err != nil {
		return err
	}
	return updateAndApply(cmd.Context(), a, func(c *domain.DaemonConfig) { c.VideoPath = resolved })
}

func runSetSpeed(cmd *cobra.Command, args []string) error {
	speed, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid speed %q: %w", args[0], err)
	}
	if err := validateSpeed(speed); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	return updateAndApply(cmd.Context(), a, func(c *domain.DaemonConfig) { c.PlaybackSpeed = speed })
}

func runSetVolume(cmd *cobra.Command, args []string) error {
	volume, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid volume %q: %w", args[0], err)
	}
	if err := validateVolume(volume); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	return updateAndApply(cmd.Context(), a, func(c *domain.DaemonConfig) { c.Volume = volume })
}

func runSetAutostart(cmd *cobra.Command, args []string) error {
	var enable bool
	switch args[0] {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	if enable {
		err = a.autostart.Enable(configPath)
	} else {
		err = a.autostart.Disable()
	}
	if err != nil {
		return err
	}

	if _, err := a.configs.Update(configPath, func(c *domain.DaemonConfig) { c.Autostart = enable }); err != nil {
		return err
	}
	return printStatus(a)
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("auraflow %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

func runRenderer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	var overrides domain.LaunchOverrides
	if cmd.Flags().Changed("video") {
		overrides.VideoPath = videoFlag
	}
	if cmd.Flags().Changed("speed") {
		overrides.Speed = domain.Float(speedFlag)
	}
	if cmd.Flags().Changed("volume") {
		overrides.Volume = domain.Float(volumeFlag)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return a.newHost().Run(ctx, daemon.HostOptions{
		ConfigPath: configPath,
		Overrides:  overrides,
		InstanceID: instanceFlag,
	})
}

// applyRestartFlags overlays restart flags on cfg for this launch only.
// The video is resolved here so the renderer never re-expands it.
func applyRestartFlags(changed func(string) bool, fs domain.FileSystemManager, cfg domain.DaemonConfig) (domain.DaemonConfig, error) {
	if changed("video") {
		resolved, err := fs.ValidateVideo(videoFlag)
		if err != nil {
			return cfg, err
		}
		cfg.VideoPath = resolved
	}
	if changed("speed") {
		cfg.PlaybackSpeed = speedFlag
	}
	if changed("volume") {
		if err := validateVolume(volumeFlag); err != nil {
			return cfg, err
		}
		cfg.Volume = volumeFlag
	}
	return cfg, nil
}

// updateAndApply persists a config change and restarts a running renderer.
func updateAndApply(ctx context.Context, a *app, fn func(*domain.DaemonConfig)) error {
	cfg, err := a.configs.Update(configPath, fn)
	if err != nil {
		return err
	}

	if running, _ := a.controller.Status(); running && cfg.VideoPath != "" {
		if _, err := a.controller.Restart(ctx, startRequest(cfg)); err != nil {
			return err
		}
	}
	return printStatus(a)
}

// startRequest launches with the effective config values as overrides.
func startRequest(cfg domain.DaemonConfig) domain.StartRequest {
	return domain.StartRequest{
		ConfigPath: configPath,
		Overrides: domain.LaunchOverrides{
			VideoPath: cfg.VideoPath,
			Speed:     domain.Float(cfg.PlaybackSpeed),
			Volume:    domain.Float(cfg.Volume),
		},
		Wait: startWait,
	}
}

func validateSpeed(speed float64) error {
	if speed <= 0 {
		return domain.NewConfigurationError("Playback speed must be positive, got: %g", speed)
	}
	return nil
}

func validateVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.NewConfigurationError("Volume must be between 0 and 1, got: %g", volume)
	}
	return nil
}

func printStatus(a *app) error {
	status, err := a.status.Snapshot(configPath)
	if err != nil {
		return err
	}

	var data []byte
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		data, err = json.MarshalIndent(status, "", "  ")
	} else {
		data, err = json.Marshal(status)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
