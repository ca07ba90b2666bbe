package main

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/daemon"
	"github.com/eliteGoblin/auraflow/internal/domain"
	"github.com/eliteGoblin/auraflow/internal/infra"
	"github.com/eliteGoblin/auraflow/internal/usecase"
)

// app holds the wired components for one CLI invocation.
type app struct {
	paths      *infra.Paths
	logger     *zap.Logger
	configs    *infra.JSONConfigStore
	fs         *infra.FileSystemManagerImpl
	identity   *infra.FileIdentityStore
	controller *usecase.Controller
	autostart  *usecase.Registrar
	status     *usecase.StatusReporter
}

func newApp() (*app, error) {
	paths := infra.DetectPaths()
	if err := paths.EnsureSupportDir(); err != nil {
		return nil, err
	}

	logger := infra.NewLogger(paths.LogPath, debugLogging)
	renderer := infra.DefaultRendererCommand()

	pm := infra.NewProcessManager(renderer)
	identity := infra.NewFileIdentityStore(paths.PIDPath)
	configs := infra.NewJSONConfigStore()
	fs := infra.NewFileSystemManager()

	terminator := usecase.NewTerminationSequencer(pm, logger)
	reaper := usecase.NewReaper(pm, identity, terminator, logger)
	controller := usecase.NewController(
		usecase.DefaultControllerConfig(),
		identity,
		pm,
		infra.NewDetachedLauncher(renderer, paths.LogPath, logger),
		terminator,
		reaper,
		configs,
		fs,
		infra.NewFileLock(paths.LockPath),
		logger,
	)

	descriptors, service := autostartBackend(paths)
	registrar := usecase.NewRegistrar(usecase.AutostartConfig{
		Label:         infra.AppID,
		ProgramPrefix: renderer.Prefix(),
		LogPath:       paths.LogPath,
	}, descriptors, service, logger)

	return &app{
		paths:      paths,
		logger:     logger,
		configs:    configs,
		fs:         fs,
		identity:   identity,
		controller: controller,
		autostart:  registrar,
		status:     usecase.NewStatusReporter(controller, configs, registrar),
	}, nil
}

// autostartBackend selects the descriptor format and service manager for the host.
func autostartBackend(paths *infra.Paths) (domain.DescriptorStore, domain.ServiceManager) {
	runner := &infra.RealCommandRunner{}
	if paths.Backend == infra.BackendLaunchd {
		return infra.NewPlistDescriptorStore(paths.DescriptorPath), infra.NewLaunchctlServiceManager(runner)
	}
	return infra.NewUnitDescriptorStore(paths.DescriptorPath), infra.NewSystemctlServiceManager(runner)
}

// newHost wires the renderer host used by the hidden run command.
func (a *app) newHost() *daemon.Host {
	factory := func(s daemon.RenderSettings) daemon.Renderer {
		return daemon.NewPlayerRenderer(s, a.logger)
	}
	return daemon.NewHost(a.configs, a.fs, a.identity, factory, a.logger)
}
