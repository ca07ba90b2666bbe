package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// AutostartConfig describes what the service manager should launch at login.
type AutostartConfig struct {
	Label         string
	ProgramPrefix []string // Renderer entry point: program and fixed arguments
	LogPath       string
}

// Registrar implements domain.AutostartRegistrar.
type Registrar struct {
	config      AutostartConfig
	descriptors domain.DescriptorStore
	service     domain.ServiceManager
	logger      *zap.Logger
}

// NewRegistrar creates an autostart registrar.
func NewRegistrar(
	config AutostartConfig,
	descriptors domain.DescriptorStore,
	service domain.ServiceManager,
	logger *zap.Logger,
) *Registrar {
	return &Registrar{
		config:      config,
		descriptors: descriptors,
		service:     service,
		logger:      logger,
	}
}

// Descriptor builds the registration record for configPath.
func (r *Registrar) Descriptor(configPath string) domain.AutostartDescriptor {
	args := make([]string, 0, len(r.config.ProgramPrefix)+3)
	args = append(args, r.config.ProgramPrefix...)
	args = append(args, "--config", absPath(configPath), "run")

	return domain.AutostartDescriptor{
		Label:             r.config.Label,
		ProgramArguments:  args,
		RunAtLoad:         true,
		KeepAlive:         false,
		StandardOutPath:   r.config.LogPath,
		StandardErrorPath: r.config.LogPath,
	}
}

// Enable writes the descriptor and (re)loads it.
func (r *Registrar) Enable(configPath string) error {
	if err := r.descriptors.Write(r.Descriptor(configPath)); err != nil {
		return fmt.Errorf("failed to write autostart descriptor: %w", err)
	}

	path := r.descriptors.Path()
	if err := r.service.Unload(path); err != nil {
		r.logger.Debug("unload before load failed", zap.String("descriptor", path), zap.Error(err))
	}
	if err := r.service.Load(path); err != nil {
		return err
	}

	r.logger.Info("autostart enabled",
		zap.String("backend", r.service.Name()),
		zap.String("descriptor", path))
	return nil
}

// Disable unloads and removes the descriptor if present.
func (r *Registrar) Disable() error {
	if !r.descriptors.Exists() {
		return nil
	}

	path := r.descriptors.Path()
	_ = r.service.Unload(path)
	if err := r.descriptors.Remove(); err != nil {
		return fmt.Errorf("failed to remove autostart descriptor: %w", err)
	}

	r.logger.Info("autostart disabled", zap.String("descriptor", path))
	return nil
}

// IsEnabled reports whether the descriptor file exists.
func (r *Registrar) IsEnabled() bool {
	return r.descriptors.Exists()
}

// Ensure Registrar implements domain.AutostartRegistrar.
var _ domain.AutostartRegistrar = (*Registrar)(nil)
