package usecase

import "github.com/eliteGoblin/auraflow/internal/domain"

// StatusReporter builds the snapshot printed after every control command.
type StatusReporter struct {
	controller *Controller
	configs    domain.ConfigStore
	autostart  domain.AutostartRegistrar
}

// NewStatusReporter creates a status reporter.
func NewStatusReporter(c *Controller, configs domain.ConfigStore, autostart domain.AutostartRegistrar) *StatusReporter {
	return &StatusReporter{controller: c, configs: configs, autostart: autostart}
}

// Snapshot reads current state. pid is nil unless the renderer is running.
func (s *StatusReporter) Snapshot(configPath string) (domain.Status, error) {
	cfg, err := s.configs.Load(configPath)
	if err != nil {
		return domain.Status{}, err
	}

	status := domain.Status{
		Config:    cfg,
		Autostart: s.autostart.IsEnabled(),
	}
	if running, pid := s.controller.Status(); running {
		status.Running = true
		status.PID = &pid
	}
	return status, nil
}
