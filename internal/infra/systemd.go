package infra

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// systemd user unit template
const systemdUnitTemplate = `[Unit]
Description=AuraFlow video wallpaper ({{.Label}})

[Service]
Type=simple
ExecStart={{exec .ProgramArguments}}
StandardOutput=append:{{.StandardOutPath}}
StandardError=append:{{.StandardErrorPath}}
{{- if .KeepAlive}}
Restart=always
{{- else}}
Restart=no
{{- end}}
{{if .RunAtLoad}}
[Install]
WantedBy=default.target
{{- end}}
`

var unitTemplate = template.Must(template.New("unit").Funcs(template.FuncMap{
	"exec": execStart,
}).Parse(systemdUnitTemplate))

// execStart quotes argv for an ExecStart= line.
func execStart(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		arg = strings.ReplaceAll(arg, "%", "%%")
		if arg == "" || strings.ContainsAny(arg, " \t\"'\\$;") {
			arg = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg) + `"`
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

// GenerateUnit renders desc as a systemd user unit.
func GenerateUnit(desc domain.AutostartDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, desc); err != nil {
		return nil, fmt.Errorf("failed to execute unit template: %w", err)
	}
	return buf.Bytes(), nil
}

// UnitDescriptorStore implements domain.DescriptorStore as a systemd user unit file.
type UnitDescriptorStore struct {
	path string
}

// NewUnitDescriptorStore creates a unit file store at path.
func NewUnitDescriptorStore(path string) *UnitDescriptorStore {
	return &UnitDescriptorStore{path: path}
}

// Write renders and atomically replaces the unit file.
func (s *UnitDescriptorStore) Write(desc domain.AutostartDescriptor) error {
	content, err := GenerateUnit(desc)
	if err != nil {
		return fmt.Errorf("failed to generate unit content: %w", err)
	}
	return WriteFileAtomic(s.path, content, 0644)
}

// Remove deletes the unit file.
func (s *UnitDescriptorStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists checks if the unit file is installed.
func (s *UnitDescriptorStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the unit file path.
func (s *UnitDescriptorStore) Path() string {
	return s.path
}

// SystemctlServiceManager implements domain.ServiceManager with `systemctl --user`.
type SystemctlServiceManager struct {
	runner CommandRunner
}

// NewSystemctlServiceManager creates a systemctl-backed service manager.
func NewSystemctlServiceManager(runner CommandRunner) *SystemctlServiceManager {
	return &SystemctlServiceManager{runner: runner}
}

// Name returns "systemd".
func (m *SystemctlServiceManager) Name() string {
	return string(BackendSystemd)
}

// Load reloads unit files and enables the unit. It is not started now:
// the supervisor owns the running instance until the next login.
func (m *SystemctlServiceManager) Load(descriptorPath string) error {
	if out, err := m.runner.CombinedOutput("systemctl", "--user", "daemon-reload"); err != nil {
		return &domain.ServiceManagerError{Op: "load", Descriptor: descriptorPath, Err: commandError(out, err)}
	}
	if out, err := m.runner.CombinedOutput("systemctl", "--user", "enable", filepath.Base(descriptorPath)); err != nil {
		return &domain.ServiceManagerError{Op: "load", Descriptor: descriptorPath, Err: commandError(out, err)}
	}
	return nil
}

// Unload disables and stops the unit.
func (m *SystemctlServiceManager) Unload(descriptorPath string) error {
	if out, err := m.runner.CombinedOutput("systemctl", "--user", "disable", "--now", filepath.Base(descriptorPath)); err != nil {
		return &domain.ServiceManagerError{Op: "unload", Descriptor: descriptorPath, Err: commandError(out, err)}
	}
	return nil
}

// Ensure implementations satisfy domain interfaces.
var (
	_ domain.DescriptorStore = (*UnitDescriptorStore)(nil)
	_ domain.ServiceManager  = (*SystemctlServiceManager)(nil)
)
