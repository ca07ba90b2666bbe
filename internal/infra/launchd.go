package infra

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// LaunchAgent plist template (runs as user)
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{xml .Label}}</string>

    <key>ProgramArguments</key>
    <array>
{{- range .ProgramArguments}}
        <string>{{xml .}}</string>
{{- end}}
    </array>

    <key>RunAtLoad</key>
    {{if .RunAtLoad}}<true/>{{else}}<false/>{{end}}

    <key>KeepAlive</key>
    {{if .KeepAlive}}<true/>{{else}}<false/>{{end}}

    <key>StandardOutPath</key>
    <string>{{xml .StandardOutPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{xml .StandardErrorPath}}</string>
</dict>
</plist>
`

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(launchAgentTemplate))

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// GeneratePlist renders desc as a launchd property list.
func GeneratePlist(desc domain.AutostartDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, desc); err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// PlistDescriptorStore implements domain.DescriptorStore as a LaunchAgent plist.
type PlistDescriptorStore struct {
	path string
}

// NewPlistDescriptorStore creates a plist store at path.
func NewPlistDescriptorStore(path string) *PlistDescriptorStore {
	return &PlistDescriptorStore{path: path}
}

// Write renders and atomically replaces the plist.
func (s *PlistDescriptorStore) Write(desc domain.AutostartDescriptor) error {
	content, err := GeneratePlist(desc)
	if err != nil {
		return fmt.Errorf("failed to generate plist content: %w", err)
	}
	return WriteFileAtomic(s.path, content, 0644)
}

// Remove deletes the plist.
func (s *PlistDescriptorStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists checks if the plist is installed.
func (s *PlistDescriptorStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the plist file path.
func (s *PlistDescriptorStore) Path() string {
	return s.path
}

// LaunchctlServiceManager implements domain.ServiceManager with launchctl.
// Note: `launchctl load` is deprecated in favour of `launchctl bootstrap
// gui/<uid>` but still works for user agents.
type LaunchctlServiceManager struct {
	runner CommandRunner
}

// NewLaunchctlServiceManager creates a launchctl-backed service manager.
func NewLaunchctlServiceManager(runner CommandRunner) *LaunchctlServiceManager {
	return &LaunchctlServiceManager{runner: runner}
}

// Name returns "launchd".
func (m *LaunchctlServiceManager) Name() string {
	return string(BackendLaunchd)
}

// Load loads and enables the plist.
func (m *LaunchctlServiceManager) Load(descriptorPath string) error {
	if out, err := m.runner.CombinedOutput("launchctl", "load", "-w", descriptorPath); err != nil {
		return &domain.ServiceManagerError{Op: "load", Descriptor: descriptorPath, Err: commandError(out, err)}
	}
	return nil
}

// Unload unloads the plist.
func (m *LaunchctlServiceManager) Unload(descriptorPath string) error {
	if out, err := m.runner.CombinedOutput("launchctl", "unload", descriptorPath); err != nil {
		return &domain.ServiceManagerError{Op: "unload", Descriptor: descriptorPath, Err: commandError(out, err)}
	}
	return nil
}

// commandError folds command output into err.
func commandError(out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

// Ensure implementations satisfy domain interfaces.
var (
	_ domain.DescriptorStore = (*PlistDescriptorStore)(nil)
	_ domain.ServiceManager  = (*LaunchctlServiceManager)(nil)
)
