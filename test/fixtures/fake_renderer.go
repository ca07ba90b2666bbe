// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Shell runs the fake renderer script.
const Shell = "/bin/sh"

// fakeRendererScript honours the renderer side of the identity contract:
// write own pid on start, remove it on TERM/INT only while it still names us.
const fakeRendererScript = `#!/bin/sh
pidfile=%s
tmp="$pidfile.$$.tmp"
printf '%%s' "$$" > "$tmp" && mv -f "$tmp" "$pidfile"
cleanup() {
  if [ "$(cat "$pidfile" 2>/dev/null)" = "$$" ]; then
    rm -f "$pidfile"
  fi
  exit 0
}
%s
echo "fake renderer $$ started: $*"
while :; do sleep 0.05; done
`

// FakeRenderer is a shell-script stand-in for the renderer entry point.
type FakeRenderer struct {
	ScriptPath string
	PIDPath    string
}

// NewFakeRenderer writes a fake renderer script into dir. With stubborn set
// the script ignores SIGTERM and only dies to SIGKILL.
func NewFakeRenderer(dir, pidPath string, stubborn bool) (*FakeRenderer, error) {
	trap := "trap cleanup TERM INT"
	name := "fake_renderer.sh"
	if stubborn {
		trap = "trap '' TERM\ntrap cleanup INT"
		name = "stubborn_renderer.sh"
	}

	scriptPath := filepath.Join(dir, name)
	content := fmt.Sprintf(fakeRendererScript, shellQuote(pidPath), trap)
	if err := os.WriteFile(scriptPath, []byte(content), 0755); err != nil {
		return nil, err
	}

	return &FakeRenderer{ScriptPath: scriptPath, PIDPath: pidPath}, nil
}

// Args returns the fixed arguments that follow Shell in the entry point.
func (f *FakeRenderer) Args() []string {
	return []string{f.ScriptPath}
}

const stubbornPlayerScript = `#!/bin/sh
printf '%%s' "$$" > %s
trap '' TERM
while :; do sleep 0.05; done
`

// FakePlayer is a playback program that ignores SIGTERM and records its pid.
type FakePlayer struct {
	ScriptPath string
	PIDPath    string
}

// NewStubbornPlayer writes a player script into dir.
func NewStubbornPlayer(dir string) (*FakePlayer, error) {
	p := &FakePlayer{
		ScriptPath: filepath.Join(dir, "stubborn_player.sh"),
		PIDPath:    filepath.Join(dir, "player.pid"),
	}
	content := fmt.Sprintf(stubbornPlayerScript, shellQuote(p.PIDPath))
	if err := os.WriteFile(p.ScriptPath, []byte(content), 0755); err != nil {
		return nil, err
	}
	return p, nil
}

// PID returns the pid the player recorded, or 0 before it has started.
func (p *FakePlayer) PID() (int, error) {
	data, err := os.ReadFile(p.PIDPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// CreateVideo writes a placeholder video file and returns its path.
func CreateVideo(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really a video"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
