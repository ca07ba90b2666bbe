//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/auraflow/internal/domain"
	"github.com/eliteGoblin/auraflow/internal/infra"
	"github.com/eliteGoblin/auraflow/internal/usecase"
	"github.com/eliteGoblin/auraflow/test/fixtures"
)

// recordingRunner stands in for launchctl/systemctl.
type recordingRunner struct {
	calls []string
}

func (r *recordingRunner) CombinedOutput(name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	return nil, nil
}

type harness struct {
	dir        string
	configPath string
	videoA     string
	videoB     string
	renderer   infra.RendererCommand
	pm         *infra.ProcessManagerImpl
	identity   *infra.FileIdentityStore
	configs    *infra.JSONConfigStore
	reaper     *usecase.Reaper
	controller *usecase.Controller
}

// supportPaths lays out the support dir under dir. Built directly so
// XDG_CONFIG_HOME/AURAFLOW_HOME cannot redirect the suite.
func supportPaths(dir string) *infra.Paths {
	return &infra.Paths{
		SupportDir: dir,
		ConfigPath: filepath.Join(dir, "config.json"),
		PIDPath:    filepath.Join(dir, "daemon.pid"),
		LogPath:    filepath.Join(dir, "daemon.log"),
		LockPath:   filepath.Join(dir, "daemon.lock"),
	}
}

func tempDir() string {
	dir, err := os.MkdirTemp("", "auraflow-integration-*")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

// newHarness supervises the shell fake renderer.
func newHarness(stubborn bool) *harness {
	dir := tempDir()
	fake, err := fixtures.NewFakeRenderer(dir, supportPaths(dir).PIDPath, stubborn)
	Expect(err).NotTo(HaveOccurred())

	return newHarnessFor(dir, infra.RendererCommand{Program: fixtures.Shell, Args: fake.Args()})
}

func newHarnessFor(dir string, rc infra.RendererCommand) *harness {
	paths := supportPaths(dir)
	h := &harness{
		dir:        dir,
		configPath: paths.ConfigPath,
		renderer:   rc,
		identity:   infra.NewFileIdentityStore(paths.PIDPath),
		configs:    infra.NewJSONConfigStore(),
	}

	var err error
	h.videoA, err = fixtures.CreateVideo(dir, "a.mp4")
	Expect(err).NotTo(HaveOccurred())
	h.videoB, err = fixtures.CreateVideo(dir, "b.mp4")
	Expect(err).NotTo(HaveOccurred())

	logger := zap.NewNop()
	h.pm = infra.NewProcessManager(h.renderer)
	terminator := usecase.NewTerminationSequencer(h.pm, logger)
	h.reaper = usecase.NewReaper(h.pm, h.identity, terminator, logger)
	h.controller = usecase.NewController(
		usecase.DefaultControllerConfig(),
		h.identity,
		h.pm,
		infra.NewDetachedLauncher(h.renderer, paths.LogPath, logger),
		terminator,
		h.reaper,
		h.configs,
		infra.NewFileSystemManager(),
		infra.NewFileLock(paths.LockPath),
		logger,
	)

	Expect(h.configs.Save(h.configPath, domain.DaemonConfig{VideoPath: h.videoA, PlaybackSpeed: 1})).To(Succeed())
	DeferCleanup(func() {
		_ = h.controller.Stop(context.Background(), time.Second)
	})
	return h
}

func (h *harness) request(video string) domain.StartRequest {
	return domain.StartRequest{
		ConfigPath: h.configPath,
		Overrides:  domain.LaunchOverrides{VideoPath: video, Speed: domain.Float(1)},
		Wait:       350 * time.Millisecond,
	}
}

// spawnStray starts a renderer outside the controller.
func (h *harness) spawnStray() int {
	argv := h.renderer.Argv(h.configPath, domain.LaunchOverrides{}, "")
	cmd := exec.Command(argv[0], argv[1:]...)
	Expect(cmd.Start()).To(Succeed())
	go func() { _ = cmd.Wait() }()
	DeferCleanup(func() { _ = cmd.Process.Kill() })
	return cmd.Process.Pid
}

// deadPID returns the pid of a process that has already exited.
func deadPID() int {
	cmd := exec.Command(fixtures.Shell, "-c", "exit 0")
	Expect(cmd.Run()).To(Succeed())
	return cmd.Process.Pid
}

var _ = Describe("Lifecycle", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness(false)
	})

	Describe("Start", func() {
		It("reports the launched renderer as running", func() {
			pid, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())

			running, statusPID := h.controller.Status()
			Expect(running).To(BeTrue())
			Expect(statusPID).To(Equal(pid))
			Expect(h.pm.IsRenderer(pid)).To(BeTrue())
		})

		It("returns the same pid for an equivalent second start", func() {
			first, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())

			second, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(h.pm.IsAlive(first)).To(BeTrue())
		})

		It("refuses a missing video without launching", func() {
			_, err := h.controller.Start(ctx, h.request(filepath.Join(h.dir, "missing.mp4")))

			var cfgErr *domain.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			_, ok := h.identity.Read()
			Expect(ok).To(BeFalse())
		})

		It("replaces the renderer when the video changes", func() {
			a, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())

			b, err := h.controller.Start(ctx, h.request(h.videoB))
			Expect(err).NotTo(HaveOccurred())
			Expect(b).NotTo(Equal(a))

			Eventually(func() bool { return h.pm.IsAlive(a) }, 2*time.Second, 20*time.Millisecond).Should(BeFalse())
			pid, ok := h.identity.Read()
			Expect(ok).To(BeTrue())
			Expect(pid).To(Equal(b))

			renderers, err := h.pm.FindRenderers()
			Expect(err).NotTo(HaveOccurred())
			Expect(renderers).To(ConsistOf(b))
		})
	})

	Describe("Stop", func() {
		It("is satisfied when nothing is running", func() {
			Expect(h.controller.Stop(ctx, time.Second)).To(Succeed())

			running, _ := h.controller.Status()
			Expect(running).To(BeFalse())
			_, err := os.Stat(h.identity.Path())
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("terminates the running renderer and clears its identity", func() {
			pid, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())

			Expect(h.controller.Stop(ctx, time.Second)).To(Succeed())
			Expect(h.pm.IsAlive(pid)).To(BeFalse())
			_, ok := h.identity.Read()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Restart", func() {
		It("yields a new pid and the old process is gone", func() {
			old, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())

			fresh, err := h.controller.Restart(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh).NotTo(Equal(old))
			Expect(h.pm.IsAlive(old)).To(BeFalse())
			Expect(h.pm.IsAlive(fresh)).To(BeTrue())
		})
	})

	Describe("Reconciliation", func() {
		It("leaves exactly the recorded renderer alive", func() {
			pid, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())

			stray := h.spawnStray()
			// The stray records itself on startup; put the controller's pid back
			Eventually(func() int {
				p, _ := h.identity.Read()
				return p
			}, 2*time.Second, 20*time.Millisecond).Should(Equal(stray))
			Expect(h.identity.Write(pid)).To(Succeed())

			h.reaper.Reconcile()

			Eventually(func() bool { return h.pm.IsAlive(stray) }, 2*time.Second, 20*time.Millisecond).Should(BeFalse())
			Expect(h.pm.IsAlive(pid)).To(BeTrue())
			recorded, ok := h.identity.Read()
			Expect(ok).To(BeTrue())
			Expect(recorded).To(Equal(pid))
		})
	})

	Describe("Stale identity", func() {
		It("reports not running and is overwritten by the next start", func() {
			stale := deadPID()
			Expect(h.identity.Write(stale)).To(Succeed())

			running, _ := h.controller.Status()
			Expect(running).To(BeFalse())

			pid, err := h.controller.Start(ctx, h.request(h.videoA))
			Expect(err).NotTo(HaveOccurred())
			Expect(pid).NotTo(Equal(stale))

			recorded, ok := h.identity.Read()
			Expect(ok).To(BeTrue())
			Expect(recorded).To(Equal(pid))
		})
	})
})

var _ = Describe("Termination", func() {
	It("kills a renderer that ignores SIGTERM", func() {
		h := newHarness(true)

		pid, err := h.controller.Start(context.Background(), h.request(h.videoA))
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		Expect(h.controller.Stop(context.Background(), 300*time.Millisecond)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))

		Eventually(func() bool { return h.pm.IsAlive(pid) }, 2*time.Second, 20*time.Millisecond).Should(BeFalse())
		_, ok := h.identity.Read()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Renderer host", func() {
	It("leaves no player behind when the player ignores SIGTERM", func() {
		dir := tempDir()
		// The host resolves its identity file from the support dir
		Expect(os.Setenv(infra.EnvHome, dir)).To(Succeed())
		DeferCleanup(os.Unsetenv, infra.EnvHome)

		h := newHarnessFor(dir, infra.RendererCommand{Program: auraflowBin})
		player, err := fixtures.NewStubbornPlayer(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.configs.Save(h.configPath, domain.DaemonConfig{
			VideoPath:     h.videoA,
			PlaybackSpeed: 1,
			Player:        player.ScriptPath,
		})).To(Succeed())

		pid, err := h.controller.Start(context.Background(), h.request(h.videoA))
		Expect(err).NotTo(HaveOccurred())

		var playerPID int
		Eventually(func() (int, error) {
			playerPID, err = player.PID()
			return playerPID, err
		}, 3*time.Second, 20*time.Millisecond).Should(BeNumerically(">", 0))
		Expect(h.pm.IsAlive(playerPID)).To(BeTrue())

		Expect(h.controller.Stop(context.Background(), 1500*time.Millisecond)).To(Succeed())

		Expect(h.pm.IsAlive(pid)).To(BeFalse())
		Eventually(func() bool { return h.pm.IsAlive(playerPID) }, time.Second, 20*time.Millisecond).Should(BeFalse())
		Consistently(func() bool { return h.pm.IsAlive(playerPID) }, 500*time.Millisecond, 50*time.Millisecond).Should(BeFalse())
	})
})

var _ = Describe("Autostart", func() {
	var (
		dir        string
		configPath string
		runner     *recordingRunner
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "auraflow-autostart-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		configPath = filepath.Join(dir, "config.json")
		runner = &recordingRunner{}
	})

	registrar := func(store domain.DescriptorStore, service domain.ServiceManager) *usecase.Registrar {
		return usecase.NewRegistrar(usecase.AutostartConfig{
			Label:         infra.AppID,
			ProgramPrefix: []string{"/usr/local/bin/auraflow"},
			LogPath:       filepath.Join(dir, "daemon.log"),
		}, store, service, zap.NewNop())
	}

	It("writes and removes a launchd property list", func() {
		store := infra.NewPlistDescriptorStore(filepath.Join(dir, "LaunchAgents", infra.AppID+".plist"))
		r := registrar(store, infra.NewLaunchctlServiceManager(runner))

		Expect(r.Enable(configPath)).To(Succeed())
		Expect(r.IsEnabled()).To(BeTrue())

		data, err := os.ReadFile(store.Path())
		Expect(err).NotTo(HaveOccurred())
		content := string(data)
		Expect(content).To(ContainSubstring("<string>" + infra.AppID + "</string>"))
		Expect(content).To(ContainSubstring("<string>/usr/local/bin/auraflow</string>"))
		Expect(content).To(ContainSubstring("<string>--config</string>"))
		Expect(content).To(ContainSubstring("<string>" + configPath + "</string>"))
		Expect(content).To(ContainSubstring("<string>run</string>"))
		Expect(content).To(MatchRegexp(`<key>RunAtLoad</key>\s*<true/>`))
		Expect(content).To(MatchRegexp(`<key>KeepAlive</key>\s*<false/>`))
		Expect(runner.calls).To(Equal([]string{
			"launchctl unload " + store.Path(),
			"launchctl load -w " + store.Path(),
		}))

		Expect(r.Disable()).To(Succeed())
		Expect(r.IsEnabled()).To(BeFalse())
		Expect(runner.calls).To(HaveLen(3))
	})

	It("writes and removes a systemd user unit", func() {
		store := infra.NewUnitDescriptorStore(filepath.Join(dir, "systemd", "user", infra.AppID+".service"))
		r := registrar(store, infra.NewSystemctlServiceManager(runner))

		Expect(r.Enable(configPath)).To(Succeed())

		data, err := os.ReadFile(store.Path())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("ExecStart=/usr/local/bin/auraflow --config " + configPath + " run"))
		Expect(string(data)).To(ContainSubstring("WantedBy=default.target"))
		Expect(string(data)).To(ContainSubstring("Restart=no"))

		Expect(r.Disable()).To(Succeed())
		Expect(r.IsEnabled()).To(BeFalse())
		Expect(runner.calls).To(ContainElement("systemctl --user disable --now " + infra.AppID + ".service"))
	})

	It("does nothing when disabling an absent registration", func() {
		store := infra.NewPlistDescriptorStore(filepath.Join(dir, infra.AppID+".plist"))
		r := registrar(store, infra.NewLaunchctlServiceManager(runner))

		Expect(r.Disable()).To(Succeed())
		Expect(runner.calls).To(BeEmpty())
	})
})
