// Package app wires the shell together: configuration, the port allocator,
// the process supervisor, the descriptor registry and the sequencer, then
// runs the whole startup and hands off to the chosen surface.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"shellboot/internal/boot"
	"shellboot/internal/config"
	"shellboot/internal/ipc"
	"shellboot/internal/ports"
	"shellboot/internal/reporting"
	"shellboot/internal/splash"
	"shellboot/internal/store"
	"shellboot/internal/supervisor"
	"shellboot/internal/surface"
	"shellboot/pkg/logging"
)

const ipcPortName = "ipc"

// Options come from the command line.
type Options struct {
	ConfigDir string // --config: load <dir>/config.yaml instead of the layered lookup
	NoShell   bool   // --no-shell: console splash and surface, no TUI
	Debug     bool   // --debug: force debug logging
	Version   string
}

// Application holds everything one shell run needs.
type Application struct {
	opts Options
	cfg  config.ShellConfig

	bus       *reporting.Bus
	allocator *ports.Allocator
	manager   *supervisor.Manager
	sequencer *boot.Sequencer
	logFeed   <-chan logging.LogEntry

	mu         sync.Mutex
	store      *store.FileStore
	ipcServer  *ipc.Server
	bootCount  int
	cleanStart bool
	startedAt  time.Time
}

// New loads configuration and builds every collaborator. Nothing is started
// yet; Run drives the sequence.
func New(opts Options) (*Application, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &Application{opts: opts, cfg: cfg}

	level := logging.ParseLevel(cfg.Shell.LogLevel)
	if opts.Debug {
		level = logging.LevelDebug
	}
	if opts.NoShell {
		logging.InitForConsole(level, os.Stderr)
	} else {
		a.logFeed = logging.InitForShell(level)
	}

	a.bus = reporting.NewBus()

	a.allocator, err = ports.NewAllocator(portRequests(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build port allocator: %w", err)
	}

	a.manager, err = supervisor.NewManager(a.bus, a.allocator.Port, processDefinitions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build supervisor: %w", err)
	}

	registry, err := a.buildRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build descriptor registry: %w", err)
	}

	a.sequencer, err = boot.New(registry, boot.Collaborators{
		Ports:  a.allocator,
		Splash: a.splashFactory(),
		Bus:    a.bus,
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func loadConfig(opts Options) (config.ShellConfig, error) {
	if opts.ConfigDir != "" {
		return config.LoadConfigFromDir(opts.ConfigDir)
	}
	return config.LoadConfig()
}

// portRequests derives the allocator's work list: one reservation per
// enabled supervised service, plus one for the IPC server.
func portRequests(cfg config.ShellConfig) []ports.Request {
	var requests []ports.Request
	for _, svc := range cfg.Services {
		if svc.Enabled {
			requests = append(requests, ports.Request{Name: svc.Name, Preferred: svc.Port})
		}
	}
	if cfg.IPC.IsEnabled() {
		requests = append(requests, ports.Request{Name: ipcPortName, Preferred: cfg.IPC.Port})
	}
	return requests
}

func processDefinitions(cfg config.ShellConfig) []supervisor.ProcessDefinition {
	var defs []supervisor.ProcessDefinition
	for _, svc := range cfg.Services {
		if !svc.Enabled {
			continue
		}
		defs = append(defs, supervisor.ProcessDefinition{
			Name:     svc.Name,
			Command:  svc.Command,
			Env:      svc.Env,
			PortName: svc.Name,
		})
	}
	return defs
}

// Run executes the startup sequence and blocks until the surface exits
// (shell mode) or ctx ends (console mode). The shutdown path always runs.
func (a *Application) Run(ctx context.Context) error {
	a.mu.Lock()
	a.startedAt = time.Now()
	a.mu.Unlock()

	var dashboard *surface.Dashboard
	factory := a.consoleSurfaceFactory()
	if !a.opts.NoShell {
		factory = func(initiallyVisible bool) (surface.Surface, error) {
			dashboard = surface.NewDashboard(a.serviceStatuses, a.logFeed)
			return dashboard, nil
		}
	}

	result := a.sequencer.Run(ctx, factory)
	if !result.Success {
		a.shutdown()
		return result.Err
	}

	logging.Info("App", "Shell up: %d services, ports %v", len(a.manager.Definitions()), a.allocator.Reserved())

	if dashboard != nil {
		dashboard.Wait()
	} else {
		<-ctx.Done()
	}

	a.shutdown()
	return nil
}

func (a *Application) shutdown() {
	a.sequencer.Cleanup()
	a.manager.StopAll()

	a.mu.Lock()
	ipcServer := a.ipcServer
	st := a.store
	a.ipcServer = nil
	a.store = nil
	a.mu.Unlock()

	if ipcServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := ipcServer.Stop(shutdownCtx); err != nil {
			logging.Warn("App", "Failed to stop IPC server: %v", err)
		}
		cancel()
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logging.Warn("App", "Failed to close state store: %v", err)
		}
	}
	a.bus.Close()
	logging.CloseShellChannel()
}

func (a *Application) splashFactory() splash.Factory {
	if a.opts.NoShell {
		return func() splash.Presenter { return splash.NewConsolePresenter() }
	}
	title := a.cfg.Shell.Title
	return func() splash.Presenter { return splash.NewTUIPresenter(title) }
}

// serviceStatuses feeds both the dashboard and the shell_services tool.
func (a *Application) serviceStatuses() []supervisor.ProcessStatus {
	names := a.manager.Definitions()
	sort.Strings(names)

	out := make([]supervisor.ProcessStatus, 0, len(names))
	for _, name := range names {
		if status, ok := a.manager.ProcessStatus(name); ok {
			out = append(out, status)
		} else {
			out = append(out, supervisor.ProcessStatus{Name: name})
		}
	}
	return out
}

// shellStatus feeds the shell_status tool.
func (a *Application) shellStatus() ipc.ShellStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ipc.ShellStatus{
		Phase:        string(a.sequencer.Phase()),
		BootCount:    a.bootCount,
		CleanStart:   a.cleanStart,
		UptimeMillis: time.Since(a.startedAt).Milliseconds(),
	}
}

// resolveStatePath honors the configured override, defaulting to the
// conventional per-user state location.
func resolveStatePath(cfg config.ShellConfig) (string, error) {
	if cfg.Shell.StateFile != "" {
		return cfg.Shell.StateFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "shellboot", "state.yaml"), nil
}
