package supervisor

import (
	"context"
	"fmt"
	"sync"

	"shellboot/internal/reporting"
	"shellboot/pkg/logging"
)

// PortLookup resolves a port-allocator reservation by name.
type PortLookup func(name string) (int, bool)

// Manager is the default Supervisor implementation.
type Manager struct {
	bus   *reporting.Bus
	ports PortLookup

	mu    sync.RWMutex
	defs  map[string]ProcessDefinition
	procs map[string]*managedProcess
}

// NewManager creates a supervisor for the given process definitions.
// Progress events are published on bus; ports is consulted for definitions
// that name a reservation.
func NewManager(bus *reporting.Bus, ports PortLookup, defs []ProcessDefinition) (*Manager, error) {
	byName := make(map[string]ProcessDefinition, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("process definition with empty name")
		}
		if len(def.Command) == 0 {
			return nil, fmt.Errorf("process %q has no command", def.Name)
		}
		if _, dup := byName[def.Name]; dup {
			return nil, fmt.Errorf("duplicate process definition %q", def.Name)
		}
		byName[def.Name] = def
	}
	return &Manager{
		bus:   bus,
		ports: ports,
		defs:  byName,
		procs: make(map[string]*managedProcess),
	}, nil
}

// Bus returns the progress bus the manager publishes on.
func (m *Manager) Bus() *reporting.Bus {
	return m.bus
}

// StartProcess spawns the named process and blocks until it publishes a
// ready event. The wait is unbounded: a process that never reports ready
// keeps the caller suspended until it exits or ctx is cancelled upstream.
func (m *Manager) StartProcess(ctx context.Context, name string) error {
	m.mu.Lock()
	def, ok := m.defs[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown process %q", name)
	}
	if existing, running := m.procs[name]; running && existing.isRunning() {
		m.mu.Unlock()
		return fmt.Errorf("process %q already running", name)
	}
	m.mu.Unlock()

	port := 0
	if def.PortName != "" && m.ports != nil {
		if p, ok := m.ports(def.PortName); ok {
			port = p
		} else {
			return fmt.Errorf("process %q: no port reserved under %q", name, def.PortName)
		}
	}

	// Subscribe before spawning so the ready event cannot slip past us.
	sub := m.bus.Subscribe(reporting.CombineFilters(
		reporting.FilterByService(name),
		reporting.FilterByStatus(reporting.StatusReady, reporting.StatusFailed, reporting.StatusExited),
	), 16)
	defer m.bus.Unsubscribe(sub)

	proc, err := spawn(def, port, m.bus)
	if err != nil {
		m.bus.Publish(reporting.NewProgressEvent(name, reporting.StatusFailed).WithError(err))
		return fmt.Errorf("failed to start process %s: %w", name, err)
	}

	m.mu.Lock()
	m.procs[name] = proc
	m.mu.Unlock()

	logging.Info("Supervisor", "Started process %s (PID %d)", name, proc.pid)

	// No timeout here, just wait for confirmation from the process itself.
	for {
		select {
		case <-ctx.Done():
			_ = m.Stop(name)
			return ctx.Err()
		case ev, open := <-sub.Events():
			if !open {
				return fmt.Errorf("progress bus closed while waiting for %s", name)
			}
			switch ev.Status {
			case reporting.StatusReady:
				if ev.Port > 0 {
					proc.setPort(ev.Port)
				}
				return nil
			case reporting.StatusFailed:
				if ev.Err != nil {
					return fmt.Errorf("process %s failed during startup: %w", name, ev.Err)
				}
				return fmt.Errorf("process %s failed during startup", name)
			case reporting.StatusExited:
				return fmt.Errorf("process %s exited before becoming ready", name)
			}
		}
	}
}

// ProcessStatus returns a snapshot of the named process.
func (m *Manager) ProcessStatus(name string) (ProcessStatus, bool) {
	m.mu.RLock()
	proc, ok := m.procs[name]
	m.mu.RUnlock()
	if !ok {
		return ProcessStatus{}, false
	}
	return ProcessStatus{
		Name:    name,
		PID:     proc.pid,
		Port:    proc.port(),
		Running: proc.isRunning(),
	}, true
}

// Stop terminates the named process if it is running.
func (m *Manager) Stop(name string) error {
	m.mu.RLock()
	proc, ok := m.procs[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("process %q not started", name)
	}
	proc.stop()
	return nil
}

// StopAll terminates every supervised process. Used on shutdown and on
// abort paths.
func (m *Manager) StopAll() {
	m.mu.RLock()
	procs := make([]*managedProcess, 0, len(m.procs))
	for _, p := range m.procs {
		procs = append(procs, p)
	}
	m.mu.RUnlock()

	for _, p := range procs {
		p.stop()
	}
}

// Definitions returns the names of all configured processes in no
// particular order.
func (m *Manager) Definitions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.defs))
	for name := range m.defs {
		names = append(names, name)
	}
	return names
}
