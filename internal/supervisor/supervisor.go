// Package supervisor manages the shell's out-of-process services: spawning
// them, translating their stdout status lines into progress events on the
// reporting bus, and gating callers until a service signals readiness.
package supervisor

import (
	"context"
)

// ProcessDefinition describes one long-running child process.
type ProcessDefinition struct {
	Name     string
	Command  []string          // executable and arguments
	Env      map[string]string // extra environment, on top of the parent's
	PortName string            // port-allocator reservation passed as SHELLBOOT_PORT
}

// ProcessStatus is a snapshot of one supervised process.
type ProcessStatus struct {
	Name    string
	PID     int
	Port    int
	Running bool
}

// Supervisor is the narrow surface the sequencer and its descriptors
// consume. StartProcess blocks until the named process reports ready on the
// progress bus; there is deliberately no timeout, the caller waits for
// confirmation.
type Supervisor interface {
	StartProcess(ctx context.Context, name string) error
	ProcessStatus(name string) (ProcessStatus, bool)
	Stop(name string) error
	StopAll()
}
