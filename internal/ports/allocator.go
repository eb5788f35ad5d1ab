// Package ports reserves the local listen ports the shell's subsystems bind
// during startup. The allocator runs exactly once, before the first service
// descriptor, so every later subsystem can look its port up instead of
// racing for one.
package ports

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"shellboot/pkg/logging"
)

// Request names one port the shell needs. Preferred is tried first; when it
// is already bound the allocator falls back to an ephemeral port.
type Request struct {
	Name      string
	Preferred int
}

// Allocator probes and records one port per request. It is safe for
// concurrent reads after Initialize returns.
type Allocator struct {
	mu          sync.RWMutex
	requests    []Request
	reserved    map[string]int
	initialized bool
}

// NewAllocator creates an allocator for the given requests. Duplicate names
// and non-positive preferred ports are construction errors.
func NewAllocator(requests []Request) (*Allocator, error) {
	seen := make(map[string]bool, len(requests))
	for _, req := range requests {
		if req.Name == "" {
			return nil, fmt.Errorf("port request with empty name")
		}
		if seen[req.Name] {
			return nil, fmt.Errorf("duplicate port request %q", req.Name)
		}
		if req.Preferred < 0 || req.Preferred > 65535 {
			return nil, fmt.Errorf("port request %q: preferred port %d out of range", req.Name, req.Preferred)
		}
		seen[req.Name] = true
	}
	return &Allocator{
		requests: requests,
		reserved: make(map[string]int, len(requests)),
	}, nil
}

// Initialize probes every request and records the resulting ports. Requests
// are independent, so they are probed concurrently; Initialize itself is a
// single barrier that returns only when all of them settled. A second call
// is an error: allocation happens once per run.
func (a *Allocator) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return fmt.Errorf("port allocator already initialized")
	}
	a.initialized = true
	requests := a.requests
	a.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	results := make([]int, len(requests))

	for i, req := range requests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			port, err := probe(req.Preferred)
			if err != nil {
				return fmt.Errorf("allocating port for %s: %w", req.Name, err)
			}
			results[i] = port
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, req := range requests {
		a.reserved[req.Name] = results[i]
		logging.Debug("Ports", "Reserved port %d for %s", results[i], req.Name)
	}
	return nil
}

// probe confirms the preferred port is bindable, falling back to an
// ephemeral port when it is not.
func probe(preferred int) (int, error) {
	if preferred > 0 {
		if l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferred)); err == nil {
			l.Close()
			return preferred, nil
		}
		logging.Warn("Ports", "Preferred port %d busy, falling back to ephemeral", preferred)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Port returns the reserved port for name.
func (a *Allocator) Port(name string) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	port, ok := a.reserved[name]
	return port, ok
}

// Reserved returns a copy of all reservations.
func (a *Allocator) Reserved() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]int, len(a.reserved))
	for k, v := range a.reserved {
		out[k] = v
	}
	return out
}
