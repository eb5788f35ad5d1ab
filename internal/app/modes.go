package app

import (
	"shellboot/internal/surface"
	"shellboot/pkg/logging"
)

// consoleSurface is the main surface for --no-shell runs: nothing to draw,
// ready immediately, reveal is a log line.
type consoleSurface struct {
	ready chan struct{}
}

func newConsoleSurface() *consoleSurface {
	ready := make(chan struct{})
	close(ready)
	return &consoleSurface{ready: ready}
}

func (s *consoleSurface) Ready() <-chan struct{} { return s.ready }

func (s *consoleSurface) Show() {
	logging.Info("App", "Startup complete, running headless")
}

func (a *Application) consoleSurfaceFactory() surface.Factory {
	return func(initiallyVisible bool) (surface.Surface, error) {
		return newConsoleSurface(), nil
	}
}
