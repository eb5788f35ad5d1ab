// Package surface owns the main application surface that replaces the
// splash once startup completes. The sequencer creates it hidden, waits
// for it to signal readiness, and reveals it.
package surface

// Surface is the main application surface.
type Surface interface {
	// Ready returns a channel closed once the surface has finished its own
	// initialization and can be revealed.
	Ready() <-chan struct{}
	// Show reveals the surface to the user. Called at most once, after
	// Ready has signalled.
	Show()
}

// Factory builds the surface for one run. initiallyVisible is false during
// a normal boot; the surface stays hidden until the sequencer calls Show.
type Factory func(initiallyVisible bool) (Surface, error)
