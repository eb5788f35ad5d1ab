// Package splash is the transient progress surface shown while the shell
// boots. The sequencer talks to it through the Presenter interface; pushes
// are fire-and-forget.
package splash

// Presenter receives progress pushes during startup and is retired exactly
// once, either after a fatal failure or once the main surface is ready.
type Presenter interface {
	// Progress reports cumulative startup progress (0-100) and a status
	// line.
	Progress(percent float64, status string)
	// Failure reports a fatal startup error. The presenter will be retired
	// immediately afterwards.
	Failure(message string)
	// Retire tears the presenter down. Called exactly once per run.
	Retire()
}

// Factory produces the presenter for one run.
type Factory func() Presenter
