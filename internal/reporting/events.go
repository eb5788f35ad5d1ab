package reporting

import (
	"fmt"
	"time"
)

// Status is one of the closed set of phase labels a supervised process
// reports while it comes up.
type Status string

const (
	// StatusPortCheck means the process is verifying its listen port.
	StatusPortCheck Status = "port-check"
	// StatusInitializing means the process is running its own setup.
	StatusInitializing Status = "initializing"
	// StatusReady means the process accepted its port and is serving.
	StatusReady Status = "ready"
	// StatusExited means the process terminated normally.
	StatusExited Status = "exited"
	// StatusFailed means the process terminated with an error.
	StatusFailed Status = "failed"
)

// KnownStatus reports whether s is one of the phase labels the supervisor
// emits. Unknown labels from a child process are dropped at the parse
// boundary, never published.
func KnownStatus(s Status) bool {
	switch s {
	case StatusPortCheck, StatusInitializing, StatusReady, StatusExited, StatusFailed:
		return true
	}
	return false
}

// ProgressEvent is a point-in-time status push for one supervised service.
// Events are ephemeral: published on the bus, translated by whichever relay
// is attached for the service's startup window, then discarded.
type ProgressEvent struct {
	ServiceName string
	Status      Status
	Port        int    // optional; set once known
	Message     string // optional human-readable detail
	Err         error  // only on StatusFailed
	Timestamp   time.Time
}

// String returns a human-readable description of the event.
func (e ProgressEvent) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (error: %v)", e.ServiceName, e.Status, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.ServiceName, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.ServiceName, e.Status)
}

// NewProgressEvent creates an event stamped with the current time.
func NewProgressEvent(serviceName string, status Status) ProgressEvent {
	return ProgressEvent{
		ServiceName: serviceName,
		Status:      status,
		Timestamp:   time.Now(),
	}
}

// WithPort attaches the port the service is (or will be) bound to.
func (e ProgressEvent) WithPort(port int) ProgressEvent {
	e.Port = port
	return e
}

// WithMessage attaches a human-readable detail line.
func (e ProgressEvent) WithMessage(msg string) ProgressEvent {
	e.Message = msg
	return e
}

// WithError marks the event as a failure.
func (e ProgressEvent) WithError(err error) ProgressEvent {
	e.Err = err
	if err != nil {
		e.Status = StatusFailed
	}
	return e
}
