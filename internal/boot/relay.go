package boot

import (
	"sync"

	"shellboot/internal/reporting"
)

// UpdateFunc receives a cumulative progress percentage and an optional
// human-readable message from a relay.
type UpdateFunc func(percent float64, message string)

// statusFraction maps a supervised process's phase to how much of the
// owning descriptor's weight it is worth. The relay is a reporting side
// channel only: it never declares the descriptor complete, that is the init
// procedure's job.
var statusFraction = map[reporting.Status]float64{
	reporting.StatusPortCheck:    0.05,
	reporting.StatusInitializing: 0.50,
	reporting.StatusReady:        1.00,
}

// AttachRelay subscribes a scoped relay for one descriptor's startup
// window. Matching events are translated into percentage updates in
// [baseOffset, baseOffset+weight] and forwarded to onUpdate. The returned
// detach must be called exactly once, before the next descriptor begins, so
// a later service's events cannot be misattributed. Detach is idempotent.
func AttachRelay(bus *reporting.Bus, serviceName string, baseOffset, weight float64, onUpdate UpdateFunc) (detach func()) {
	// Highest fraction seen; out-of-order phases never regress. The scanner
	// and exit-watcher goroutines can both publish for one service, so the
	// watermark needs its own lock.
	var mu sync.Mutex
	best := 0.0

	sub := bus.SubscribeFunc(reporting.FilterByService(serviceName), func(ev reporting.ProgressEvent) {
		fraction, ok := statusFraction[ev.Status]
		if !ok {
			return
		}
		mu.Lock()
		if fraction < best {
			mu.Unlock()
			return
		}
		best = fraction
		mu.Unlock()
		onUpdate(baseOffset+fraction*weight, ev.Message)
	})

	detached := false
	return func() {
		if detached || sub == nil {
			return
		}
		detached = true
		bus.Unsubscribe(sub)
	}
}
