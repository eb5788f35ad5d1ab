// Package boot runs the startup sequence: reserve ports, bring every
// registered subsystem up in order while feeding the splash, then hand the
// screen to the main surface.
package boot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shellboot/internal/reporting"
	"shellboot/internal/splash"
	"shellboot/internal/surface"
	"shellboot/pkg/logging"
)

const logSubsystem = "Sequencer"

// PortAllocator reserves the listen ports the subsystems bind to. It runs
// exactly once, before any descriptor.
type PortAllocator interface {
	Initialize(ctx context.Context) error
}

// Collaborators are the external parties a run needs. Bus may be nil when
// no descriptor relays supervised-process progress.
type Collaborators struct {
	Ports  PortAllocator
	Splash splash.Factory
	Bus    *reporting.Bus
}

// Sequencer drives one startup run from idle to revealed (or aborted). Both
// outcomes are terminal; a Sequencer is not reusable.
type Sequencer struct {
	registry *Registry
	collab   Collaborators

	mu          sync.Mutex
	phase       Phase
	presenter   splash.Presenter
	retired     bool
	started     bool
	lastPercent float64
}

// New validates the collaborator set against the registry.
func New(registry *Registry, collab Collaborators) (*Sequencer, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if collab.Ports == nil {
		return nil, fmt.Errorf("port allocator is required")
	}
	if collab.Splash == nil {
		return nil, fmt.Errorf("splash factory is required")
	}
	if collab.Bus == nil {
		for _, d := range registry.Descriptors() {
			if d.ProgressService != "" {
				return nil, fmt.Errorf("descriptor %q relays progress for %q but no bus was provided", d.ID, d.ProgressService)
			}
		}
	}
	return &Sequencer{registry: registry, collab: collab, phase: PhaseIdle}, nil
}

// Run executes the full sequence and blocks until it is revealed or
// aborted. The sequencer imposes no timeouts of its own: descriptors and
// the main surface may take as long as they need. ctx is threaded to every
// blocking call but Run never cancels it.
func (s *Sequencer) Run(ctx context.Context, surfaceFactory surface.Factory) Result {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return failureResult(ErrAlreadyRan, StageSequencer, nil, 0)
	}
	s.started = true
	s.presenter = s.collab.Splash()
	s.mu.Unlock()

	start := time.Now()
	var timings []StageTiming

	s.push(0, "starting")

	s.setPhase(PhasePortAllocating)
	logging.Debug(logSubsystem, "Reserving ports")
	stageStart := time.Now()
	if err := s.collab.Ports.Initialize(ctx); err != nil {
		timings = append(timings, StageTiming{Stage: StagePortAllocation, Duration: time.Since(stageStart), Failed: true})
		return s.abort(fmt.Errorf("%w: port allocation: %v", ErrPrecondition, err), StagePortAllocation, timings, time.Since(start))
	}
	timings = append(timings, StageTiming{Stage: StagePortAllocation, Duration: time.Since(stageStart)})

	total := s.registry.TotalWeight()
	credited := 0.0

	for _, desc := range s.registry.Descriptors() {
		s.setPhase(PhaseRunningDescriptor)
		base := 100 * credited / total
		share := 100 * desc.Weight / total
		s.push(base, "starting "+desc.DisplayName)
		logging.Info(logSubsystem, "Starting %s (weight %v, required %v)", desc.ID, desc.Weight, desc.Required)

		detach := func() {}
		if desc.ProgressService != "" {
			detach = AttachRelay(s.collab.Bus, desc.ProgressService, base, share, s.push)
		}

		stageStart = time.Now()
		err := desc.Init(ctx)
		detach()
		timings = append(timings, StageTiming{Stage: desc.ID, Duration: time.Since(stageStart), Failed: err != nil})

		if err != nil {
			if desc.Required {
				return s.abort(fmt.Errorf("%w: %s: %v", ErrRequiredService, desc.ID, err), desc.ID, timings, time.Since(start))
			}
			logging.Warn(logSubsystem, "Optional service %s failed, continuing: %v", desc.ID, err)
		}

		// Failed optional services still credit their weight so the bar
		// keeps advancing toward 100.
		credited += desc.Weight
		msg := desc.DisplayName + " ready"
		if err != nil {
			msg = desc.DisplayName + " skipped"
		}
		s.push(100*credited/total, msg)
	}

	s.setPhase(PhaseAwaitingMainSurface)
	stageStart = time.Now()
	surf, err := surfaceFactory(false)
	if err != nil {
		timings = append(timings, StageTiming{Stage: StageMainSurface, Duration: time.Since(stageStart), Failed: true})
		return s.abort(fmt.Errorf("%w: main surface: %v", ErrRequiredService, err), StageMainSurface, timings, time.Since(start))
	}

	// No timeout here either: a surface that never reports ready holds the
	// run open unless the caller's context ends.
	select {
	case <-surf.Ready():
	case <-ctx.Done():
		timings = append(timings, StageTiming{Stage: StageMainSurface, Duration: time.Since(stageStart), Failed: true})
		return s.abort(fmt.Errorf("%w: main surface: %v", ErrRequiredService, ctx.Err()), StageMainSurface, timings, time.Since(start))
	}
	timings = append(timings, StageTiming{Stage: StageMainSurface, Duration: time.Since(stageStart)})

	s.retireSplash()
	s.setPhase(PhaseRevealed)
	surf.Show()

	totalDur := time.Since(start)
	for _, t := range timings {
		logging.Debug(logSubsystem, "Stage %s took %s", t.Stage, t.Duration)
	}
	logging.Info(logSubsystem, "Startup complete in %s", totalDur)
	return successResult(timings, totalDur)
}

// Cleanup force-retires the splash. Safe to call at any point, including
// after Run has already retired it.
func (s *Sequencer) Cleanup() {
	s.retireSplash()
}

// Phase reports the sequencer's current position in the run.
func (s *Sequencer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Sequencer) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// push forwards progress to the splash, clamped so the reported percentage
// never moves backwards even when relay updates race the descriptor loop.
func (s *Sequencer) push(percent float64, status string) {
	s.mu.Lock()
	if percent < s.lastPercent {
		percent = s.lastPercent
	} else {
		s.lastPercent = percent
	}
	p := s.presenter
	s.mu.Unlock()
	if p != nil {
		p.Progress(percent, status)
	}
}

func (s *Sequencer) abort(err error, stage string, timings []StageTiming, total time.Duration) Result {
	logging.Error(logSubsystem, err, "Startup aborted at stage %s", stage)
	s.mu.Lock()
	p := s.presenter
	s.mu.Unlock()
	if p != nil {
		p.Failure(err.Error())
	}
	s.retireSplash()
	s.setPhase(PhaseAborted)
	return failureResult(err, stage, timings, total)
}

func (s *Sequencer) retireSplash() {
	s.mu.Lock()
	p := s.presenter
	if p == nil || s.retired {
		// No presenter yet (Cleanup before Run) or already retired. The
		// latch belongs to the presenter, so it must not trip early.
		s.mu.Unlock()
		return
	}
	s.retired = true
	s.mu.Unlock()
	p.Retire()
}
