package boot

import (
	"errors"
	"time"
)

// StagePortAllocation is the stage identifier reported when the port
// allocator fails before any descriptor has run.
const StagePortAllocation = "port-allocation"

// StageMainSurface is the stage identifier reported when the main surface
// cannot be created or never signals readiness.
const StageMainSurface = "main-surface"

// StageSequencer is the stage identifier for failures of the sequencer
// itself, before any stage has started.
const StageSequencer = "sequencer"

// Error kinds for the startup failure taxonomy. Optional-service failures
// never escape Run, so they have no sentinel.
var (
	// ErrPrecondition marks a failure before the first descriptor (the port
	// allocator). Always fatal.
	ErrPrecondition = errors.New("startup precondition failed")
	// ErrRequiredService marks a required descriptor's init failure. Fatal,
	// aborts the run.
	ErrRequiredService = errors.New("required service failed")
	// ErrAlreadyRan marks a second Run call on the same sequencer. Both
	// terminal phases are final; a new run needs a new sequencer.
	ErrAlreadyRan = errors.New("sequencer already ran")
)

// Phase is the sequencer's position in the failure-policy state machine.
// Revealed and Aborted are terminal; there is no retry transition.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhasePortAllocating      Phase = "port-allocating"
	PhaseRunningDescriptor   Phase = "running-descriptor"
	PhaseAwaitingMainSurface Phase = "awaiting-main-surface"
	PhaseRevealed            Phase = "revealed"
	PhaseAborted             Phase = "aborted"
)

// StageTiming records how long one stage of the sequence took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
	Failed   bool
}

// Result is the terminal outcome of one orchestration run.
type Result struct {
	Success bool
	// Err is set only when Success is false and wraps ErrPrecondition or
	// ErrRequiredService.
	Err error
	// Stage identifies the descriptor (or pseudo-stage) that was executing
	// when the run failed. Empty on success.
	Stage string
	// Timings holds per-stage wall times in execution order, including
	// stages that failed.
	Timings []StageTiming
	// TotalDuration is the wall time of the whole run.
	TotalDuration time.Duration
}

func successResult(timings []StageTiming, total time.Duration) Result {
	return Result{Success: true, Timings: timings, TotalDuration: total}
}

func failureResult(err error, stage string, timings []StageTiming, total time.Duration) Result {
	return Result{Err: err, Stage: stage, Timings: timings, TotalDuration: total}
}
