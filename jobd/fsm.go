package jobd

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/axondata/go-jobd/eventloop"
)

// State is one of ManagerFSM's four lifecycle states.
type State int

const (
	Unconfigured State = iota
	Running
	GracefulShutdown
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case GracefulShutdown:
		return "GracefulShutdown"
	case Finished:
		return "Finished"
	default:
		return "Unconfigured"
	}
}

// Trigger is one of the three events ManagerFSM's transition table reacts
// to.
type Trigger int

const (
	StartRequested Trigger = iota
	StopRequested
	AllJobsExited
)

func (t Trigger) String() string {
	switch t {
	case StartRequested:
		return "StartRequested"
	case StopRequested:
		return "StopRequested"
	default:
		return "AllJobsExited"
	}
}

// shutdownPollInterval bounds the GracefulShutdown tick's wait so exited
// jobs are reaped promptly even if no other event arrives (§4.1).
const shutdownPollInterval = 500 * time.Millisecond

// Actions are the side effects ManagerFSM's transition table invokes,
// supplied by Manager so the table itself stays free of Manager's other
// collaborators (SignalPolicy, RpcFront, ManifestAdmission).
type Actions struct {
	// StartRunning installs signal handlers, binds the RPC socket, loads
	// the domain's default manifests, and promotes+bootstraps all
	// pending jobs. Fired on Unconfigured -> Running.
	StartRunning func()

	// PromotePending promotes+bootstraps all pending jobs. Fired on the
	// Running -> Running self-transition.
	PromotePending func()

	// EnterGracefulShutdown stops accepting new RPC connections and
	// requests unload of every active job. Fired on Running ->
	// GracefulShutdown.
	EnterGracefulShutdown func()

	// EnterFinished logs "all jobs have exited". Fired only on the
	// GracefulShutdown -> Finished transition via AllJobsExited, not on
	// the forced-stop StopRequested path.
	EnterFinished func()
}

type transitionRow struct {
	from    State
	to      State
	trigger Trigger
	guard   func(f *ManagerFSM) bool
	action  func(a Actions)
}

// ManagerFSM is the four-state lifecycle driving the whole system (§4.1).
type ManagerFSM struct {
	mu       sync.Mutex
	state    State
	registry *JobRegistry
	loop     *eventloop.Loop
	actions  Actions
	table    []transitionRow
}

// NewManagerFSM constructs an FSM in Unconfigured, bound to the registry it
// consults for the Running self-transition guard and GracefulShutdown's
// empty check, the event loop it ticks against, and the action callbacks
// Manager supplies.
func NewManagerFSM(registry *JobRegistry, loop *eventloop.Loop, actions Actions) *ManagerFSM {
	f := &ManagerFSM{
		state:    Unconfigured,
		registry: registry,
		loop:     loop,
		actions:  actions,
	}
	f.table = []transitionRow{
		{from: Unconfigured, to: Finished, trigger: StopRequested, guard: alwaysTrue, action: nil},
		{from: Unconfigured, to: Running, trigger: StartRequested, guard: alwaysTrue,
			action: func(a Actions) {
				if a.StartRunning != nil {
					a.StartRunning()
				}
			}},
		{from: Running, to: Running, trigger: StartRequested, guard: (*ManagerFSM).pendingNonEmpty,
			action: func(a Actions) {
				if a.PromotePending != nil {
					a.PromotePending()
				}
			}},
		{from: Running, to: GracefulShutdown, trigger: StopRequested, guard: alwaysTrue,
			action: func(a Actions) {
				if a.EnterGracefulShutdown != nil {
					a.EnterGracefulShutdown()
				}
			}},
		{from: GracefulShutdown, to: Finished, trigger: StopRequested, guard: alwaysTrue, action: nil},
		{from: GracefulShutdown, to: Finished, trigger: AllJobsExited, guard: alwaysTrue,
			action: func(a Actions) {
				if a.EnterFinished != nil {
					a.EnterFinished()
				}
			}},
	}
	return f
}

func alwaysTrue(*ManagerFSM) bool { return true }

func (f *ManagerFSM) pendingNonEmpty() bool {
	return f.registry.PendingNonEmpty()
}

// State returns the FSM's current state.
func (f *ManagerFSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Fire applies trigger against the table row matching the current state.
// A state with no matching row, or whose guard fails, is a logged no-op.
// The matched row's action runs to completion, synchronously, before Fire
// returns — satisfying ordering guarantee 2 of §5.
func (f *ManagerFSM) Fire(trigger Trigger) {
	f.mu.Lock()
	cur := f.state
	f.mu.Unlock()

	for _, row := range f.table {
		if row.from != cur || row.trigger != trigger {
			continue
		}
		if row.guard != nil && !row.guard(f) {
			continue
		}

		f.mu.Lock()
		f.state = row.to
		f.mu.Unlock()

		log.Debug().Str("from", cur.String()).Str("to", row.to.String()).
			Str("trigger", trigger.String()).Msg("jobd: fsm transition")

		if row.action != nil {
			row.action(f.actions)
		}
		return
	}

	log.Debug().Str("state", cur.String()).Str("trigger", trigger.String()).
		Msg("jobd: fsm no-op, no matching transition")
}

// HandleEvent implements handleEvent(timeout)'s per-state tick semantics.
// It returns false only once the FSM has reached Finished.
func (f *ManagerFSM) HandleEvent(timeout time.Duration) bool {
	switch f.State() {
	case Unconfigured:
		panicProgrammerError("ManagerFSM.HandleEvent", "handleEvent called in Unconfigured")
		return false // unreachable, panicProgrammerError panics
	case Running:
		f.loop.Wait(timeout)
		return true
	case GracefulShutdown:
		if f.registry.ActiveEmpty() {
			f.Fire(AllJobsExited)
			return true
		}
		f.loop.Wait(shutdownPollInterval)
		return true
	default: // Finished
		return false
	}
}
