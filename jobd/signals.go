package jobd

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/axondata/go-jobd/eventloop"
)

// SignalPolicy installs the manager's signal handling on entry to Running:
// SIGPIPE is ignored (logged once per receipt, since a broken RPC-client
// pipe is routine), and SIGINT/SIGTERM are dispatched to handle_shutdown
// (§4.5).
type SignalPolicy struct {
	loop *eventloop.Loop
	fsm  *ManagerFSM
	reg  *JobRegistry

	installOnce sync.Once
}

// NewSignalPolicy binds the policy to the loop it registers signal
// callbacks on and the FSM whose current state determines
// handle_shutdown's dispatch.
func NewSignalPolicy(loop *eventloop.Loop, fsm *ManagerFSM, reg *JobRegistry) *SignalPolicy {
	return &SignalPolicy{loop: loop, fsm: fsm, reg: reg}
}

// Install registers the pipe-broken and interrupt/terminate handlers.
// Idempotent: only the first call has any effect, matching "installed on
// entry to Running" being a one-time action even if StartRequested fires
// its Running -> Running self-transition repeatedly.
func (p *SignalPolicy) Install() {
	p.installOnce.Do(func() {
		p.loop.OnSignal(unix.SIGPIPE, func(os.Signal) {
			log.Info().Msg("jobd: ignoring SIGPIPE")
		})
		p.loop.OnSignal(unix.SIGINT, func(os.Signal) { p.handleShutdown("SIGINT") })
		p.loop.OnSignal(unix.SIGTERM, func(os.Signal) { p.handleShutdown("SIGTERM") })
	})
}

// handleShutdown dispatches by the FSM's current state, per §4.5.
func (p *SignalPolicy) handleShutdown(name string) {
	switch p.fsm.State() {
	case Unconfigured:
		p.fsm.Fire(StopRequested)
	case Running:
		log.Info().Str("signal", name).Msg("jobd: shutting down gracefully")
		p.fsm.Fire(StopRequested)
	case GracefulShutdown:
		log.Warn().Str("signal", name).Msg("jobd: second shutdown signal, immediately unloading")
		p.reg.ForceUnloadAll()
		p.fsm.Fire(AllJobsExited)
	default: // Finished
		log.Info().Str("signal", name).Msg("jobd: shutdown signal received in Finished, ignoring")
	}
}
