package jobd

import (
	"fmt"
)

// ProgrammerError is raised for invalid-state misuse that spec.md §7
// classifies as non-recoverable: run_main_loop outside Running,
// handleEvent in Unconfigured, clear_state_file in a non-test build, or
// promoting a label that is already active. It is panicked rather than
// returned, so callers that want to survive it must recover explicitly —
// cmd/jobd's top level is the only place that does.
type ProgrammerError struct {
	Op     string
	Detail string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("jobd: programmer error in %s: %s", e.Op, e.Detail)
}

func panicProgrammerError(op, detail string) {
	panic(&ProgrammerError{Op: op, Detail: detail})
}

// CollaboratorFailure aggregates per-label errors raised by the Job
// collaborator during unload_all; force_unload_all ignores errors and
// returns none.
// Individual failures are logged as they occur; the aggregate is returned
// so a caller can inspect which labels failed without the batch aborting.
type CollaboratorFailure struct {
	Failures map[string]error
}

func (e *CollaboratorFailure) Error() string {
	return fmt.Sprintf("jobd: %d job(s) failed to unload", len(e.Failures))
}

func (e *CollaboratorFailure) empty() bool {
	return len(e.Failures) == 0
}
