package jobd

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/axondata/go-jobd/job"
)

// JobRegistry holds the two disjoint label-keyed maps, pending and active,
// and the operations that move jobs between them. It is owned exclusively
// by the driver thread: every method here runs from inside a ManagerFSM
// tick, never concurrently with itself.
type JobRegistry struct {
	mu      sync.Mutex
	pending map[string]*job.Job
	active  map[string]*job.Job
}

// NewJobRegistry returns an empty registry, matching invariant 7
// (Unconfigured has no ActiveJob and no PendingJob).
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		pending: make(map[string]*job.Job),
		active:  make(map[string]*job.Job),
	}
}

// ListLabels is a diagnostic helper that does not appear in spec.md
// directly; it returns the labels of the active jobs.
func (r *JobRegistry) ListLabels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, 0, len(r.active))
	for l := range r.active {
		labels = append(labels, l)
	}
	return labels
}

// inPendingOrActive reports whether label already exists anywhere in the
// registry, the duplicate check admission consults at step 4.
func (r *JobRegistry) inPendingOrActive(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[label]; ok {
		return true
	}
	_, ok := r.active[label]
	return ok
}

// addPending inserts a newly admitted job into pending. Callers must have
// already checked inPendingOrActive.
func (r *JobRegistry) addPending(label string, j *job.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[label] = j
}

// PromoteAll moves every pending job into active and fires Bootstrap on
// each, clearing pending in full. A label already present in active when
// its pending counterpart is promoted is an invariant violation: label
// uniqueness across pending ∪ active was supposed to have been enforced at
// admission time, so this can only mean a caller bypassed admission.
func (r *JobRegistry) PromoteAll() {
	r.mu.Lock()
	toPromote := r.pending
	r.pending = make(map[string]*job.Job)
	r.mu.Unlock()

	for label, j := range toPromote {
		r.mu.Lock()
		if _, exists := r.active[label]; exists {
			r.mu.Unlock()
			panicProgrammerError("JobRegistry.PromoteAll", fmt.Sprintf("label %q already active", label))
		}
		r.active[label] = j
		r.mu.Unlock()

		if err := j.Bootstrap(); err != nil {
			log.Error().Err(err).Str("label", label).Msg("jobd: job failed to bootstrap")
		}
	}
}

// PendingNonEmpty reports whether any job is currently waiting in pending,
// consulted by ManagerFSM's Running -> Running self-transition guard.
func (r *JobRegistry) PendingNonEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) > 0
}

// Exists is a membership test against active only, per §4.3.
func (r *JobRegistry) Exists(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[label]
	return ok
}

// Get returns the active job for label, or false if absent. The returned
// reference must not outlive the registry entry — callers that need to
// hold onto state should copy it via Dump.
func (r *JobRegistry) Get(label string) (*job.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.active[label]
	return j, ok
}

// ListEntry is one row of List(), matching §4.3's {Label, PID, LastExitStatus} tuple.
type ListEntry struct {
	Label          string
	PID            string
	LastExitStatus int
}

// List snapshots the active job set as an array of tuples.
func (r *JobRegistry) List() []ListEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]ListEntry, 0, len(r.active))
	for label, j := range r.active {
		pid := "-"
		if p := j.PID(); p != 0 {
			pid = strconv.Itoa(p)
		}
		entries = append(entries, ListEntry{
			Label:          label,
			PID:            pid,
			LastExitStatus: j.LastExitStatus(),
		})
	}
	return entries
}

// Unload delegates to the named active job's Unload(force), optionally
// persisting an override_disabled = false decision first so the job does
// not respawn under KeepAlive once it drains.
func (r *JobRegistry) Unload(label string, overrideDisabled bool, force bool, store *StateStore) bool {
	j, ok := r.Get(label)
	if !ok {
		log.Info().Str("label", label).Msg("jobd: unload of unknown label")
		return false
	}

	if overrideDisabled {
		store.OverrideEnabled(label, false)
	}

	if err := j.Unload(force); err != nil {
		log.Error().Err(err).Str("label", label).Msg("jobd: job failed to unload")
		return false
	}
	return true
}

// ForceUnloadAll force-unloads every active job, ignoring errors, then
// clears active. Used on the double-shutdown-signal fatal path and at
// manager destruction.
func (r *JobRegistry) ForceUnloadAll() {
	r.mu.Lock()
	jobs := make([]*job.Job, 0, len(r.active))
	for _, j := range r.active {
		jobs = append(jobs, j)
	}
	r.active = make(map[string]*job.Job)
	r.mu.Unlock()

	for _, j := range jobs {
		j.ForceUnload()
	}
}

// UnloadAll asks every active job whose state is not yet Unloaded and whose
// UnloadRequested flag is not already set to unload(force=true), per
// §4.3. Per-job failures are collected into a CollaboratorFailure and
// logged but never abort the batch.
func (r *JobRegistry) UnloadAll() error {
	r.mu.Lock()
	jobs := make(map[string]*job.Job, len(r.active))
	for label, j := range r.active {
		jobs[label] = j
	}
	r.mu.Unlock()

	failure := &CollaboratorFailure{Failures: make(map[string]error)}
	for label, j := range jobs {
		if j.State() == job.Unloaded || j.UnloadRequested() {
			continue
		}
		if err := j.Unload(true); err != nil {
			log.Error().Err(err).Str("label", label).Msg("jobd: job failed to unload")
			failure.Failures[label] = err
		}
	}
	if failure.empty() {
		return nil
	}
	return failure
}

// ActiveEmpty reports whether the active map is currently empty, consulted by
// ManagerFSM's GracefulShutdown tick to decide whether to fire
// AllJobsExited.
func (r *JobRegistry) ActiveEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active) == 0
}

// DeleteJob is the handler bound to the delete_job IPC method: it removes
// label from active if present. This indirection exists because a job
// cannot safely delete itself from within its own exit callback; see
// job.Job.markUnloaded, which invokes this through the EventDriver rather
// than mutating the registry directly.
func (r *JobRegistry) DeleteJob(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, label)
}
