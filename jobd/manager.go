package jobd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/axondata/go-jobd/eventloop"
	"github.com/axondata/go-jobd/manifest"
	"github.com/axondata/go-jobd/signames"
)

// Manager wires the FSM, registry, admission engine, state store, signal
// policy and RPC front into the single object a host program (cmd/jobd) or
// RPC handler drives. It owns the collaborators spec.md §1 names as
// external (Job instances live inside JobRegistry; EventDriver, RpcChannel,
// ManifestParser and signal-name mapping are the eventloop, rpcwire,
// manifest and signames packages respectively).
type Manager struct {
	domain Domain
	loop   *eventloop.Loop

	store     *StateStore
	registry  *JobRegistry
	admission *ManifestAdmission
	fsm       *ManagerFSM
	signals   *SignalPolicy
	rpc       *RpcFront
}

// NewManager constructs a Manager in Unconfigured for domain. It opens the
// state store immediately (StateStore.Get must answer correctly even
// before start_running, since RPC handlers and tests may consult overrides
// ahead of a full start) but does not bind the RPC socket or install
// signal handlers until StartRequested fires.
func NewManager(ctx context.Context, domain Domain) (*Manager, error) {
	store, err := NewStateStore(domain.StateDir)
	if err != nil {
		return nil, fmt.Errorf("jobd: manager init: %w", err)
	}

	loop := eventloop.New(ctx)
	registry := NewJobRegistry()
	rpc := NewRpcFront(loop, domain.StateDir)

	m := &Manager{
		domain:   domain,
		loop:     loop,
		store:    store,
		registry: registry,
		rpc:      rpc,
	}

	m.fsm = NewManagerFSM(registry, loop, Actions{
		StartRunning:          m.actionStartRunning,
		PromotePending:        registry.PromoteAll,
		EnterGracefulShutdown: m.actionEnterGracefulShutdown,
		EnterFinished:         m.actionEnterFinished,
	})
	m.admission = NewManifestAdmission(registry, store, loop, m.fsm)
	m.signals = NewSignalPolicy(loop, m.fsm, registry)

	// delete_job is pre-registered unconditionally, independent of the
	// RPC socket's bound/unbound state, because a job invokes it
	// directly through the EventDriver rather than by dialing its own
	// control socket (§4.3's lazy-deletion note).
	loop.RegisterIPCMethod("delete_job", func(arg string) { registry.DeleteJob(arg) })

	return m, nil
}

func (m *Manager) actionStartRunning() {
	m.signals.Install()
	if err := m.rpc.Bind(); err != nil {
		panicProgrammerError("Manager.actionStartRunning", err.Error())
	}
	for _, path := range m.domain.LoadPaths {
		m.admission.LoadAll(path, false, false)
	}
	m.registry.PromoteAll()
}

func (m *Manager) actionEnterGracefulShutdown() {
	if err := m.rpc.Unbind(); err != nil {
		log.Warn().Err(err).Msg("jobd: rpc front unbind failed")
	}
	if err := m.registry.UnloadAll(); err != nil {
		log.Error().Err(err).Msg("jobd: unload_all reported failures")
	}
}

func (m *Manager) actionEnterFinished() {
	log.Info().Str("domain", m.domain.Name).Msg("jobd: all jobs have exited")
}

// StartRunning fires StartRequested.
func (m *Manager) StartRunning() {
	m.fsm.Fire(StartRequested)
}

// StopRunning fires StopRequested.
func (m *Manager) StopRunning() {
	m.fsm.Fire(StopRequested)
}

// RunMainLoop requires Running and repeatedly ticks until Finished.
func (m *Manager) RunMainLoop() {
	if m.fsm.State() != Running {
		panicProgrammerError("Manager.RunMainLoop", "called outside Running")
	}
	for m.fsm.HandleEvent(0) {
	}
}

// RunOnce requires Running; a single tick; returns false iff the FSM has
// reached Finished.
func (m *Manager) RunOnce(timeout time.Duration) bool {
	if m.fsm.State() != Running {
		panicProgrammerError("Manager.RunOnce", "called outside Running")
	}
	return m.fsm.HandleEvent(timeout)
}

// State returns the FSM's current state, mainly for tests and diagnostics.
func (m *Manager) State() State {
	return m.fsm.State()
}

// LoadManifest admits path (a file), per load_manifest.
func (m *Manager) LoadManifest(path string, overrideDisabled, forceLoad bool) bool {
	return m.admission.LoadManifestPath(path, overrideDisabled, forceLoad)
}

// LoadManifestDocument admits an already-parsed document, the in-memory
// form of load_manifest used by tests and by LoadAll's directory-mode
// iteration.
func (m *Manager) LoadManifestDocument(doc manifest.Document, overrideDisabled, forceLoad bool) bool {
	return m.admission.LoadManifestDocument(doc, overrideDisabled, forceLoad)
}

// LoadAll admits path (file or directory), per load_all.
func (m *Manager) LoadAll(path string, overrideDisabled, forceLoad bool) bool {
	return m.admission.LoadAll(path, overrideDisabled, forceLoad)
}

// Unload delegates to JobRegistry.Unload for label.
func (m *Manager) Unload(label string, overrideDisabled, force bool) bool {
	return m.registry.Unload(label, overrideDisabled, force, m.store)
}

// List snapshots the active job set.
func (m *Manager) List() []ListEntry {
	return m.registry.List()
}

// Kill delegates to the named active job, rejecting unknown signals and
// unknown labels.
func (m *Manager) Kill(label, signameOrNumber string) bool {
	j, ok := m.registry.Get(label)
	if !ok {
		log.Info().Str("label", label).Msg("jobd: kill of unknown label")
		return false
	}
	sig, ok := signames.ByName(signameOrNumber)
	if !ok {
		log.Info().Str("signal", signameOrNumber).Msg("jobd: kill with unknown signal")
		return false
	}
	if err := j.Kill(sig); err != nil {
		log.Error().Err(err).Str("label", label).Msg("jobd: kill failed")
		return false
	}
	return true
}

// Dump delegates to the named job's diagnostic snapshot.
func (m *Manager) Dump(label string) (map[string]any, bool) {
	j, ok := m.registry.Get(label)
	if !ok {
		return nil, false
	}
	return j.Dump(), true
}

// ClearStateFile resets the override document to its default value. It is
// test-only and panics with ProgrammerError outside the jobdtest build.
func (m *Manager) ClearStateFile() {
	m.store.Clear()
}

// Shutdown force-unloads every active job and unbinds the RPC socket,
// matching "every active job is force-unloaded at manager destruction even
// on exceptional paths" (§5).
func (m *Manager) Shutdown() {
	m.registry.ForceUnloadAll()
	_ = m.rpc.Unbind()
	m.loop.Close()
}
