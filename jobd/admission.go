package jobd

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/axondata/go-jobd/eventloop"
	"github.com/axondata/go-jobd/job"
	"github.com/axondata/go-jobd/manifest"
)

// ManifestAdmission implements load_manifest's admission decision
// procedure (§4.2): the eight ordered steps that decide whether a parsed
// manifest becomes a PendingJob.
type ManifestAdmission struct {
	registry *JobRegistry
	store    *StateStore
	loop     *eventloop.Loop
	fsm      *ManagerFSM
}

// NewManifestAdmission binds the admission engine to its collaborators.
func NewManifestAdmission(registry *JobRegistry, store *StateStore, loop *eventloop.Loop, fsm *ManagerFSM) *ManifestAdmission {
	return &ManifestAdmission{registry: registry, store: store, loop: loop, fsm: fsm}
}

// LoadManifestPath parses path and admits it, implementing load_manifest
// for the "source is a path" form.
func (a *ManifestAdmission) LoadManifestPath(path string, overrideDisabled, forceLoad bool) bool {
	if a.fsm.State() == GracefulShutdown {
		log.Info().Str("path", path).Msg("jobd: refusing manifest admission during shutdown")
		return false
	}

	doc, err := manifest.ParseFile(path)
	if err != nil {
		log.Info().Err(err).Str("path", path).Msg("jobd: manifest parse failed")
		return false
	}
	return a.admit(doc, overrideDisabled, forceLoad)
}

// LoadManifestDocument admits an already-parsed Document, implementing
// load_manifest for the "source is a parsed document" form — used by
// LoadAll's directory-mode iteration and by tests that construct a
// Document in memory.
func (a *ManifestAdmission) LoadManifestDocument(doc manifest.Document, overrideDisabled, forceLoad bool) bool {
	if a.fsm.State() == GracefulShutdown {
		log.Info().Str("path", doc.Path).Msg("jobd: refusing manifest admission during shutdown")
		return false
	}
	return a.admit(doc, overrideDisabled, forceLoad)
}

// admit runs steps 3-8 of §4.2 once the shutdown guard (step 1) and parse
// (step 2, handled by the caller) have already passed.
func (a *ManifestAdmission) admit(doc manifest.Document, overrideDisabled, forceLoad bool) bool {
	m, err := doc.Validate()
	if err != nil {
		log.Info().Err(err).Str("path", doc.Path).Msg("jobd: manifest schema validation failed")
		return false
	}

	label := m.Label
	if a.registry.inPendingOrActive(label) {
		log.Info().Str("label", label).Msg("jobd: admission rejected, duplicate label")
		return false
	}

	if overrideDisabled {
		a.store.OverrideEnabled(label, true)
	}

	effective := a.store.EffectiveEnabled(label, m.Disabled)
	if !effective && !forceLoad {
		reason := "manifest-disabled"
		if _, hasOverride := a.store.Get().Overrides[label]; hasOverride {
			reason = "state-disabled"
		}
		log.Info().Str("label", label).Str("reason", reason).Msg("jobd: admission rejected, not enabled")
		return false
	}

	j := job.New(m, a.loop, a.store)
	a.registry.addPending(label, j)
	return true
}

// LoadAll implements load_all's directory mode: if path is a directory,
// its direct (non-recursive) entries are each admitted independently,
// unparseable files are logged and skipped, and the batch continues
// regardless. If path is a plain file it is admitted directly. If path
// does not exist, a warning is logged and false is returned.
//
// The return value is, confusingly, true if ANY sub-load failed rather
// than true on overall success — this mirrors the inverted "error" return
// of the system this was modeled on and is preserved here for fidelity
// rather than cleaned up; see the design notes for why.
func (a *ManifestAdmission) LoadAll(path string, overrideDisabled, forceLoad bool) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("jobd: load path does not exist")
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("jobd: load path stat failed")
		return false
	}

	if !info.IsDir() {
		return !a.LoadManifestPath(path, overrideDisabled, forceLoad)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("jobd: load path readdir failed")
		return true
	}

	anyFailed := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(path, entry.Name())
		if !a.LoadManifestPath(full, overrideDisabled, forceLoad) {
			anyFailed = true
		}
	}
	return anyFailed
}
