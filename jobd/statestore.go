package jobd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// StateStore is a transactional read/write of the StateDocument at
// <statedir>/state.json. It is the only component permitted to mutate that
// file (invariant 3), and every set() is durable — written via
// renameio's rename-into-place — before the call returns.
type StateStore struct {
	path string

	mu  sync.Mutex
	doc StateDocument
}

// NewStateStore opens (or initializes) the state file at
// <statedir>/state.json. If statedir does not exist and the process is not
// running as root, it is created; root is assumed to have a pre-provisioned
// system path, matching §4.4.
func NewStateStore(statedir string) (*StateStore, error) {
	if _, err := os.Stat(statedir); os.IsNotExist(err) {
		if os.Geteuid() != 0 {
			if mkErr := os.MkdirAll(statedir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("jobd: create state dir %s: %w", statedir, mkErr)
			}
		}
	}

	s := &StateStore{
		path: filepath.Join(statedir, "state.json"),
		doc:  defaultStateDocument(),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		// Missing file: default document, nothing to load.
	case err != nil:
		return nil, fmt.Errorf("jobd: read state file %s: %w", s.path, err)
	default:
		var doc StateDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("jobd: decode state file %s: %w", s.path, err)
		}
		s.doc = doc
	}

	return s, nil
}

// Get returns the current in-memory snapshot of the StateDocument.
func (s *StateStore) Get() StateDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Set atomically persists doc; a subsequent Get reflects it. A write
// failure is a PersistenceFailure, which §7 requires to propagate as a
// ProgrammerError rather than be silently dropped — the override policy is
// part of the correctness contract.
func (s *StateStore) Set(doc StateDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panicProgrammerError("StateStore.Set", fmt.Sprintf("marshal state document: %v", err))
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		panicProgrammerError("StateStore.Set", fmt.Sprintf("persist state file %s: %v", s.path, err))
	}
	s.doc = doc
}

// Clear resets the document to its default value. It is a test-only
// operation, gated by the jobdtest build tag; in a production build it
// raises a ProgrammerError instead of silently succeeding.
func (s *StateStore) Clear() {
	if !clearStateFileAllowed {
		panicProgrammerError("StateStore.Clear", "clear_state_file is test-only and this is not a test build")
	}
	s.Set(defaultStateDocument())
}

// OverrideEnabled loads the document, sets Overrides[label].Enabled = b,
// and stores it back — a convenience wrapper used both by admission's
// override_disabled path and by JobRegistry.unload's override_disabled
// path.
func (s *StateStore) OverrideEnabled(label string, enabled bool) {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()

	if doc.Overrides == nil {
		doc.Overrides = make(map[string]OverrideEntry)
	}
	doc.Overrides[label] = OverrideEntry{Enabled: enabled}
	s.Set(doc)
}

// EffectiveEnabled computes whether label should be running right now:
// the persisted override wins over the manifest's own Disabled field when
// present. It implements job.OverridePolicy, so a KeepAlive job honors an
// admin override made while it was already running.
func (s *StateStore) EffectiveEnabled(label string, manifestDisabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.doc.Overrides[label]; ok {
		return entry.Enabled
	}
	return !manifestDisabled
}
