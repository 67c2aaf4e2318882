package jobd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axondata/go-jobd/eventloop"
	"github.com/axondata/go-jobd/job"
	"github.com/axondata/go-jobd/manifest"
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	store, err := NewStateStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestJobRegistryPromoteAllMovesLabelsAndClearsPending(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	store := newTestStore(t)

	reg := NewJobRegistry()
	j := job.New(manifest.Manifest{Label: "a"}, loop, store)
	reg.addPending("a", j)
	require.True(t, reg.PendingNonEmpty())

	reg.PromoteAll()

	require.False(t, reg.PendingNonEmpty())
	require.True(t, reg.Exists("a"))
}

func TestJobRegistryListReflectsActiveOnly(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	store := newTestStore(t)

	reg := NewJobRegistry()
	j := job.New(manifest.Manifest{Label: "a"}, loop, store)
	reg.addPending("a", j)
	require.Empty(t, reg.List())

	reg.PromoteAll()
	entries := reg.List()
	require.Len(t, entries, 1)
	require.Equal(t, "a", entries[0].Label)
	require.Equal(t, "-", entries[0].PID)
}

func TestJobRegistryUnloadUnknownLabelReturnsFalse(t *testing.T) {
	reg := NewJobRegistry()
	store := newTestStore(t)
	require.False(t, reg.Unload("missing", false, false, store))
}

func TestJobRegistryDeleteJobRemovesFromActive(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	store := newTestStore(t)

	reg := NewJobRegistry()
	j := job.New(manifest.Manifest{Label: "a"}, loop, store)
	reg.addPending("a", j)
	reg.PromoteAll()
	require.True(t, reg.Exists("a"))

	reg.DeleteJob("a")
	require.False(t, reg.Exists("a"))
}

func TestJobRegistryForceUnloadAllClearsActive(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	store := newTestStore(t)

	reg := NewJobRegistry()
	m := manifest.Manifest{Label: "a", Program: []string{"/bin/sh", "-c", "sleep 30"}}
	j := job.New(m, loop, store)
	reg.addPending("a", j)
	reg.PromoteAll()
	require.NoError(t, j.Bootstrap())

	reg.ForceUnloadAll()
	require.True(t, reg.ActiveEmpty())
}

func TestJobRegistryUnloadAllSkipsAlreadyUnloaded(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	store := newTestStore(t)
	loop.RegisterIPCMethod("delete_job", func(string) {})

	reg := NewJobRegistry()
	m := manifest.Manifest{Label: "a", Program: []string{"/bin/sh", "-c", "exit 0"}}
	j := job.New(m, loop, store)
	reg.addPending("a", j)
	reg.PromoteAll()
	require.NoError(t, j.Bootstrap())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && j.State() != job.Unloaded {
		loop.Wait(50 * time.Millisecond)
	}
	require.Equal(t, job.Unloaded, j.State())

	// active is only ever pruned by delete_job, so the entry survives
	// exit until DeleteJob runs; UnloadAll must not error against an
	// already-unloaded job still sitting in active.
	require.NoError(t, reg.UnloadAll())
}
