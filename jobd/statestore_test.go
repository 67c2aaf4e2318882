package jobd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateStoreDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStateStore(dir)
	require.NoError(t, err)

	doc := store.Get()
	require.Equal(t, 1, doc.SchemaVersion)
	require.Empty(t, doc.Overrides)
}

func TestStateStoreOverrideEnabledPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStateStore(dir)
	require.NoError(t, err)

	store.OverrideEnabled("a", true)
	require.True(t, store.Get().Overrides["a"].Enabled)

	reopened, err := NewStateStore(dir)
	require.NoError(t, err)
	require.True(t, reopened.Get().Overrides["a"].Enabled)
}

func TestStateStoreEffectiveEnabled(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStateStore(dir)
	require.NoError(t, err)

	require.True(t, store.EffectiveEnabled("a", false))
	require.False(t, store.EffectiveEnabled("a", true))

	store.OverrideEnabled("a", false)
	require.False(t, store.EffectiveEnabled("a", false))

	store.OverrideEnabled("a", true)
	require.True(t, store.EffectiveEnabled("a", true))
}

func TestStateStoreClearPanicsOutsideTestBuild(t *testing.T) {
	if clearStateFileAllowed {
		t.Skip("built with jobdtest, Clear is expected to succeed")
	}
	dir := t.TempDir()
	store, err := NewStateStore(dir)
	require.NoError(t, err)

	require.Panics(t, func() { store.Clear() })
}

func TestStateStoreCreatesStateDirWhenMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "statedir")
	_, err := NewStateStore(dir)
	require.NoError(t, err)
}
