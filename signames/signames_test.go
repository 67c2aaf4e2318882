package signames

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestByNameVariants(t *testing.T) {
	sig, ok := ByName("TERM")
	require.True(t, ok)
	require.Equal(t, unix.SIGTERM, sig)

	sig, ok = ByName("SIGTERM")
	require.True(t, ok)
	require.Equal(t, unix.SIGTERM, sig)

	sig, ok = ByName("sigterm")
	require.True(t, ok)
	require.Equal(t, unix.SIGTERM, sig)
}

func TestByNameNumeric(t *testing.T) {
	sig, ok := ByName("9")
	require.True(t, ok)
	require.Equal(t, unix.SIGKILL, sig)
}

func TestByNameUnknown(t *testing.T) {
	_, ok := ByName("NOTASIGNAL")
	require.False(t, ok)

	_, ok = ByName("0")
	require.False(t, ok)

	_, ok = ByName("-5")
	require.False(t, ok)
}
