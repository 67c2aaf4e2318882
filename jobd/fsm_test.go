package jobd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axondata/go-jobd/eventloop"
)

func TestManagerFSMUnconfiguredToFinishedOnStop(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()
	f := NewManagerFSM(reg, loop, Actions{})

	f.Fire(StopRequested)
	require.Equal(t, Finished, f.State())
}

func TestManagerFSMUnconfiguredToRunningInvokesStartRunning(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()

	called := false
	f := NewManagerFSM(reg, loop, Actions{StartRunning: func() { called = true }})

	f.Fire(StartRequested)
	require.Equal(t, Running, f.State())
	require.True(t, called)
}

func TestManagerFSMRunningSelfTransitionGuardedByPending(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()

	promoted := false
	f := NewManagerFSM(reg, loop, Actions{
		StartRunning:   func() {},
		PromotePending: func() { promoted = true },
	})
	f.Fire(StartRequested)
	require.Equal(t, Running, f.State())

	// No pending jobs: guard fails, no-op.
	f.Fire(StartRequested)
	require.False(t, promoted)

	reg.addPending("a", nil)
	f.Fire(StartRequested)
	require.True(t, promoted)
	require.Equal(t, Running, f.State())
}

func TestManagerFSMRunningToGracefulShutdown(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()

	shutdownCalled := false
	f := NewManagerFSM(reg, loop, Actions{
		StartRunning:          func() {},
		EnterGracefulShutdown: func() { shutdownCalled = true },
	})
	f.Fire(StartRequested)
	f.Fire(StopRequested)

	require.Equal(t, GracefulShutdown, f.State())
	require.True(t, shutdownCalled)
}

func TestManagerFSMGracefulShutdownForcedStopSkipsEnterFinished(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()

	finishedCalled := false
	f := NewManagerFSM(reg, loop, Actions{
		StartRunning:          func() {},
		EnterGracefulShutdown: func() {},
		EnterFinished:         func() { finishedCalled = true },
	})
	f.Fire(StartRequested)
	f.Fire(StopRequested)
	require.Equal(t, GracefulShutdown, f.State())

	f.Fire(StopRequested)
	require.Equal(t, Finished, f.State())
	require.False(t, finishedCalled)
}

func TestManagerFSMGracefulShutdownAllJobsExitedCallsEnterFinished(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()

	finishedCalled := false
	f := NewManagerFSM(reg, loop, Actions{
		StartRunning:          func() {},
		EnterGracefulShutdown: func() {},
		EnterFinished:         func() { finishedCalled = true },
	})
	f.Fire(StartRequested)
	f.Fire(StopRequested)

	f.Fire(AllJobsExited)
	require.Equal(t, Finished, f.State())
	require.True(t, finishedCalled)
}

func TestManagerFSMHandleEventPanicsInUnconfigured(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()
	f := NewManagerFSM(reg, loop, Actions{})

	require.Panics(t, func() { f.HandleEvent(0) })
}

func TestManagerFSMHandleEventFinishedReturnsFalse(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()
	f := NewManagerFSM(reg, loop, Actions{})
	f.Fire(StopRequested)
	require.Equal(t, Finished, f.State())

	require.False(t, f.HandleEvent(0))
}

func TestManagerFSMHandleEventGracefulShutdownEmptyActiveReachesFinished(t *testing.T) {
	loop := eventloop.New(context.Background())
	defer loop.Close()
	reg := NewJobRegistry()
	f := NewManagerFSM(reg, loop, Actions{
		StartRunning:          func() {},
		EnterGracefulShutdown: func() {},
	})
	f.Fire(StartRequested)
	f.Fire(StopRequested)
	require.True(t, reg.ActiveEmpty())

	require.True(t, f.HandleEvent(time.Second))
	require.Equal(t, Finished, f.State())
}
