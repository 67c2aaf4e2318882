package jobd

import (
	"fmt"
	"net"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/axondata/go-jobd/eventloop"
	"github.com/axondata/go-jobd/rpcwire"
)

// rpcSocketBacklog is the fixed backlog §6 mandates for the control
// socket.
const rpcSocketBacklog = 1024

// RpcFront binds the manager's control socket on entry to Running and
// dispatches decoded frames to methods registered on the EventDriver.
// delete_job is the only method the core itself relies on; everything
// else a caller registers is "surrounding code" per §4.6.
type RpcFront struct {
	loop    *eventloop.Loop
	sockPath string

	channel *rpcwire.Channel
}

// NewRpcFront binds the front to <statedir>/rpc.sock without opening the
// socket yet; Bind does that on ManagerFSM's Unconfigured -> Running
// action.
func NewRpcFront(loop *eventloop.Loop, statedir string) *RpcFront {
	return &RpcFront{
		loop:     loop,
		sockPath: filepath.Join(statedir, "rpc.sock"),
	}
}

// Bind opens the control socket and registers it with the EventDriver.
// Invariant 4 requires this to have happened by the time the FSM reports
// Running.
func (f *RpcFront) Bind() error {
	ch, err := rpcwire.BindAndListen(f.sockPath, rpcSocketBacklog)
	if err != nil {
		return fmt.Errorf("jobd: rpc front bind: %w", err)
	}
	f.channel = ch
	f.loop.OnReadable(ch.Listener(), f.handleConn)
	return nil
}

// Unbind closes the socket. §4.6 requires this to happen before
// unload_all runs on entry to GracefulShutdown, and at manager
// destruction; both call sites hold that ordering, not this method.
func (f *RpcFront) Unbind() error {
	if f.channel == nil {
		return nil
	}
	err := f.channel.UnbindAndStopListening()
	f.channel = nil
	return err
}

// Bound reports whether the control socket is currently listening,
// backing invariant 4's "not bound in Unconfigured/Finished" check.
func (f *RpcFront) Bound() bool {
	return f.channel != nil
}

func (f *RpcFront) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	frame, err := rpcwire.Decode(conn)
	if err != nil {
		log.Debug().Err(err).Msg("jobd: rpc decode failed")
		return
	}

	cb, ok := f.loop.IPCMethod(frame.Method)
	if !ok {
		_ = rpcwire.Reply(conn, fmt.Errorf("unknown method %q", frame.Method))
		return
	}

	cb(frame.Arg)
	_ = rpcwire.Reply(conn, nil)
}
