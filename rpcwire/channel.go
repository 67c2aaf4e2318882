// Package rpcwire implements the RpcChannel collaborator: a UNIX-domain
// stream socket carrying one newline-delimited "method arg" frame per
// connection. Authentication of RPC clients is explicitly out of scope
// (spec.md §1 Non-goals) — any local process that can open the socket path
// may call any registered method.
package rpcwire

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Channel binds and serves the manager's control socket.
type Channel struct {
	ln net.Listener
}

// BindAndListen creates a UNIX-domain stream socket at path with the given
// backlog and starts listening. Any stale socket file left over from a
// previous run is removed first. The backlog is applied at the syscall
// level via golang.org/x/sys/unix rather than net.Listen, whose portable
// API does not expose a backlog parameter.
func BindAndListen(path string, backlog int) (*Channel, error) {
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rpcwire: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rpcwire: listen %s: %w", path, err)
	}

	f := os.NewFile(uintptr(fd), path)
	defer func() { _ = f.Close() }()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: file listener %s: %w", path, err)
	}

	return &Channel{ln: ln}, nil
}

// Listener returns the underlying net.Listener, for registration with the
// EventDriver.
func (c *Channel) Listener() net.Listener {
	return c.ln
}

// UnbindAndStopListening closes the listener. Idempotent.
func (c *Channel) UnbindAndStopListening() error {
	if c.ln == nil {
		return nil
	}
	err := c.ln.Close()
	c.ln = nil
	return err
}

// Frame is one decoded request: a method name and its single string
// argument (empty if the caller sent none).
type Frame struct {
	Method string
	Arg    string
}

// Decode reads exactly one frame from conn: a line of the form
// "method arg\n" or "method\n". It does not close conn.
func Decode(conn net.Conn) (Frame, error) {
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Frame{}, fmt.Errorf("rpcwire: read: %w", err)
		}
		return Frame{}, fmt.Errorf("rpcwire: connection closed before a frame was sent")
	}

	line := scanner.Text()
	method, arg, _ := strings.Cut(line, " ")
	if method == "" {
		return Frame{}, fmt.Errorf("rpcwire: empty method name")
	}
	return Frame{Method: method, Arg: arg}, nil
}

// Reply writes a single-line response and does not close conn.
func Reply(conn net.Conn, err error) error {
	var line string
	if err != nil {
		line = "ERR " + err.Error() + "\n"
	} else {
		line = "OK\n"
	}
	_, writeErr := conn.Write([]byte(line))
	return writeErr
}
