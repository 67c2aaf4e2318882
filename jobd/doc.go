// Package jobd implements the manager lifecycle and job-admission engine:
// the finite state machine that governs the manager, the manifest-loading
// and job-admission pipeline, the coordination between pending and active
// job sets, the signal-driven shutdown protocol, and the cooperative
// event-loop contract by which all of the above progresses.
//
// Everything else — process fork/exec (package job), manifest decoding
// (package manifest), the event multiplexer (package eventloop), the RPC
// transport (package rpcwire) and signal-name mapping (package signames) —
// is an external collaborator this package consumes through a narrow
// interface.
package jobd
