package jobd

// Domain is immutable per-manager-instance configuration: where override
// state is persisted and which paths are searched for manifests on
// start_running. It is supplied by the host program (cmd/jobd) and never
// mutated once a Manager is constructed.
type Domain struct {
	// Name identifies this manager instance in log lines.
	Name string

	// StateDir holds state.json and rpc.sock.
	StateDir string

	// LoadPaths are searched, in order, by start_running's default
	// manifest load. Each entry may be a file or a directory (§4.2
	// directory mode).
	LoadPaths []string
}
