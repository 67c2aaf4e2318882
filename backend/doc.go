// Package backend provides native Go clients for the process-supervision
// systems that a job can delegate to instead of being forked directly by
// jobd: runit, daemontools, s6 and systemd. For runit, daemontools and s6
// it talks to the control socket/FIFO and status file directly, without
// shelling out to sv or s6-svc; the systemd client runs systemctl and kill.
//
// A jobd manifest whose Supervisor field names one of these systems and
// whose ServiceDir already exists is bound to a Client here instead of
// being exec'd by the job package; jobd then drives Up/Down/Status/Watch
// through the ServiceClient interface exactly as it would drive a
// directly-forked process, so the admission and lifecycle rules in the
// core package are indifferent to which mechanism is behind a Label.
//
//	client, err := backend.NewClientRunit("/etc/service/myapp")
//	if err != nil {
//	    return err
//	}
//	if err := client.Up(ctx); err != nil {
//	    return err
//	}
//	status, err := client.Status(ctx)
//
// # Design Philosophy
//
//   - Zero external process spawning to control a runit, daemontools or s6 service
//   - Direct communication with supervise control/status endpoints
//   - Context-aware operations with proper timeouts
//   - Type safety (no string-based operation codes)
package backend
