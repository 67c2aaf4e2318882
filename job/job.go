// Package job implements the Job collaborator that spec.md §1 treats as an
// external dependency of the manager core: process fork/exec, stdio
// plumbing and exit reaping for a directly-launched program, or delegation
// to an already-running supervision backend (runit, daemontools, s6,
// systemd) when the manifest names one.
package job

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/axondata/go-jobd/backend"
	"github.com/axondata/go-jobd/manifest"
)

// State is a job's lifecycle state, distinct from and nested inside
// whichever ActiveJob/PendingJob bucket the registry currently holds it
// in.
type State int

const (
	Idle State = iota
	Starting
	Running
	Terminating
	Unloaded
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Terminating:
		return "terminating"
	case Unloaded:
		return "unloaded"
	default:
		return "idle"
	}
}

// OverridePolicy is the subset of the manager's StateStore a Job needs: the
// answer to "should this label be running right now", so a KeepAlive job
// that exits does not respawn itself out from under an administrator who
// disabled it while it was running.
type OverridePolicy interface {
	EffectiveEnabled(label string, manifestDisabled bool) bool
}

// Driver is the subset of eventloop.Loop a Job needs to fund an
// asynchronous timer or reaper completion back onto the driver thread, and
// to reach the delete_job IPC method JobRegistry pre-registers.
type Driver interface {
	Enqueue(fn func())
	OnTimer(delay time.Duration, cb func())
	IPCMethod(name string) (func(arg string), bool)
}

const defaultExitTimeout = 10 * time.Second

// Job is one manifest's running (or about to run, or draining) instance.
type Job struct {
	Manifest manifest.Manifest
	loop     Driver
	policy   OverridePolicy

	mu               sync.Mutex
	state            State
	pid              int
	lastExitStatus   int
	unloadRequested  bool
	cmd              *exec.Cmd
	backendClient    backend.ServiceClient
	watchCancel      context.CancelFunc
}

// New constructs a Job bound to a manifest, an EventDriver and the
// manager's override policy, matching the collaborator wiring
// ManifestAdmission performs at step 8 of the load_manifest procedure.
func New(m manifest.Manifest, loop Driver, policy OverridePolicy) *Job {
	return &Job{
		Manifest: m,
		loop:     loop,
		policy:   policy,
		state:    Idle,
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// PID returns the current process id, or 0 if the job has no live process.
func (j *Job) PID() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pid
}

// LastExitStatus returns the exit code of the most recently completed
// process this job ran, or 0 if none has exited yet.
func (j *Job) LastExitStatus() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastExitStatus
}

// UnloadRequested reports whether unload(false) or unload(true) has been
// called on this job and not yet completed.
func (j *Job) UnloadRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.unloadRequested
}

// Bootstrap moves the job from just-created to its initial running
// lifecycle state, matching the Bootstrap trigger JobRegistry.promote_all
// fires on every newly-promoted job.
func (j *Job) Bootstrap() error {
	j.mu.Lock()
	j.state = Starting
	j.mu.Unlock()

	if j.Manifest.Supervisor != "" {
		return j.bootstrapBackend()
	}
	return j.bootstrapExec()
}

func (j *Job) bootstrapExec() error {
	if len(j.Manifest.Program) == 0 {
		return fmt.Errorf("job %s: manifest has neither Program nor Supervisor", j.Manifest.Label)
	}

	cmd := exec.Command(j.Manifest.Program[0], j.Manifest.Program[1:]...)
	cmd.Dir = j.Manifest.WorkingDirectory
	cmd.Env = os.Environ()
	for k, v := range j.Manifest.EnvironmentVariables {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdout, err := openOutput(j.Manifest.StandardOutPath)
	if err != nil {
		return fmt.Errorf("job %s: stdout: %w", j.Manifest.Label, err)
	}
	cmd.Stdout = stdout

	stderrPath := j.Manifest.StandardErrorPath
	if stderrPath == "" {
		stderrPath = j.Manifest.StandardOutPath
	}
	stderr, err := openOutput(stderrPath)
	if err != nil {
		return fmt.Errorf("job %s: stderr: %w", j.Manifest.Label, err)
	}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("job %s: start: %w", j.Manifest.Label, err)
	}

	j.mu.Lock()
	j.cmd = cmd
	j.pid = cmd.Process.Pid
	j.state = Running
	j.mu.Unlock()

	go j.reapExec(cmd)

	return nil
}

func openOutput(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
}

// reapExec runs on its own goroutine so exec.Cmd.Wait's blocking wait4 call
// never runs on the driver thread; it funnels the completion back through
// the queue exactly as spec §5 requires of any asynchronous source.
func (j *Job) reapExec(cmd *exec.Cmd) {
	err := cmd.Wait()
	status := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			status = exitErr.ExitCode()
		} else {
			status = -1
		}
	}
	j.loop.Enqueue(func() { j.onProcessExited(status) })
}

func (j *Job) onProcessExited(status int) {
	j.mu.Lock()
	j.pid = 0
	j.lastExitStatus = status
	wasUnloadRequested := j.unloadRequested
	j.mu.Unlock()

	if wasUnloadRequested || !j.Manifest.KeepAlive {
		j.markUnloaded()
		return
	}

	if !j.policy.EffectiveEnabled(j.Manifest.Label, j.Manifest.Disabled) {
		log.Info().Str("label", j.Manifest.Label).
			Msg("job exited and is now disabled; not respawning")
		j.markUnloaded()
		return
	}

	log.Info().Str("label", j.Manifest.Label).Int("status", status).
		Msg("KeepAlive job exited; respawning")
	j.mu.Lock()
	j.state = Starting
	j.mu.Unlock()
	if err := j.bootstrapExec(); err != nil {
		log.Error().Err(err).Str("label", j.Manifest.Label).Msg("failed to respawn job")
		j.markUnloaded()
	}
}

func (j *Job) markUnloaded() {
	j.mu.Lock()
	j.state = Unloaded
	label := j.Manifest.Label
	j.mu.Unlock()

	if cb, ok := j.loop.IPCMethod("delete_job"); ok {
		cb(label)
	}
}

// Unload asks the job to stop. force sends SIGKILL (or the backend's Kill
// operation) immediately instead of SIGTERM with a grace period.
func (j *Job) Unload(force bool) error {
	j.mu.Lock()
	if j.state == Unloaded {
		j.mu.Unlock()
		return nil
	}
	j.unloadRequested = true
	j.state = Terminating
	backendClient := j.backendClient
	cmd := j.cmd
	j.mu.Unlock()

	if backendClient != nil {
		return j.unloadBackend(backendClient, force)
	}
	return j.unloadExec(cmd, force)
}

func (j *Job) unloadExec(cmd *exec.Cmd, force bool) error {
	if cmd == nil || cmd.Process == nil {
		j.markUnloaded()
		return nil
	}

	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	if err := cmd.Process.Signal(sig); err != nil {
		return fmt.Errorf("job %s: signal: %w", j.Manifest.Label, err)
	}

	if !force {
		timeout := j.Manifest.ExitTimeout
		if timeout <= 0 {
			timeout = defaultExitTimeout
		}
		j.loop.OnTimer(timeout, func() {
			j.mu.Lock()
			stillRunning := j.state != Unloaded
			j.mu.Unlock()
			if stillRunning {
				log.Warn().Str("label", j.Manifest.Label).
					Msg("exit timeout elapsed; sending SIGKILL")
				_ = cmd.Process.Signal(unix.SIGKILL)
			}
		})
	}

	return nil
}

// ForceUnload sends an immediate kill and never returns an error, matching
// JobRegistry.force_unload_all's "ignore errors" contract used on the
// fatal-shutdown path.
func (j *Job) ForceUnload() {
	j.mu.Lock()
	backendClient := j.backendClient
	cmd := j.cmd
	j.unloadRequested = true
	j.state = Terminating
	j.mu.Unlock()

	if backendClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = backendClient.Kill(ctx)
		return
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(unix.SIGKILL)
	}
}

// Kill sends an arbitrary signal to the job's process, used by the
// manager's kill() operation.
func (j *Job) Kill(sig unix.Signal) error {
	j.mu.Lock()
	backendClient := j.backendClient
	cmd := j.cmd
	j.mu.Unlock()

	if backendClient != nil {
		return j.killBackend(backendClient, sig)
	}
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("job %s: no running process", j.Manifest.Label)
	}
	return cmd.Process.Signal(sig)
}

// Dump returns a diagnostic snapshot of the job's state for the manager's
// dump() operation.
func (j *Job) Dump() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return map[string]any{
		"Label":           j.Manifest.Label,
		"State":           j.state.String(),
		"PID":             j.pid,
		"LastExitStatus":  j.lastExitStatus,
		"UnloadRequested": j.unloadRequested,
		"Path":            j.Manifest.Path,
	}
}
