package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/axondata/go-jobd/backend"
)

func serviceTypeFromString(name string) backend.ServiceType {
	switch strings.ToLower(name) {
	case "runit":
		return backend.ServiceTypeRunit
	case "daemontools":
		return backend.ServiceTypeDaemontools
	case "s6":
		return backend.ServiceTypeS6
	case "systemd":
		return backend.ServiceTypeSystemd
	default:
		return backend.ServiceTypeUnknown
	}
}

// bootstrapBackend delegates a manifest naming a Supervisor to the
// corresponding backend.ServiceClient instead of forking a process
// directly, and bridges its Watch stream back onto the driver thread so
// job exits observed by the backend look the same to the registry as an
// exec'd process reaping.
func (j *Job) bootstrapBackend() error {
	svcType := serviceTypeFromString(j.Manifest.Supervisor)
	if svcType == backend.ServiceTypeUnknown {
		return fmt.Errorf("job %s: unknown Supervisor %q", j.Manifest.Label, j.Manifest.Supervisor)
	}
	if j.Manifest.ServiceDir == "" {
		return fmt.Errorf("job %s: Supervisor set without ServiceDir", j.Manifest.Label)
	}

	client, err := backend.NewClient(j.Manifest.ServiceDir, svcType)
	if err != nil {
		return fmt.Errorf("job %s: backend client: %w", j.Manifest.Label, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Up(ctx); err != nil {
		return fmt.Errorf("job %s: backend up: %w", j.Manifest.Label, err)
	}

	j.mu.Lock()
	j.backendClient = client
	j.state = Running
	j.mu.Unlock()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	j.mu.Lock()
	j.watchCancel = watchCancel
	j.mu.Unlock()

	events, cleanup, err := client.Watch(watchCtx)
	if err != nil {
		log.Warn().Err(err).Str("label", j.Manifest.Label).
			Msg("backend watch unavailable; job exit will not be observed until unload")
		return nil
	}

	go j.watchBackend(events, cleanup)
	return nil
}

func (j *Job) watchBackend(events <-chan backend.WatchEvent, cleanup backend.WatchCleanupFunc) {
	defer func() { _ = cleanup() }()
	for ev := range events {
		if ev.Err != nil {
			log.Debug().Err(ev.Err).Str("label", j.Manifest.Label).Msg("backend watch error")
			continue
		}
		j.mu.Lock()
		j.pid = ev.Status.PID
		j.mu.Unlock()

		if ev.Status.State == backend.StateDown || ev.Status.State == backend.StateExited {
			j.loop.Enqueue(func() { j.onProcessExited(0) })
			return
		}
	}
}

func (j *Job) unloadBackend(client backend.ServiceClient, force bool) error {
	j.mu.Lock()
	if cancel := j.watchCancel; cancel != nil {
		cancel()
	}
	j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if force {
		if err := client.Kill(ctx); err != nil {
			return fmt.Errorf("job %s: backend kill: %w", j.Manifest.Label, err)
		}
	} else if err := client.Down(ctx); err != nil {
		return fmt.Errorf("job %s: backend down: %w", j.Manifest.Label, err)
	}

	j.markUnloaded()
	return nil
}

func (j *Job) killBackend(client backend.ServiceClient, sig unix.Signal) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch sig {
	case unix.SIGTERM:
		return client.Term(ctx)
	case unix.SIGKILL:
		return client.Kill(ctx)
	case unix.SIGHUP:
		return client.HUP(ctx)
	case unix.SIGINT:
		return client.Interrupt(ctx)
	case unix.SIGQUIT:
		return client.Quit(ctx)
	case unix.SIGALRM:
		return client.Alarm(ctx)
	case unix.SIGUSR1:
		return client.USR1(ctx)
	case unix.SIGUSR2:
		return client.USR2(ctx)
	default:
		return fmt.Errorf("job %s: signal %v is not supported by supervisor backend %s",
			j.Manifest.Label, sig, j.Manifest.Supervisor)
	}
}
