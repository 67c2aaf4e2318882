// Package signames maps between signal names and numbers, the collaborator
// spec.md §1 names as out of scope for the manager core but that Job.Kill
// and the manager's kill() operation still need a concrete answer for.
package signames

import (
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var byName = map[string]unix.Signal{
	"SIGHUP":    unix.SIGHUP,
	"SIGINT":    unix.SIGINT,
	"SIGQUIT":   unix.SIGQUIT,
	"SIGILL":    unix.SIGILL,
	"SIGTRAP":   unix.SIGTRAP,
	"SIGABRT":   unix.SIGABRT,
	"SIGBUS":    unix.SIGBUS,
	"SIGFPE":    unix.SIGFPE,
	"SIGKILL":   unix.SIGKILL,
	"SIGUSR1":   unix.SIGUSR1,
	"SIGSEGV":   unix.SIGSEGV,
	"SIGUSR2":   unix.SIGUSR2,
	"SIGPIPE":   unix.SIGPIPE,
	"SIGALRM":   unix.SIGALRM,
	"SIGTERM":   unix.SIGTERM,
	"SIGCHLD":   unix.SIGCHLD,
	"SIGCONT":   unix.SIGCONT,
	"SIGSTOP":   unix.SIGSTOP,
	"SIGTSTP":   unix.SIGTSTP,
	"SIGTTIN":   unix.SIGTTIN,
	"SIGTTOU":   unix.SIGTTOU,
	"SIGURG":    unix.SIGURG,
	"SIGXCPU":   unix.SIGXCPU,
	"SIGXFSZ":   unix.SIGXFSZ,
	"SIGVTALRM": unix.SIGVTALRM,
	"SIGPROF":   unix.SIGPROF,
	"SIGWINCH":  unix.SIGWINCH,
	"SIGIO":     unix.SIGIO,
	"SIGSYS":    unix.SIGSYS,
}

// ByName resolves a signal name (with or without the "SIG" prefix,
// case-insensitively) or a decimal signal number to a unix.Signal. It
// returns false for anything it cannot resolve, matching the spec's
// "rejects unknown signals" requirement for kill().
func ByName(nameOrNumber string) (unix.Signal, bool) {
	if n, err := strconv.Atoi(nameOrNumber); err == nil {
		if n <= 0 {
			return 0, false
		}
		return unix.Signal(n), true
	}

	name := strings.ToUpper(strings.TrimSpace(nameOrNumber))
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig, ok := byName[name]
	return sig, ok
}
