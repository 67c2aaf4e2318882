// Command jobd is the per-domain service manager's CLI entrypoint: it
// builds a Domain from flags, constructs a Manager, and drives it through
// start_running and run_main_loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/axondata/go-jobd/jobd"
)

type loadPaths []string

func (l *loadPaths) String() string {
	return fmt.Sprintf("%v", []string(*l))
}

func (l *loadPaths) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	domainName := flag.String("domain", "default", "domain name, used only in log lines")
	stateDir := flag.String("statedir", "/var/lib/jobd", "directory holding state.json and rpc.sock")
	foreground := flag.Bool("foreground", false, "log to stderr with human-readable output instead of JSON")

	var paths loadPaths
	flag.Var(&paths, "load-path", "manifest file or directory to load on startup (repeatable)")

	flag.Parse()

	if *foreground {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := run(*domainName, *stateDir, paths); err != nil {
		log.Fatal().Err(err).Msg("jobd: fatal")
	}
}

func run(name, stateDir string, paths []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*jobd.ProgrammerError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	domain := jobd.Domain{
		Name:      name,
		StateDir:  stateDir,
		LoadPaths: paths,
	}

	m, err := jobd.NewManager(context.Background(), domain)
	if err != nil {
		return fmt.Errorf("jobd: manager init: %w", err)
	}
	defer m.Shutdown()

	m.StartRunning()
	m.RunMainLoop()
	return nil
}
