// Package cli implements the mail2pdf subcommands: run (the default),
// configure, and history.
package cli

import (
	"fmt"
	"strings"
)

// Run dispatches to the requested subcommand. A leading flag (or no
// arguments at all) means the default run command.
func Run(args []string) error {
	cmd := "run"
	rest := args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		rest = args[1:]
	}

	switch cmd {
	case "run":
		return runCmd(rest)
	case "configure":
		return configureCmd(rest)
	case "history":
		return historyCmd(rest)
	default:
		return fmt.Errorf("unknown command %q (want run, configure, or history)", cmd)
	}
}
