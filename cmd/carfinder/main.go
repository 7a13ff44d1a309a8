package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jbonatakis/carfinder/internal/cli"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the command line and maps its error to a process exit code.
// Usage errors are followed by the usage text.
func run(args []string, stderr io.Writer) int {
	err := cli.Run(args)
	if err == nil {
		return exitOK
	}
	var ue cli.UsageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "carfinder: %s\n\n%s\n", ue.Error(), cli.Usage())
		return exitUsage
	}
	fmt.Fprintf(stderr, "carfinder: %v\n", err)
	return exitError
}
