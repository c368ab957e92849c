package main

import (
	"fmt"
	"os"

	"github.com/insightdelivered/statement-extractor/internal/cli"
	"github.com/insightdelivered/statement-extractor/internal/errs"
)

// Set by -ldflags at release time.
var (
	version = "1.2.0"
	commit  = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit)
	root := cli.NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}
