package main

import (
	"os"

	"github.com/conduit-lang/backport/internal/cli/commands"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version   = ""
	gitCommit = ""
	buildDate = ""
)

func main() {
	if version != "" {
		commands.Version = version
	}
	if gitCommit != "" {
		commands.GitCommit = gitCommit
	}
	if buildDate != "" {
		commands.BuildDate = buildDate
	}

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
