// Package main is the entry point for the loom CLI.
package main

import (
	"os"

	"github.com/dpinedaj/loom/internal/cli"
	"github.com/dpinedaj/loom/internal/logging"
)

func main() {
	logging.InitFromEnv()
	os.Exit(cli.Run(os.Args[1:]))
}
