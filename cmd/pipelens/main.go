// Package main provides the PipeLens CLI entry point.
package main

import (
	"os"

	"github.com/pipelens-dev/pipelens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
