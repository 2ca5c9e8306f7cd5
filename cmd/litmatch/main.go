// Package main provides the entry point for the litmatch CLI.
package main

import (
	"os"

	"github.com/litmatch/litmatch/cmd/litmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
