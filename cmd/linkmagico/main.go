// Package main is the entry point for the linkmagico CLI.
package main

import (
	"os"

	"github.com/jmylchreest/linkmagico/cmd/linkmagico/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
