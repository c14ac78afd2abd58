// Package main is the entry point for the luxapts CLI.
package main

import (
	"os"

	"github.com/digisapp/luxapts/cmd/luxapts/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
