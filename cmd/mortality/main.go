package main

import (
	"os"

	"github.com/anrid/france-mortality/cmd/mortality/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
