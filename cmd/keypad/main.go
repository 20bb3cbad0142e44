package main

import (
	"os"

	"viaggi/cmd/keypad/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
