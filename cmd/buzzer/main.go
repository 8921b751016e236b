// Package main is the entry point for the buzzer CLI.
//
// Usage:
//
//	buzzer [flags] <command> [args]
//
// Commands:
//
//	run      - Start the controller and play melodies on button presses
//	play     - Play one melody in a loop
//	list     - List the melodies of the score table
//	devices  - List MIDI input devices
package main

import (
	"fmt"
	"os"

	"github.com/leandrodaf/buzzer/cmd/buzzer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
