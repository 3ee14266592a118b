// Package main is the entry point for the voicecloner CLI.
//
// Usage:
//
//	voicecloner [flags] <command> [args]
//
// Commands:
//
//	detect      - Check the host and pick a device
//	setup       - Create the project directories and probe the toolkit
//	preprocess  - Segment the input recordings
//	train       - Build the speaker profile and checkpoint
//	infer       - Prepare the conversion cascade
//	convert     - Convert one file
//	batch       - Convert every file in a directory
//	status      - Show the workflow state
//	profile     - Inspect speaker profiles
//	config      - Write or show the configuration
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/PlumbMonkey/voice-cloner/cmd/voicecloner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
