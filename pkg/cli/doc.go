// Package cli provides terminal helpers for the voicecloner command:
// structured output (YAML, JSON, raw), status lines, human readable
// durations and sizes, and a lipgloss checklist used to render the
// workflow state.
//
// Example usage:
//
//	p := cli.NewPrinter(os.Stdout, os.Stderr)
//	p.Success("converted %s", out)
//
//	cli.Output(report, cli.OutputOptions{Format: cli.FormatJSON})
package cli
