package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatText leaves rendering to the command (default)
	FormatText OutputFormat = "text"
	// FormatYAML outputs as YAML
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
	// FormatRaw outputs strings and bytes unchanged
	FormatRaw OutputFormat = "raw"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", FormatText:
		return FormatText, nil
	case FormatYAML, FormatJSON, FormatRaw:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, yaml, json or raw)", s)
	}
}

// OutputOptions configures output behavior
type OutputOptions struct {
	Format OutputFormat

	// File is the output file path (empty for stdout)
	File string

	// Writer overrides File
	Writer io.Writer
}

// Output writes result in a machine-readable format. FormatText is
// rendered as YAML; commands that have a text view handle it themselves.
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout
	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, FormatText, "":
		return outputYAML(w, result)
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v)
			return err
		}
		return outputYAML(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Printer writes status lines for humans.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
}

// NewPrinter returns a Printer on out and errOut.
func NewPrinter(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

// Success prints a line with a checkmark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.Out, "✓ "+format+"\n", args...)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.Out, "ℹ "+format+"\n", args...)
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.Out, "⚠ "+format+"\n", args...)
}

// Error prints an error line to Err.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.Err, "Error: "+format+"\n", args...)
}

// Debug prints to Err when Verbose is set.
func (p *Printer) Debug(format string, args ...any) {
	if p.Verbose {
		fmt.Fprintf(p.Err, "[verbose] "+format+"\n", args...)
	}
}
