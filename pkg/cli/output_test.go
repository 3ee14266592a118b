package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type conversion struct {
	Source   string `json:"source" yaml:"source"`
	Strategy string `json:"strategy" yaml:"strategy"`
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Output(conversion{"take1.wav", "profile"}, OutputOptions{Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}
	var got conversion
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got.Strategy != "profile" {
		t.Errorf("strategy = %q, want profile", got.Strategy)
	}
}

func TestOutputYAML(t *testing.T) {
	for _, f := range []OutputFormat{FormatYAML, FormatText, ""} {
		var buf bytes.Buffer
		if err := Output(conversion{"take1.wav", "simulation"}, OutputOptions{Format: f, Writer: &buf}); err != nil {
			t.Fatalf("%q: %v", f, err)
		}
		if !strings.Contains(buf.String(), "strategy: simulation") {
			t.Errorf("%q: got %s", f, buf.String())
		}
	}
}

func TestOutputRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("plain\n", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "plain\n" {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	if err := Output([]byte{1, 2}, OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2 {
		t.Errorf("wrote %d bytes", buf.Len())
	}
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := Output(map[string]int{"succeeded": 3}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"succeeded": 3`) {
		t.Errorf("file = %s", data)
	}
}

func TestOutputUnsupported(t *testing.T) {
	if err := Output(1, OutputOptions{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("expected error")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatText, "text": FormatText, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("table"); err == nil {
		t.Error("table accepted")
	}
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut)
	p.Success("done %d", 2)
	p.Warn("short corpus")
	p.Debug("hidden")
	p.Error("failed")
	if got := out.String(); got != "✓ done 2\n⚠ short corpus\n" {
		t.Errorf("out = %q", got)
	}
	if got := errOut.String(); got != "Error: failed\n" {
		t.Errorf("err = %q", got)
	}
	p.Verbose = true
	p.Debug("shown")
	if !strings.Contains(errOut.String(), "[verbose] shown") {
		t.Errorf("err = %q", errOut.String())
	}
}
