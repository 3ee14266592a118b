package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{999 * time.Millisecond, "999ms"},
		{time.Second, "1.0s"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{time.Minute, "1m0.0s"},
		{125500 * time.Millisecond, "2m5.5s"},
		{time.Hour, "1h00m"},
		{2*time.Hour + 5*time.Minute + 30*time.Second, "2h05m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1 << 20, "1.00 MB"},
		{3 << 29, "1.50 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatSemitones(t *testing.T) {
	for st, want := range map[float64]string{3: "+3 st", -7: "-7 st", 0: "0 st", 1.5: "+1.5 st"} {
		if got := FormatSemitones(st); got != want {
			t.Errorf("FormatSemitones(%g) = %q, want %q", st, got, want)
		}
	}
}

func TestChecklist(t *testing.T) {
	c := Checklist{
		Styles: NewStyles(DefaultTheme),
		Title:  "Workflow",
		Items: []Item{
			{Label: "env_detected", Done: true, Detail: "cuda"},
			{Label: "model_trained"},
		},
		Footer: "next: train",
	}
	out := c.Render()
	for _, want := range []string{"Workflow", "● env_detected", "cuda", "○ model_trained", "next: train"} {
		if !strings.Contains(out, want) {
			t.Errorf("render lacks %q:\n%s", want, out)
		}
	}
}
