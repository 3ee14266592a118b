// Package toolkit runs an external voice conversion toolkit as a
// subprocess.
//
// The toolkit is any executable that reads a WAV file and writes a
// converted one. Arguments are built from a template whose placeholders
// are filled per call:
//
//	{checkpoint} {config} {input} {output} {speaker} {transpose} {f0} {cluster}
//
// DefaultArgs matches a so-vits-svc style inference script.
package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/resampler"
)

// DefaultArgs is the argument template used when Config.Args is empty.
var DefaultArgs = []string{
	"-m", "{checkpoint}",
	"-c", "{config}",
	"-i", "{input}",
	"-o", "{output}",
	"-s", "{speaker}",
	"-t", "{transpose}",
	"-f0p", "{f0}",
	"-cr", "{cluster}",
}

// ErrNoSpeaker is returned when the toolkit config lists no speaker and
// none was configured.
var ErrNoSpeaker = errors.New("toolkit: no speaker")

// Config locates the toolkit and its model.
type Config struct {
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args"`
	Checkpoint string   `yaml:"checkpoint"`
	ConfigPath string   `yaml:"config"`
	Speaker    string   `yaml:"speaker"`
}

// Options are the per-call conversion settings.
type Options struct {
	Speaker      string // empty selects Config.Speaker, then the first in the config
	Transpose    int    // semitones, positive raises the pitch
	F0Method     string
	ClusterRatio float64
}

// Command is a toolkit invoked through os/exec.
type Command struct {
	cfg Config
}

// New returns a Command for cfg.
func New(cfg Config) *Command {
	if len(cfg.Args) == 0 {
		cfg.Args = DefaultArgs
	}
	return &Command{cfg: cfg}
}

// Available reports whether the checkpoint and config exist and the
// executable resolves on PATH.
func (c *Command) Available() bool {
	if c.cfg.Executable == "" || c.cfg.Checkpoint == "" || c.cfg.ConfigPath == "" {
		return false
	}
	for _, p := range []string{c.cfg.Checkpoint, c.cfg.ConfigPath} {
		if _, err := os.Stat(p); err != nil {
			slog.Debug("toolkit: missing file", "path", p)
			return false
		}
	}
	if _, err := exec.LookPath(c.cfg.Executable); err != nil {
		slog.Debug("toolkit: executable not found", "executable", c.cfg.Executable)
		return false
	}
	return true
}

// Speakers returns the speaker names of the toolkit config (its "spk"
// map), ordered by speaker id.
func (c *Command) Speakers() ([]string, error) {
	data, err := os.ReadFile(c.cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("toolkit: read config: %w", err)
	}
	var doc struct {
		Spk map[string]int `json:"spk"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("toolkit: parse config: %w", err)
	}
	names := slices.Collect(maps.Keys(doc.Spk))
	slices.SortFunc(names, func(a, b string) int {
		if d := doc.Spk[a] - doc.Spk[b]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return names, nil
}

// ResolveSpeaker picks the speaker for a call: name, else the configured
// speaker, else the first speaker of the toolkit config.
func (c *Command) ResolveSpeaker(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if c.cfg.Speaker != "" {
		return c.cfg.Speaker, nil
	}
	names, err := c.Speakers()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoSpeaker
	}
	return names[0], nil
}

// Convert writes buf to a temporary WAV, runs the toolkit and reads the
// result back at the rate of buf.
func (c *Command) Convert(ctx context.Context, buf *pcm.Buffer, opts Options) (*pcm.Buffer, error) {
	spk, err := c.ResolveSpeaker(opts.Speaker)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "voicecloner-toolkit-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	if err := writeWAV(in, buf); err != nil {
		return nil, err
	}

	args := c.args(map[string]string{
		"checkpoint": c.cfg.Checkpoint,
		"config":     c.cfg.ConfigPath,
		"input":      in,
		"output":     out,
		"speaker":    spk,
		"transpose":  strconv.Itoa(opts.Transpose),
		"f0":         opts.F0Method,
		"cluster":    strconv.FormatFloat(opts.ClusterRatio, 'f', -1, 64),
	})
	cmd := exec.CommandContext(ctx, c.cfg.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	slog.Debug("toolkit: run", "executable", c.cfg.Executable, "args", args)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("toolkit: %s: %w: %s", c.cfg.Executable, err, lastLine(stderr.String()))
	}

	res, err := codec.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("toolkit: read output: %w", err)
	}
	if res.SampleRate != buf.SampleRate {
		if res, err = resampler.Resample(res, buf.SampleRate); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (c *Command) args(vars map[string]string) []string {
	out := make([]string, len(c.cfg.Args))
	for i, a := range c.cfg.Args {
		for k, v := range vars {
			a = strings.ReplaceAll(a, "{"+k+"}", v)
		}
		out[i] = a
	}
	return out
}

func writeWAV(path string, buf *pcm.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := codec.EncodeWAV(f, buf, 16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
