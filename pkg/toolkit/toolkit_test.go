package toolkit

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
)

// fakeToolkit writes a shell script that copies -i to -o and records its
// arguments next to the config.
func fakeToolkit(t *testing.T, script string) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script toolkit")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "svc")
	if err := os.WriteFile(exe, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	ckpt := filepath.Join(dir, "G_100.pth")
	cfg := filepath.Join(dir, "config.json")
	if err := os.WriteFile(ckpt, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg, []byte(`{"spk": {"narrator": 1, "katie": 0}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	return Config{Executable: exe, Checkpoint: ckpt, ConfigPath: cfg}
}

const copyScript = `#!/bin/sh
echo "$@" > "$(dirname "$0")/args"
while [ $# -gt 1 ]; do
  case "$1" in
    -i) in="$2" ;;
    -o) out="$2" ;;
  esac
  shift 2
done
cp "$in" "$out"
`

func tone() *pcm.Buffer {
	x := make([]float64, 8000)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/16000)
	}
	return pcm.New(x, 16000)
}

func TestAvailable(t *testing.T) {
	cfg := fakeToolkit(t, copyScript)
	if !New(cfg).Available() {
		t.Fatal("complete toolkit not available")
	}
	for name, mod := range map[string]func(*Config){
		"no checkpoint": func(c *Config) { c.Checkpoint = filepath.Join(t.TempDir(), "missing.pth") },
		"no config":     func(c *Config) { c.ConfigPath = "" },
		"no executable": func(c *Config) { c.Executable = "voicecloner-no-such-tool" },
	} {
		c := cfg
		mod(&c)
		if New(c).Available() {
			t.Errorf("%s: available", name)
		}
	}
}

func TestSpeakers(t *testing.T) {
	cfg := fakeToolkit(t, copyScript)
	c := New(cfg)
	got, err := c.Speakers()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"katie", "narrator"}; !slices.Equal(got, want) {
		t.Errorf("Speakers = %v, want %v", got, want)
	}

	for _, tt := range []struct {
		name, configured, want string
	}{
		{"explicit", "", "explicit"},
		{"", "narrator", "narrator"},
		{"", "", "katie"},
	} {
		cfg.Speaker = tt.configured
		got, err := New(cfg).ResolveSpeaker(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ResolveSpeaker(%q) with %q = %q, %v; want %q", tt.name, tt.configured, got, err, tt.want)
		}
	}

	if err := os.WriteFile(cfg.ConfigPath, []byte(`{"spk": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Speaker = ""
	if _, err := New(cfg).ResolveSpeaker(""); err != ErrNoSpeaker {
		t.Errorf("empty spk map: err = %v, want ErrNoSpeaker", err)
	}
}

func TestConvert(t *testing.T) {
	cfg := fakeToolkit(t, copyScript)
	c := New(cfg)
	in := tone()
	out, err := c.Convert(context.Background(), in, Options{Transpose: -7, F0Method: "dio", ClusterRatio: 0.5})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.Len() != in.Len() || out.SampleRate != in.SampleRate {
		t.Fatalf("got %d @ %d, want %d @ %d", out.Len(), out.SampleRate, in.Len(), in.SampleRate)
	}
	for i := range in.Samples {
		if math.Abs(out.Samples[i]-in.Samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, out.Samples[i], in.Samples[i])
		}
	}

	args, err := os.ReadFile(filepath.Join(filepath.Dir(cfg.Executable), "args"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"-m " + cfg.Checkpoint, "-s katie", "-t -7", "-f0p dio", "-cr 0.5"} {
		if !strings.Contains(string(args), want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestConvertFailure(t *testing.T) {
	cfg := fakeToolkit(t, "#!/bin/sh\necho 'CUDA out of memory' >&2\nexit 3\n")
	_, err := New(cfg).Convert(context.Background(), tone(), Options{})
	if err == nil {
		t.Fatal("failing toolkit returned no error")
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Errorf("err = %v, want stderr tail", err)
	}
}

func TestArgsTemplate(t *testing.T) {
	c := New(Config{Args: []string{"run", "--in={input}", "{transpose}st"}})
	got := c.args(map[string]string{"input": "a.wav", "transpose": "3"})
	if want := []string{"run", "--in=a.wav", "3st"}; !slices.Equal(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}
