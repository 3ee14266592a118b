package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PlumbMonkey/voice-cloner/pkg/audio/codec"
	"github.com/PlumbMonkey/voice-cloner/pkg/audio/pcm"
	"github.com/PlumbMonkey/voice-cloner/pkg/envcheck"
	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
)

const testConfig = `paths:
  input: input
  data: data
  output: output
  models: models
  state: ""
audio:
  sample_rate: 16000
  bit_depth: 16
segment:
  min_duration: 0.5
  max_duration: 15
  top_db: 40
  min_file_size: 0
  recommended_total: 600
  val_fraction: 0.1
  extract_f0: false
training:
  speaker: alice
  epochs: 1
  batch_size: 4
  learning_rate: 0.0001
`

// setupProject writes a config into a fresh project directory and points
// the commands at it with a shared memory store.
func setupProject(t *testing.T) (dir, cfgPath string, cleanup func()) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "voicecloner.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOICECLONER_PROJECT_DIR", dir)
	testKVOverride = kv.NewMemory()
	testProbe = func(context.Context, string) (envcheck.SystemInfo, error) {
		return envcheck.SystemInfo{OS: "linux", CPUCores: 8, MemTotalGB: 32, MemAvailableGB: 16, DiskFreeGB: 100}, nil
	}
	return dir, cfgPath, func() {
		testKVOverride = nil
		testProbe = nil
	}
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	formatOutput = "text"
	outputFile = ""
	configFile = "voicecloner.yaml"

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}
	return stdout, stderr, exitCode
}

func writeVoice(t *testing.T, path string) {
	t.Helper()
	const rate = 16000
	s := make([]float64, 4*rate)
	for i := range s {
		ti := float64(i) / rate
		for h := 1; h <= 4; h++ {
			s[i] += 0.3 / float64(h) * math.Sin(2*math.Pi*150*float64(h)*ti)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := codec.Encode(f, pcm.New(s, rate), 16); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "voicecloner") {
		t.Fatalf("expected 'voicecloner', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, code := runCmd(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestBadFormat(t *testing.T) {
	_, stderr, code := runCmd(t, "version", "--format", "xml")
	if code == 0 {
		t.Fatal("xml format accepted")
	}
	if !strings.Contains(stderr, "xml") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicecloner.yaml")
	if _, stderr, code := runCmd(t, "config", "init", "-c", path); code != 0 {
		t.Fatalf("init: %s", stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sample_rate: 44100") {
		t.Errorf("config = %s", data)
	}
	if _, _, code := runCmd(t, "config", "init", "-c", path); code == 0 {
		t.Error("init overwrote an existing file")
	}
	if _, stderr, code := runCmd(t, "config", "init", "-c", path, "--force"); code != 0 {
		t.Errorf("init --force: %s", stderr)
	}
}

func TestConfigShow(t *testing.T) {
	_, cfgPath, cleanup := setupProject(t)
	defer cleanup()
	t.Setenv("VOICECLONER_PITCH_SHIFT", "-2")

	stdout, stderr, code := runCmd(t, "config", "show", "-c", cfgPath)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"sample_rate: 16000", "pitch_shift: -2", "speaker: alice"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output lacks %q:\n%s", want, stdout)
		}
	}
}

func TestStatusFresh(t *testing.T) {
	_, cfgPath, cleanup := setupProject(t)
	defer cleanup()

	stdout, stderr, code := runCmd(t, "status", "-c", cfgPath)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "next: voicecloner detect") {
		t.Errorf("status = %s", stdout)
	}
}

func TestOutOfOrder(t *testing.T) {
	_, cfgPath, cleanup := setupProject(t)
	defer cleanup()

	for _, phase := range []string{"setup", "preprocess", "train", "infer"} {
		if _, _, code := runCmd(t, phase, "-c", cfgPath); code == 0 {
			t.Errorf("%s before detect succeeded", phase)
		}
	}
	if _, _, code := runCmd(t, "convert", "x.wav", "-c", cfgPath); code == 0 {
		t.Error("convert before infer succeeded")
	}
}

func TestWorkflowCommands(t *testing.T) {
	dir, cfgPath, cleanup := setupProject(t)
	defer cleanup()

	run := func(args ...string) string {
		t.Helper()
		stdout, stderr, code := runCmd(t, append(args, "-c", cfgPath)...)
		if code != 0 {
			t.Fatalf("%v: exit %d: %s", args, code, stderr)
		}
		return stdout
	}

	if out := run("detect"); !strings.Contains(out, "device: cpu") {
		t.Errorf("detect = %s", out)
	}
	run("setup")
	for i := range 3 {
		writeVoice(t, filepath.Join(dir, "input", fmt.Sprintf("take%d.wav", i)))
	}
	if out := run("preprocess"); !strings.Contains(out, "3 segments") {
		t.Errorf("preprocess = %s", out)
	}
	if out := run("train"); !strings.Contains(out, "checkpoint:alice:000001") {
		t.Errorf("train = %s", out)
	}
	run("infer")

	out := run("convert", filepath.Join(dir, "input", "take0.wav"), "--pitch", "2", "--format", "json")
	var conv struct{ Output, Strategy string }
	if err := json.Unmarshal([]byte(out), &conv); err != nil {
		t.Fatalf("convert output %q: %v", out, err)
	}
	if conv.Output != "take0_converted.wav" || conv.Strategy == "" {
		t.Errorf("conversion = %+v", conv)
	}
	if _, err := os.Stat(filepath.Join(dir, "output", "take0_converted.wav")); err != nil {
		t.Error(err)
	}

	if out := run("batch", filepath.Join(dir, "input"), "--out", "batch"); !strings.Contains(out, "3 converted, 0 failed") {
		t.Errorf("batch = %s", out)
	}

	var st map[string]any
	if err := json.Unmarshal([]byte(run("status", "--format", "json")), &st); err != nil {
		t.Fatal(err)
	}
	if st["ready_for_inference"] != true || st["segments"] != float64(3) {
		t.Errorf("status = %v", st)
	}

	if out := run("profile", "show"); !strings.Contains(out, "segments: 3") {
		t.Errorf("profile show = %s", out)
	}
	if out := run("profile", "list"); !strings.Contains(out, "alice") {
		t.Errorf("profile list = %s", out)
	}
	run("profile", "delete", "alice")
	if out := run("profile", "list"); strings.Contains(out, "alice") {
		t.Errorf("profile list after delete = %s", out)
	}
}

func TestConvertFlags(t *testing.T) {
	_, cfgPath, cleanup := setupProject(t)
	defer cleanup()

	if _, _, code := runCmd(t, "convert", "x.wav", "--preset", "loud", "-c", cfgPath); code == 0 {
		t.Error("unknown preset accepted")
	}
	if _, _, code := runCmd(t, "convert", "x.wav", "--blend", "1.5", "-c", cfgPath); code == 0 {
		t.Error("blend 1.5 accepted")
	}
}
