package envcheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/PlumbMonkey/voice-cloner/pkg/voxerr"
)

func goodHost() SystemInfo {
	return SystemInfo{
		OS:             "linux",
		CPUCores:       8,
		CPUThreads:     16,
		MemTotalGB:     32,
		MemAvailableGB: 20,
		DiskFreeGB:     200,
		GPU:            &GPU{Name: "RTX", VRAMGB: 24},
	}
}

func TestEvaluate(t *testing.T) {
	r := Evaluate(goodHost(), Minimum, Recommended)
	if !r.OK() || r.Device != DeviceCUDA || len(r.Warnings) != 0 {
		t.Fatalf("good host: device=%s warnings=%v errors=%v", r.Device, r.Warnings, r.Errors)
	}

	tests := []struct {
		name     string
		mut      func(*SystemInfo)
		device   string
		errors   int
		warnings int
	}{
		{"no gpu", func(i *SystemInfo) { i.GPU = nil }, DeviceCPU, 0, 1},
		{"small gpu", func(i *SystemInfo) { i.GPU.VRAMGB = 4 }, DeviceCPU, 0, 1},
		{"mid gpu", func(i *SystemInfo) { i.GPU.VRAMGB = 8 }, DeviceCUDA, 0, 1},
		{"few cores", func(i *SystemInfo) { i.CPUCores = 2 }, DeviceCUDA, 0, 1},
		{"low ram", func(i *SystemInfo) { i.MemAvailableGB = 4 }, DeviceCUDA, 1, 0},
		{"low disk", func(i *SystemInfo) { i.DiskFreeGB = 5 }, DeviceCUDA, 1, 0},
		{"tight disk", func(i *SystemInfo) { i.DiskFreeGB = 20 }, DeviceCUDA, 0, 1},
		{"plan9", func(i *SystemInfo) { i.OS = "plan9" }, DeviceCUDA, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := goodHost()
			tt.mut(&info)
			r := Evaluate(info, Minimum, Recommended)
			if r.Device != tt.device || len(r.Errors) != tt.errors || len(r.Warnings) != tt.warnings {
				t.Errorf("device=%s errors=%v warnings=%v, want %s/%d/%d",
					r.Device, r.Errors, r.Warnings, tt.device, tt.errors, tt.warnings)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	var gotDir string
	d := NewDetector("/projects/x", WithProbe(func(_ context.Context, dir string) (SystemInfo, error) {
		gotDir = dir
		return goodHost(), nil
	}))
	r, err := d.Detect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotDir != "/projects/x" || r.Device != DeviceCUDA {
		t.Errorf("dir=%q device=%s", gotDir, r.Device)
	}

	d = NewDetector("", WithProbe(func(context.Context, string) (SystemInfo, error) {
		return SystemInfo{}, errors.New("no /proc")
	}))
	if _, err := d.Detect(context.Background()); err == nil {
		t.Error("probe failure not returned")
	}
}

func TestHostInfo(t *testing.T) {
	info, err := HostInfo(context.Background(), t.TempDir())
	if err != nil {
		t.Skipf("host probe unavailable: %v", err)
	}
	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if info.CPUThreads < 1 || info.MemTotalGB <= 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestParseNvidiaSMI(t *testing.T) {
	g := parseNvidiaSMI([]byte("NVIDIA GeForce RTX 3090, 24576\nNVIDIA A100, 81920\n"))
	if g == nil || g.Name != "NVIDIA GeForce RTX 3090" || g.VRAMGB != 24 {
		t.Errorf("gpu = %+v", g)
	}
	if g := parseNvidiaSMI([]byte("No devices were found\n")); g != nil {
		t.Errorf("gpu = %+v, want nil", g)
	}
}

type toolkitStub bool

func (s toolkitStub) Available() bool { return bool(s) }

func TestSetup(t *testing.T) {
	root := t.TempDir()
	dirs := []string{filepath.Join(root, "data"), filepath.Join(root, "output", "nested"), ""}
	r, err := Setup{Dirs: dirs, Toolkit: toolkitStub(false)}.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Dirs) != 2 || r.Toolkit || len(r.Warnings) != 1 {
		t.Errorf("report = %+v", r)
	}
	for _, d := range dirs[:2] {
		entries, err := os.ReadDir(d)
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		if len(entries) != 0 {
			t.Errorf("%s: write probe left %d files", d, len(entries))
		}
	}
}

func TestSetupNotWritable(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Setup{Dirs: []string{filepath.Join(blocker, "sub")}}.Run(context.Background())
	if !voxerr.IsKind(err, voxerr.IOFailure) {
		t.Errorf("err = %v, want IOFailure", err)
	}
}
