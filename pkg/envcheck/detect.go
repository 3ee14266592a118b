// Package envcheck inspects the host before a project is set up: it
// compares the machine against minimum and recommended specs, picks a
// training device and prepares the project directories.
package envcheck

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const gib = 1 << 30

// Specs is a set of hardware thresholds.
type Specs struct {
	CPUCores int
	RAMGB    float64
	VRAMGB   float64
	DiskGB   float64
}

var (
	// Minimum are the specs below which detection reports errors (RAM,
	// disk) or warnings (CPU, VRAM).
	Minimum = Specs{CPUCores: 4, RAMGB: 8, VRAMGB: 6, DiskGB: 10}

	// Recommended are the specs for comfortable training.
	Recommended = Specs{CPUCores: 8, RAMGB: 16, VRAMGB: 12, DiskGB: 50}
)

// SupportedOS lists the operating systems the toolchain runs on.
var SupportedOS = []string{"linux", "darwin", "windows"}

// GPU describes a CUDA device.
type GPU struct {
	Name   string
	VRAMGB float64
}

// SystemInfo is a snapshot of the host.
type SystemInfo struct {
	OS              string
	Platform        string
	PlatformVersion string
	CPUCores        int
	CPUThreads      int
	MemTotalGB      float64
	MemAvailableGB  float64
	DiskFreeGB      float64
	GPU             *GPU // nil when no GPU was found
}

// Device names.
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Report is the result of a detection run.
type Report struct {
	Info     SystemInfo
	Device   string
	Checks   map[string]bool
	Warnings []string
	Errors   []string
}

// OK reports whether detection found no errors.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// ProbeFunc gathers host information; dir is the path whose filesystem is
// checked for free space.
type ProbeFunc func(ctx context.Context, dir string) (SystemInfo, error)

// Detector checks the host against Specs.
type Detector struct {
	dir         string
	probe       ProbeFunc
	minimum     Specs
	recommended Specs
}

// Option configures a Detector.
type Option func(*Detector)

// WithProbe replaces the host probe.
func WithProbe(p ProbeFunc) Option {
	return func(d *Detector) { d.probe = p }
}

// WithSpecs sets the minimum and recommended thresholds.
func WithSpecs(minimum, recommended Specs) Option {
	return func(d *Detector) {
		d.minimum = minimum
		d.recommended = recommended
	}
}

// NewDetector returns a Detector measuring free disk space at dir.
func NewDetector(dir string, opts ...Option) *Detector {
	d := &Detector{
		dir:         dir,
		probe:       HostInfo,
		minimum:     Minimum,
		recommended: Recommended,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect probes the host and evaluates it. A probe failure is returned as
// an error; hardware shortfalls are reported in the Report.
func (d *Detector) Detect(ctx context.Context) (*Report, error) {
	info, err := d.probe(ctx, d.dir)
	if err != nil {
		return nil, fmt.Errorf("envcheck: probe: %w", err)
	}
	r := Evaluate(info, d.minimum, d.recommended)
	slog.Info("envcheck: system",
		"os", info.OS, "platform", info.Platform,
		"cores", info.CPUCores, "threads", info.CPUThreads,
		"ram_gb", round2(info.MemTotalGB), "ram_available_gb", round2(info.MemAvailableGB),
		"disk_free_gb", round2(info.DiskFreeGB), "device", r.Device)
	for _, w := range r.Warnings {
		slog.Warn("envcheck: " + w)
	}
	for _, e := range r.Errors {
		slog.Error("envcheck: " + e)
	}
	return r, nil
}

// Evaluate compares info against the thresholds.
func Evaluate(info SystemInfo, minimum, recommended Specs) *Report {
	r := &Report{Info: info, Device: DeviceCPU, Checks: make(map[string]bool)}

	r.Checks["os"] = slices.Contains(SupportedOS, info.OS)
	if !r.Checks["os"] {
		r.Errors = append(r.Errors, fmt.Sprintf("unsupported OS %q", info.OS))
	}

	switch g := info.GPU; {
	case g == nil:
		r.Warnings = append(r.Warnings, "no GPU detected, training runs on the CPU and is much slower")
	case g.VRAMGB < minimum.VRAMGB:
		r.Warnings = append(r.Warnings, fmt.Sprintf("GPU VRAM %.1f GB below minimum %.0f GB, training runs on the CPU", g.VRAMGB, minimum.VRAMGB))
	default:
		r.Device = DeviceCUDA
		if g.VRAMGB < recommended.VRAMGB {
			r.Warnings = append(r.Warnings, fmt.Sprintf("GPU VRAM %.1f GB below recommended %.0f GB", g.VRAMGB, recommended.VRAMGB))
		}
	}
	r.Checks["gpu"] = r.Device == DeviceCUDA

	r.Checks["cpu"] = info.CPUCores >= minimum.CPUCores
	if !r.Checks["cpu"] {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d CPU cores below minimum %d", info.CPUCores, minimum.CPUCores))
	}

	r.Checks["memory"] = info.MemAvailableGB >= minimum.RAMGB
	if !r.Checks["memory"] {
		r.Errors = append(r.Errors, fmt.Sprintf("available RAM %.1f GB below minimum %.0f GB", info.MemAvailableGB, minimum.RAMGB))
	} else if info.MemTotalGB < recommended.RAMGB {
		r.Warnings = append(r.Warnings, fmt.Sprintf("RAM %.1f GB below recommended %.0f GB", info.MemTotalGB, recommended.RAMGB))
	}

	r.Checks["disk"] = info.DiskFreeGB >= minimum.DiskGB
	if !r.Checks["disk"] {
		r.Errors = append(r.Errors, fmt.Sprintf("free disk %.1f GB below minimum %.0f GB", info.DiskFreeGB, minimum.DiskGB))
	} else if info.DiskFreeGB < recommended.DiskGB {
		r.Warnings = append(r.Warnings, fmt.Sprintf("free disk %.1f GB below recommended %.0f GB", info.DiskFreeGB, recommended.DiskGB))
	}
	return r
}

// HostInfo reads the host with gopsutil. The GPU is looked up with
// nvidia-smi when it is installed.
func HostInfo(ctx context.Context, dir string) (SystemInfo, error) {
	var info SystemInfo
	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return info, fmt.Errorf("host: %w", err)
	}
	info.OS, info.Platform, info.PlatformVersion = h.OS, h.Platform, h.PlatformVersion

	if info.CPUCores, err = cpu.CountsWithContext(ctx, false); err != nil {
		return info, fmt.Errorf("cpu: %w", err)
	}
	if info.CPUThreads, err = cpu.CountsWithContext(ctx, true); err != nil {
		return info, fmt.Errorf("cpu: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return info, fmt.Errorf("memory: %w", err)
	}
	info.MemTotalGB = float64(vm.Total) / gib
	info.MemAvailableGB = float64(vm.Available) / gib

	if dir == "" {
		dir = "."
	}
	du, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return info, fmt.Errorf("disk %s: %w", dir, err)
	}
	info.DiskFreeGB = float64(du.Free) / gib

	info.GPU = nvidiaGPU(ctx)
	return info, nil
}

func nvidiaGPU(ctx context.Context) *GPU {
	bin, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return nil
	}
	out, err := exec.CommandContext(ctx, bin, "--query-gpu=name,memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		slog.Debug("envcheck: nvidia-smi failed", "error", err)
		return nil
	}
	return parseNvidiaSMI(out)
}

// parseNvidiaSMI reads the first "name, MiB" line.
func parseNvidiaSMI(out []byte) *GPU {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, mib, ok := strings.Cut(sc.Text(), ",")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(mib), 64)
		if err != nil {
			continue
		}
		return &GPU{Name: strings.TrimSpace(name), VRAMGB: v / 1024}
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
