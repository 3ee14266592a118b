package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/pkg/cli"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Check the host and pick a device",
	Long: `Check the operating system, CPU, memory, disk and GPU against the
minimum and recommended requirements.

Errors fail the phase. Warnings are reported and the phase completes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := app.Controller.Detect(ctx)
		if report == nil {
			return err
		}
		if !textOutput() {
			if oerr := outputResult(report); oerr != nil {
				return oerr
			}
			return err
		}

		p := printer()
		info := report.Info
		p.Info("os: %s %s %s", info.OS, info.Platform, info.PlatformVersion)
		p.Info("cpu: %d cores, %d threads", info.CPUCores, info.CPUThreads)
		p.Info("memory: %s total, %s available", cli.FormatGB(info.MemTotalGB), cli.FormatGB(info.MemAvailableGB))
		p.Info("disk: %s free", cli.FormatGB(info.DiskFreeGB))
		if info.GPU != nil {
			p.Info("gpu: %s (%s)", info.GPU.Name, cli.FormatGB(info.GPU.VRAMGB))
		} else {
			p.Info("gpu: none")
		}
		for _, w := range report.Warnings {
			p.Warn("%s", w)
		}
		for _, e := range report.Errors {
			p.Error("%s", e)
		}
		if err != nil {
			return err
		}
		p.Success("device: %s", report.Device)
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the project directories and probe the toolkit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := app.Controller.Setup(ctx)
		if err != nil {
			return err
		}
		if !textOutput() {
			return outputResult(report)
		}
		p := printer()
		for _, d := range report.Dirs {
			p.Debug("dir: %s", d)
		}
		for _, w := range report.Warnings {
			p.Warn("%s", w)
		}
		p.Success("project ready: %d directories", len(report.Dirs))
		return nil
	},
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess [input-dir]",
	Short: "Segment the input recordings",
	Long: `Validate the recordings in the input directory (or the configured
one), split them on silence into segments and write the segments, the
train/val manifests and the F0 contours to the data store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		dir := app.Config.Paths.Input
		if len(args) == 1 {
			if dir, err = filepath.Abs(args[0]); err != nil {
				return err
			}
		}
		report, err := app.Controller.Preprocess(ctx, dir)
		if err != nil {
			return err
		}

		st := report.Stats()
		summary := preprocessSummary{
			Run:             report.Run,
			Files:           len(report.Validation.Valid),
			Rejected:        len(report.Validation.Rejected),
			Segments:        st.Segments,
			TotalDuration:   st.TotalDuration.String(),
			AverageDuration: st.AverageDuration.String(),
		}
		for _, r := range report.Validation.Rejected {
			summary.Problems = append(summary.Problems, fmt.Sprintf("%s: %v", r.Path, r.Err))
		}
		for _, r := range report.Skipped {
			summary.Problems = append(summary.Problems, fmt.Sprintf("%s: %v", r.Path, r.Err))
		}
		if !textOutput() {
			return outputResult(summary)
		}

		p := printer()
		for _, msg := range summary.Problems {
			p.Warn("%s", msg)
		}
		if report.Validation.BelowRecommended {
			p.Warn("only %s of audio; more recordings improve the result", cli.FormatDuration(report.Validation.TotalDuration))
		}
		p.Success("%d segments from %d files, %s total, %s average",
			st.Segments, summary.Files, cli.FormatDuration(st.TotalDuration), cli.FormatDuration(st.AverageDuration))
		return nil
	},
}

type preprocessSummary struct {
	Run             string   `json:"run" yaml:"run"`
	Files           int      `json:"files" yaml:"files"`
	Rejected        int      `json:"rejected" yaml:"rejected"`
	Segments        int      `json:"segments" yaml:"segments"`
	TotalDuration   string   `json:"total_duration" yaml:"total_duration"`
	AverageDuration string   `json:"average_duration" yaml:"average_duration"`
	Problems        []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build the speaker profile and checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Controller.Train(ctx)
		if err != nil {
			return err
		}
		summary := trainSummary{
			Speaker:     app.Config.Training.Speaker,
			Checkpoint:  res.Path,
			Checkpoints: res.Checkpoints,
			Segments:    res.Segments,
			Consistency: res.Verdict.Status.String(),
			Confidence:  res.Verdict.Confidence,
			Estimate:    res.Estimate.String(),
		}
		if !textOutput() {
			return outputResult(summary)
		}
		p := printer()
		p.Info("speaker %s: %d segments, consistency %s (%.2f)",
			summary.Speaker, summary.Segments, summary.Consistency, summary.Confidence)
		p.Info("a full training run would take about %s", cli.FormatDuration(res.Estimate))
		p.Success("checkpoint %s", res.Path)
		return nil
	},
}

type trainSummary struct {
	Speaker     string  `json:"speaker" yaml:"speaker"`
	Checkpoint  string  `json:"checkpoint" yaml:"checkpoint"`
	Checkpoints int     `json:"checkpoints" yaml:"checkpoints"`
	Segments    int     `json:"segments" yaml:"segments"`
	Consistency string  `json:"consistency" yaml:"consistency"`
	Confidence  float32 `json:"confidence" yaml:"confidence"`
	Estimate    string  `json:"estimate" yaml:"estimate"`
}

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Prepare the conversion cascade",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		svc, err := app.Controller.Infer(ctx)
		if err != nil {
			return err
		}
		if !textOutput() {
			return outputResult(map[string]any{"strategies": svc.Strategies()})
		}
		printer().Success("ready for inference: %v", svc.Strategies())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd, setupCmd, preprocessCmd, trainCmd, inferCmd)
}
