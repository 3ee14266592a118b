package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/pkg/cascade"
	"github.com/PlumbMonkey/voice-cloner/pkg/cli"
	"github.com/PlumbMonkey/voice-cloner/pkg/inference"
	"github.com/PlumbMonkey/voice-cloner/pkg/spectral"
)

var (
	convPitch  float64
	convF0     string
	convBlend  float64
	convPreset string
	convOut    string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one file with the cloned voice",
	Long: `Convert an audio file. The strategies of the cascade are tried in
order (learned, profile, external, simulation) until one succeeds.

The result is written to the output store as <name>_converted.wav unless
--out is given.

Examples:
  voicecloner convert take1.wav
  voicecloner convert take1.wav --pitch -3 --preset strong
  voicecloner convert take1.wav --out takes/take1_alice.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Convert every audio file in a directory",
	Long: `Convert every supported file under dir. A file that fails is
reported and the batch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func conversionOptions(cmd *cobra.Command, defaults inference.Options) (inference.Options, error) {
	o := defaults
	flags := cmd.Flags()
	if flags.Changed("pitch") {
		o.PitchShift = convPitch
	}
	if flags.Changed("f0") {
		m, ok := cascade.ParseF0Method(convF0)
		if !ok {
			return o, fmt.Errorf("unknown f0 method %q (want one of %v)", convF0, cascade.F0Methods())
		}
		o.F0Method = string(m)
	}
	if flags.Changed("blend") {
		if convBlend < 0 || convBlend > 1 {
			return o, fmt.Errorf("--blend must be in [0, 1], got %g", convBlend)
		}
		o.Blend = convBlend
	}
	if flags.Changed("preset") {
		if _, err := spectral.LookupPreset(convPreset); err != nil {
			return o, err
		}
		o.Preset = convPreset
	}
	return o, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	opts, err := conversionOptions(cmd, app.ConversionOptions())
	if err != nil {
		return err
	}
	svc, err := app.Controller.Engine(ctx)
	if err != nil {
		return err
	}
	src, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	conv, err := svc.ConvertFile(ctx, src, convOut, opts)
	if err != nil {
		return err
	}
	if !textOutput() {
		return outputResult(conv)
	}
	printer().Success("%s -> %s via %s (%s audio, %s, pitch %s)",
		filepath.Base(conv.Source), conv.Output, conv.Strategy,
		cli.FormatDuration(conv.Duration), cli.FormatDuration(conv.Elapsed), cli.FormatSemitones(opts.PitchShift))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	opts, err := conversionOptions(cmd, app.ConversionOptions())
	if err != nil {
		return err
	}
	svc, err := app.Controller.Engine(ctx)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	report, err := svc.BatchConvert(ctx, dir, convOut, opts)
	if err != nil {
		return err
	}

	if !textOutput() {
		failures := make(map[string]string, len(report.Failures))
		for _, f := range report.Failures {
			failures[f.Path] = f.Err.Error()
		}
		return outputResult(map[string]any{
			"run":         report.Run,
			"succeeded":   report.Succeeded,
			"failed":      report.Failed,
			"conversions": report.Conversions,
			"failures":    failures,
		})
	}
	p := printer()
	for _, c := range report.Conversions {
		p.Debug("%s -> %s via %s", c.Source, c.Output, c.Strategy)
	}
	for _, f := range report.Failures {
		p.Warn("%s: %v", f.Path, f.Err)
	}
	p.Success("%d converted, %d failed", report.Succeeded, report.Failed)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{convertCmd, batchCmd} {
		c.Flags().Float64VarP(&convPitch, "pitch", "p", 0, "pitch shift in semitones, positive raises")
		c.Flags().StringVar(&convF0, "f0", "", "F0 method passed to the external toolkit")
		c.Flags().Float64Var(&convBlend, "blend", 0, "conversion strength in [0, 1]; 0 uses the preset's")
		c.Flags().StringVar(&convPreset, "preset", "", fmt.Sprintf("spectral preset %v", spectral.PresetNames()))
	}
	convertCmd.Flags().StringVar(&convOut, "out", "", "output path in the output store")
	batchCmd.Flags().StringVar(&convOut, "out", "", "output directory in the output store")
	rootCmd.AddCommand(convertCmd, batchCmd)
}
