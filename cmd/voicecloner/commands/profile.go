package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/pkg/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect speaker profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored speaker profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		names, err := app.Profiles.Names(ctx)
		if err != nil {
			return err
		}
		if !textOutput() {
			return outputResult(names)
		}
		if len(names) == 0 {
			printer().Info("no profiles; run voicecloner train")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [speaker]",
	Short: "Show a speaker profile",
	Long: `Show the profile of the given speaker, or of the configured one.
Without a stored profile the configured profile file is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		var p *profile.Profile
		if len(args) == 1 {
			p, err = app.Profiles.Get(ctx, args[0])
			if errors.Is(err, profile.ErrNotFound) {
				return fmt.Errorf("no profile for speaker %q", args[0])
			}
		} else {
			p, err = app.TargetProfile(ctx)
			if err == nil && p == nil {
				return fmt.Errorf("no profile for speaker %q; run voicecloner train", app.Config.Training.Speaker)
			}
		}
		if err != nil {
			return err
		}
		if !textOutput() {
			return outputResult(p)
		}

		pr := printer()
		if p.Label != "" {
			pr.Info("label: %s", p.Label)
		}
		pr.Info("segments: %d @ %d Hz", p.Segments, p.SampleRate)
		pr.Info("pitch: %.1f to %.1f Hz", p.PitchRange.Min, p.PitchRange.Max)
		pr.Info("formants: %s", formatHz(p.Formants))
		pr.Info("centroid: %.0f Hz, rolloff: %.0f Hz", p.Centroid, p.Rolloff)
		if p.VibratoRate > 0 {
			pr.Info("vibrato: %.1f Hz, depth %.2f", p.VibratoRate, p.VibratoDepth)
		}
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <speaker>",
	Short: "Forget a speaker's profile and checkpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Forget(ctx, args[0]); err != nil {
			return err
		}
		printer().Success("forgot speaker %s", args[0])
		return nil
	},
}

func formatHz(fs []float64) string {
	if len(fs) == 0 {
		return "none"
	}
	s := ""
	for i, f := range fs {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%.0f", f)
	}
	return s + " Hz"
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
