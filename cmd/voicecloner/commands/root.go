package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/pkg/cli"
	"github.com/PlumbMonkey/voice-cloner/pkg/config"
	"github.com/PlumbMonkey/voice-cloner/pkg/envcheck"
	"github.com/PlumbMonkey/voice-cloner/pkg/kv"
	"github.com/PlumbMonkey/voice-cloner/pkg/voicecloner"
)

var (
	// Global flags
	configFile   string
	verbose      bool
	formatOutput string
	outputFile   string
)

// Test hooks.
var (
	testKVOverride kv.Store
	testProbe      envcheck.ProbeFunc
)

var rootCmd = &cobra.Command{
	Use:   "voicecloner",
	Short: "Clone a voice from recordings and convert audio with it",
	Long: `voicecloner - prepare recordings, learn a speaker and convert audio.

The workflow runs in five phases, each requiring the previous one:
  detect      check the host and pick a device
  setup       create the project directories
  preprocess  segment the input recordings
  train       build the speaker profile and checkpoint
  infer       prepare the conversion cascade

Phase state is kept in the project's state directory, so the phases can
run as separate invocations.

Configuration is read from voicecloner.yaml (see --config), then from a
.env file next to it, then from VOICECLONER_* environment variables.

Examples:
  voicecloner config init
  voicecloner detect && voicecloner setup
  voicecloner preprocess
  voicecloner train
  voicecloner infer
  voicecloner convert take1.wav --pitch 2`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		_, err := cli.ParseFormat(formatOutput)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&formatOutput, "format", "f", "text", "output format: text, yaml, json")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write the result to a file")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*voicecloner.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	var opts []voicecloner.Option
	if testKVOverride != nil {
		opts = append(opts, voicecloner.WithStore(testKVOverride))
	}
	if testProbe != nil {
		opts = append(opts, voicecloner.WithProbe(testProbe))
	}
	app, err := voicecloner.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	return app, nil
}

func printer() *cli.Printer {
	p := cli.NewPrinter(os.Stdout, os.Stderr)
	p.Verbose = verbose
	return p
}

// textOutput reports whether the command should render its own text view.
func textOutput() bool {
	f, _ := cli.ParseFormat(formatOutput)
	return f == cli.FormatText && outputFile == ""
}

func outputResult(result any) error {
	f, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{Format: f, File: outputFile})
}
