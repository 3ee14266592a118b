package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/cmd/voicecloner/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !textOutput() {
			return outputResult(build.Get())
		}
		fmt.Println(build.String())
		if IsVerbose() {
			info := build.Get()
			fmt.Printf("  go:     %s\n", info.Go)
			if cfg, err := loadConfig(); err == nil {
				fmt.Printf("  config: %s\n", cfg.Path())
				fmt.Printf("  project: %s\n", cfg.Paths.Project)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
