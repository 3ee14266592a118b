package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PlumbMonkey/voice-cloner/pkg/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or show the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configFile); err == nil && !configForce {
			return fmt.Errorf("%s exists; use --force to overwrite", configFile)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.Default().Save(configFile); err != nil {
			return err
		}
		printer().Success("wrote %s", configFile)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after the file, the .env file and the
VOICECLONER_* environment variables were applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return outputResult(cfg)
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the supported environment variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !textOutput() {
			return outputResult(config.EnvNames())
		}
		for _, n := range config.EnvNames() {
			fmt.Println(n)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
