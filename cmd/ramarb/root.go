package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sarchlab/ramarbiter/config"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ramarb",
	Short: "ramarb simulates a port arbiter in front of a shared memory.",
	Long: `ramarb simulates a port arbiter that packs the single-word ` +
		`requests of several ports into bursts on one memory bus and ` +
		`routes the completions back to the ports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		return setUpLogger(level)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version.",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "ramarb", version)
	},
}

var defaultConfigCmd = &cobra.Command{
	Use:   "default-config",
	Short: "Print the default scenario as YAML.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := config.Default().Marshal()
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(data)

		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn",
		"trace, debug, info, warn or error")
	rootCmd.PersistentFlags().String("env-file", ".env",
		"file with RAMARB_* variables")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(defaultConfigCmd)
}

func setUpLogger(name string) error {
	var level slog.Level

	switch strings.ToLower(name) {
	case "trace":
		level = core.LevelTrace
	default:
		if err := level.UnmarshalText([]byte(name)); err != nil {
			return fmt.Errorf("log level %q: %w", name, err)
		}
	}

	handler := slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return nil
}

// loadConfig reads the scenario file, or the default scenario if path is
// empty, and applies the environment on top.
func loadConfig(cmd *cobra.Command, path string) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()

	if path != "" {
		var err error

		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}
