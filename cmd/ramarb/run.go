package main

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/ramarbiter/config"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/trace"
	"github.com/sarchlab/ramarbiter/verify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [config.yaml]",
	Short: "Run a scenario.",
	Long: "Run a scenario and print the per-port statistics. Without a " +
		"config file, the default two-port scenario runs.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScenario,
}

func init() {
	runCmd.Flags().Bool("monitor", false, "serve the akita monitor while running")
	runCmd.Flags().String("sqlite", "", "record every event into this database")
	runCmd.Flags().Bool("verify", false, "check the recorded run")
	runCmd.Flags().String("report", "", "also save the verification report here")

	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("sqlite") {
		cfg.Trace.SQLite, _ = cmd.Flags().GetString("sqlite")
	}

	if cmd.Flags().Changed("verify") {
		cfg.Trace.Verify, _ = cmd.Flags().GetBool("verify")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	var recorders []trace.Recorder

	rec := trace.NewMemoryRecorder()
	if cfg.Trace.Verify {
		recorders = append(recorders, rec)
	}

	if cfg.Trace.SQLite != "" {
		db, err := trace.NewSQLiteRecorder(cfg.Trace.SQLite)
		if err != nil {
			return err
		}

		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("closing trace database", "error", err)
			}
		}()

		recorders = append(recorders, db)
	}

	b := config.PlatformBuilder{}.WithConfig(cfg)

	if len(recorders) > 0 {
		b = b.WithHook(trace.NewHook(recorders...))
	}

	var monitor *monitoring.Monitor

	if useMonitor, _ := cmd.Flags().GetBool("monitor"); useMonitor {
		monitor = monitoring.NewMonitor()
		b = b.WithMonitor(monitor)
	}

	platform := b.Build("Platform")

	if monitor != nil {
		monitor.StartServer()
	}

	slog.Info("Run", "Config", path, "Ports", cfg.Arbiter.NumPorts)

	platform.Run()

	out := cmd.OutOrStdout()
	core.PrintStats(out, platform.Arbiter)

	for i := range cfg.Ports {
		fmt.Fprintf(out, "port %d: %+v\n", i, platform.Driver.Flags(ram.PortID(i)))
	}

	if !cfg.Trace.Verify {
		return nil
	}

	report := verify.NewReport(rec.Events(), platform.Arbiter.Params())
	report.WriteReport(out)

	if file, _ := cmd.Flags().GetString("report"); file != "" {
		if err := report.SaveReportToFile(file); err != nil {
			return err
		}
	}

	if !report.OK() {
		return fmt.Errorf("%d issues found", len(report.Issues))
	}

	return nil
}
