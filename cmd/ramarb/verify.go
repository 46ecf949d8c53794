package main

import (
	"fmt"

	"github.com/sarchlab/ramarbiter/trace"
	"github.com/sarchlab/ramarbiter/verify"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify trace.sqlite3",
	Short: "Check a run recorded with run --sqlite.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		runID, _ := cmd.Flags().GetString("run")

		cfg, err := loadConfig(cmd, configPath)
		if err != nil {
			return err
		}

		params, err := cfg.Params()
		if err != nil {
			return err
		}

		events, err := trace.ReadSQLite(args[0], runID)
		if err != nil {
			return err
		}

		report := verify.NewReport(events, params)
		report.WriteReport(cmd.OutOrStdout())

		if !report.OK() {
			return fmt.Errorf("%d issues found", len(report.Issues))
		}

		return nil
	},
}

func init() {
	verifyCmd.Flags().String("config", "", "scenario the run was made with")
	verifyCmd.Flags().String("run", "", "run ID, the last run if empty")

	rootCmd.AddCommand(verifyCmd)
}
