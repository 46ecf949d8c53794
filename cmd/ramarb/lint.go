package main

import (
	"fmt"

	"github.com/sarchlab/ramarbiter/config"
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint config.yaml...",
	Short: "Check that scenarios can be built.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0

		for _, path := range args {
			cfg, err := config.Load(path)
			if err == nil {
				err = cfg.Validate()
			}

			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", path, err)

				continue
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d configs are invalid", failed, len(args))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
