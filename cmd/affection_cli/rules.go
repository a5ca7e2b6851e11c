package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"affection-tracker/internal/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate scoring tables",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a scoring table file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveScoringPath()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := config.LoadScoring(path)
		if err != nil {
			return err
		}
		source := path
		if source == "" {
			source = "built-in table"
		}
		fmt.Printf("%s: ok (%d weights, %d combinations, %d bands, min_confidence %.2f, %s weights)\n",
			source, len(cfg.Weights), len(cfg.Combinations), len(cfg.Bands), cfg.MinConfidence, cfg.WeightMode)
		return nil
	},
}

var rulesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective scoring table as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveScoringPath()
		if err != nil {
			return err
		}
		cfg, err := config.LoadScoring(path)
		if err != nil {
			return err
		}
		out, err := config.EncodeScoring(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesDumpCmd)
}
