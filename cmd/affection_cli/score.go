package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"affection-tracker/internal/service"
)

var (
	scoreJSON    bool
	scoreCurrent int
)

var scoreCmd = &cobra.Command{
	Use:   "score <text>",
	Short: "Classify a message and print the affection delta",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		eng, err := loadEngine(logger)
		if err != nil {
			return err
		}
		raw, err := eng.classifier.Classify(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("%w: %v", service.ErrClassificationUnavailable, err)
		}
		result, err := eng.pipeline.ScoreRaw(raw)
		if err != nil {
			return err
		}

		if scoreJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		ledger := service.NewAffectionLedger()
		key := cliKey("counterpart")
		ledger.Replace(stateWith(key, scoreCurrent))
		next := ledger.Apply(key, result.Delta)

		fmt.Printf("delta %+d (%d -> %d)\n", result.Delta, scoreCurrent, next)
		for _, line := range result.DiagnosticLog {
			fmt.Println("  " + line)
		}
		return nil
	},
}

var directiveCmd = &cobra.Command{
	Use:   "directive <score>",
	Short: "Print the band and directive for a score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("score must be an integer: %w", err)
		}
		eng, err := loadEngine(newLogger())
		if err != nil {
			return err
		}
		band := eng.directives.Band(score)
		fmt.Printf("[%s] %s\n", band.Name, eng.directives.Render(score, "counterpart"))
		return nil
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the full scoring result as JSON")
	scoreCmd.Flags().IntVar(&scoreCurrent, "current", 50, "current affection used to preview the new score")
}
