package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"affection-tracker/internal/classifier"
	"affection-tracker/internal/config"
	"affection-tracker/internal/domain"
	"affection-tracker/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

var (
	scenarioPath   string
	classifierMode string
)

var rootCmd = &cobra.Command{
	Use:   "scenario_check",
	Short: "Replay scripted conversations and check the final affection",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		scoring, err := config.LoadScoring(cfg.ScoringConfigPath)
		if err != nil {
			return err
		}
		pipeline, err := service.NewScoringPipeline(scoring)
		if err != nil {
			return err
		}
		directives, err := service.NewDirectiveMapper(scoring.Bands)
		if err != nil {
			return err
		}
		cls, err := classifier.New(cfg.ClassifierOptions(classifierMode, nil), zap.NewNop())
		if err != nil {
			return err
		}

		scenarios := defaultScenarios()
		if scenarioPath != "" {
			scenarios, err = loadScenarios(scenarioPath)
			if err != nil {
				return err
			}
		}

		newTurns := func() *service.TurnService {
			return service.NewTurnService(cls, pipeline, directives, nil, nil, zap.NewNop())
		}
		return runChecks(cmd, newTurns, scenarios)
	},
}

func init() {
	rootCmd.Flags().StringVar(&scenarioPath, "scenarios", "", "scenario TOML file (empty = built-in scenarios)")
	rootCmd.Flags().StringVar(&classifierMode, "classifier", config.ClassifierKeyword, "classifier mode: keyword, http or llm")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runChecks ejecuta cada escenario en una sesion nueva e imprime el resumen.
func runChecks(cmd *cobra.Command, newTurns func() *service.TurnService, scenarios []Scenario) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, sc := range scenarios {
		res, err := runScenario(cmd.Context(), newTurns(), sc)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		if !res.Passed {
			failed++
		}
		printResult(out, sc, res)
	}

	fmt.Fprintln(out, "==== Resumen ====")
	fmt.Fprintf(out, "%d/%d escenarios correctos\n", len(scenarios)-failed, len(scenarios))
	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

func printResult(out io.Writer, sc Scenario, res scenarioResult) {
	color := colorGreen
	status := "PASS"
	if !res.Passed {
		color = colorRed
		status = "FAIL"
	}
	fmt.Fprintf(out, "%s[%s]%s %s\n", color, status, colorReset, sc.Name)
	for _, step := range res.Steps {
		fmt.Fprintf(out, "  %s%s:%s %q -> %s\n", colorCyan, step.Speaker, colorReset, step.Content, step.Outcome)
	}
	fmt.Fprintf(out, "  final %d (expected %s)\n\n", res.Final, describeExpectation(sc.Expect))
}

func describeExpectation(e Expectation) string {
	switch {
	case e.Min == e.Max:
		return fmt.Sprintf("%d", e.Min)
	case e.Max >= domain.AffectionMax:
		return fmt.Sprintf(">= %d", e.Min)
	case e.Min <= domain.AffectionMin:
		return fmt.Sprintf("<= %d", e.Max)
	default:
		return fmt.Sprintf("%d..%d", e.Min, e.Max)
	}
}
