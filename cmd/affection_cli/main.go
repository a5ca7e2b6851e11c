package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"affection-tracker/internal/classifier"
	"affection-tracker/internal/config"
	"affection-tracker/internal/service"
)

var (
	scoringPath    string
	classifierMode string
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "affection",
	Short: "affection - emotion-driven relationship scoring",
	Long:  `affection scores counterpart messages by their emotions and tracks a 0-100 affection value per relationship.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scoringPath, "scoring", "", "scoring table TOML (default from SCORING_CONFIG_PATH, empty = built-in table)")
	rootCmd.PersistentFlags().StringVar(&classifierMode, "classifier", "", "classifier mode: keyword, http or llm (default from CLASSIFIER_MODE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(directiveCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

// engine agrupa lo que comparten los subcomandos.
type engine struct {
	cfg        *config.Config
	scoring    service.ScoringConfig
	pipeline   *service.ScoringPipeline
	directives *service.DirectiveMapper
	classifier classifier.Classifier
}

// resolveScoringPath prefiere --scoring y luego SCORING_CONFIG_PATH.
func resolveScoringPath() (string, error) {
	if scoringPath != "" {
		return scoringPath, nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", err
	}
	return cfg.ScoringConfigPath, nil
}

func loadEngine(logger *zap.Logger) (*engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	path := scoringPath
	if path == "" {
		path = cfg.ScoringConfigPath
	}
	scoring, err := config.LoadScoring(path)
	if err != nil {
		return nil, err
	}
	pipeline, err := service.NewScoringPipeline(scoring)
	if err != nil {
		return nil, err
	}
	directives, err := service.NewDirectiveMapper(scoring.Bands)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(scoring.Weights))
	for label := range scoring.Weights {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	cls, err := classifier.New(cfg.ClassifierOptions(classifierMode, labels), logger)
	if err != nil {
		return nil, err
	}
	return &engine{
		cfg:        cfg,
		scoring:    scoring,
		pipeline:   pipeline,
		directives: directives,
		classifier: cls,
	}, nil
}
