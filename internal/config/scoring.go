package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"affection-tracker/internal/domain"
	"affection-tracker/internal/service"
)

//go:embed default_scoring.toml
var defaultScoringTOML []byte

// scoringFile es la forma en disco de la tabla de puntuacion.
// Los punteros y slices nil marcan secciones ausentes.
type scoringFile struct {
	MinConfidence  *float64            `toml:"min_confidence"`
	ExcludeNeutral *bool               `toml:"exclude_neutral"`
	WeightMode     *string             `toml:"weight_mode"`
	Weights        map[string]int      `toml:"weights"`
	Expansion      map[string][]string `toml:"expansion"`
	Combinations   []combinationFile   `toml:"combination"`
	Bands          []bandFile          `toml:"band"`
}

type combinationFile struct {
	Name                    string                    `toml:"name"`
	Score                   int                       `toml:"score"`
	Description             string                    `toml:"description"`
	RequiredTotalConfidence *float64                  `toml:"required_total_confidence"`
	Core                    []domain.EmotionThreshold `toml:"core"`
	Support                 []domain.EmotionThreshold `toml:"support"`
}

type bandFile struct {
	Name           string `toml:"name"`
	Upper          int    `toml:"upper"`
	UpperInclusive bool   `toml:"upper_inclusive"`
	Directive      string `toml:"directive"`
}

// DefaultScoring devuelve la tabla embebida ya validada.
func DefaultScoring() (service.ScoringConfig, error) {
	parsed, err := parseScoring(defaultScoringTOML)
	if err != nil {
		return service.ScoringConfig{}, fmt.Errorf("default scoring table: %w", err)
	}
	cfg := parsed.toScoringConfig(service.ScoringConfig{
		MinConfidence: 0.1,
		WeightMode:    domain.WeightModeScaled,
	})
	if err := cfg.Validate(); err != nil {
		return service.ScoringConfig{}, fmt.Errorf("default scoring table: %w", err)
	}
	return cfg, nil
}

// LoadScoring lee una tabla TOML. Path vacio devuelve la tabla por defecto.
// Las secciones ausentes heredan la tabla por defecto; las presentes la reemplazan completa.
func LoadScoring(path string) (service.ScoringConfig, error) {
	base, err := DefaultScoring()
	if err != nil {
		return service.ScoringConfig{}, err
	}
	if strings.TrimSpace(path) == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return service.ScoringConfig{}, fmt.Errorf("read scoring config: %w", err)
	}
	parsed, err := parseScoring(data)
	if err != nil {
		return service.ScoringConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg := parsed.toScoringConfig(base)
	if err := cfg.Validate(); err != nil {
		return service.ScoringConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func parseScoring(data []byte) (scoringFile, error) {
	var parsed scoringFile
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return scoringFile{}, fmt.Errorf("%w: %v", service.ErrInvalidScoringConfig, err)
	}
	return parsed, nil
}

func (f scoringFile) toScoringConfig(base service.ScoringConfig) service.ScoringConfig {
	cfg := base
	if f.MinConfidence != nil {
		cfg.MinConfidence = *f.MinConfidence
	}
	if f.ExcludeNeutral != nil {
		cfg.ExcludeNeutral = *f.ExcludeNeutral
	}
	if f.WeightMode != nil {
		cfg.WeightMode = domain.WeightMode(strings.ToLower(strings.TrimSpace(*f.WeightMode)))
	}
	if f.Weights != nil {
		cfg.Weights = f.Weights
	}
	if f.Expansion != nil {
		cfg.Expansion = f.Expansion
	}
	if f.Combinations != nil {
		rules := make([]domain.CombinationRule, 0, len(f.Combinations))
		for _, c := range f.Combinations {
			rules = append(rules, domain.CombinationRule{
				Name:                    c.Name,
				Score:                   c.Score,
				Core:                    c.Core,
				Support:                 c.Support,
				RequiredTotalConfidence: c.RequiredTotalConfidence,
				Description:             c.Description,
			})
		}
		cfg.Combinations = rules
	}
	if f.Bands != nil {
		bands := make([]domain.ScoreBand, 0, len(f.Bands))
		for _, b := range f.Bands {
			bands = append(bands, domain.ScoreBand{
				Name:           b.Name,
				Upper:          b.Upper,
				UpperInclusive: b.UpperInclusive,
				Directive:      b.Directive,
			})
		}
		cfg.Bands = bands
	}
	return cfg
}

// EncodeScoring serializa una configuracion al mismo formato TOML.
func EncodeScoring(cfg service.ScoringConfig) ([]byte, error) {
	mode := string(cfg.WeightMode)
	out := scoringFile{
		MinConfidence:  &cfg.MinConfidence,
		ExcludeNeutral: &cfg.ExcludeNeutral,
		WeightMode:     &mode,
		Weights:        cfg.Weights,
		Expansion:      cfg.Expansion,
	}
	for _, r := range cfg.Combinations {
		out.Combinations = append(out.Combinations, combinationFile{
			Name:                    r.Name,
			Score:                   r.Score,
			Description:             r.Description,
			RequiredTotalConfidence: r.RequiredTotalConfidence,
			Core:                    r.Core,
			Support:                 r.Support,
		})
	}
	for _, b := range cfg.Bands {
		out.Bands = append(out.Bands, bandFile(b))
	}
	return toml.Marshal(out)
}
