package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"affection-tracker/internal/classifier"
)

// Backends de estado soportados por STATE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Modos de clasificador soportados por CLASSIFIER_MODE.
const (
	ClassifierHTTP    = "http"
	ClassifierLLM     = "llm"
	ClassifierKeyword = "keyword"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	StateBackend  string        `env:"STATE_BACKEND" envDefault:"memory"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"affection.db"`

	ClassifierMode    string        `env:"CLASSIFIER_MODE" envDefault:"keyword"`
	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierAPIKey  string        `env:"CLASSIFIER_API_KEY"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"10s"`
	LLMAPIKey         string        `env:"LLM_API_KEY"`
	LLMBaseURL        string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// ClassifyRateMax 0 desactiva el limite de llamadas al clasificador.
	ClassifyRateMax    int           `env:"CLASSIFY_RATE_MAX" envDefault:"0"`
	ClassifyRateWindow time.Duration `env:"CLASSIFY_RATE_WINDOW" envDefault:"1m"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"affection-host"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	ScoringConfigPath string `env:"SCORING_CONFIG_PATH"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StateBackend = strings.ToLower(strings.TrimSpace(cfg.StateBackend))
	cfg.ClassifierMode = strings.ToLower(strings.TrimSpace(cfg.ClassifierMode))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa que cada backend tenga lo que necesita.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("STATE_BACKEND=redis requires REDIS_ADDR")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STATE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}

	switch c.ClassifierMode {
	case ClassifierKeyword:
	case ClassifierHTTP:
		if c.ClassifierURL == "" {
			return fmt.Errorf("CLASSIFIER_MODE=http requires CLASSIFIER_URL")
		}
	case ClassifierLLM:
		if c.LLMAPIKey == "" {
			return fmt.Errorf("CLASSIFIER_MODE=llm requires LLM_API_KEY")
		}
	default:
		return fmt.Errorf("unknown CLASSIFIER_MODE %q", c.ClassifierMode)
	}
	return nil
}

// ClassifierOptions arma las opciones del clasificador; mode vacio usa CLASSIFIER_MODE.
func (c *Config) ClassifierOptions(mode string, labels []string) classifier.Options {
	if strings.TrimSpace(mode) == "" {
		mode = c.ClassifierMode
	}
	return classifier.Options{
		Mode:       strings.ToLower(strings.TrimSpace(mode)),
		URL:        c.ClassifierURL,
		APIKey:     c.ClassifierAPIKey,
		Timeout:    c.ClassifierTimeout,
		LLMBaseURL: c.LLMBaseURL,
		LLMAPIKey:  c.LLMAPIKey,
		LLMModel:   c.LLMModel,
		Labels:     labels,
	}
}
