package classifier

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Options agrupa lo necesario para construir cualquiera de los clasificadores.
type Options struct {
	Mode       string
	URL        string
	APIKey     string
	Timeout    time.Duration
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	// Labels restringe las etiquetas que se le piden al LLM.
	Labels []string
}

// New elige la implementacion segun Mode: "http", "llm" o "keyword".
func New(opts Options, logger *zap.Logger) (Classifier, error) {
	switch opts.Mode {
	case "", "keyword":
		return NewKeywordClassifier(), nil
	case "http":
		if opts.URL == "" {
			return nil, fmt.Errorf("http classifier requires a url")
		}
		return NewHTTPClient(opts.URL, opts.APIKey, opts.Timeout, logger), nil
	case "llm":
		if opts.LLMAPIKey == "" {
			return nil, fmt.Errorf("llm classifier requires an api key")
		}
		return NewLLMClassifier(opts.LLMBaseURL, opts.LLMAPIKey, opts.LLMModel, opts.Labels, logger), nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", opts.Mode)
	}
}
