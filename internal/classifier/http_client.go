package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient llama a un endpoint de inferencia que recibe {"text": ...} y devuelve etiquetas con confianza.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPClient construye el cliente; timeout <= 0 usa 10s.
func NewHTTPClient(url, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (c *HTTPClient) Classify(ctx context.Context, text string) ([]byte, error) {
	bodyBytes, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("classifier error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return nil, fmt.Errorf("classifier http error: status=%d", resp.StatusCode)
	}
	return respBody, nil
}

type classifyRequest struct {
	Text string `json:"text"`
}
