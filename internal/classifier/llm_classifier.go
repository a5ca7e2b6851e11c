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

// LLMClassifier usa un modelo de chat compatible con OpenAI como clasificador de emociones.
// Se le pide una lista JSON [{"label": ..., "score": ...}] restringida a las etiquetas conocidas.
type LLMClassifier struct {
	baseURL string
	apiKey  string
	model   string
	labels  []string
	client  *http.Client
	logger  *zap.Logger
}

func NewLLMClassifier(baseURL, apiKey, model string, labels []string, logger *zap.Logger) *LLMClassifier {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		labels:  labels,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) ([]byte, error) {
	content, err := c.generate(ctx, c.prompt(text))
	if err != nil {
		return nil, err
	}
	payload := extractFirstJSONValue(cleanLLMJSONResponse(content))
	if payload == "" {
		return nil, fmt.Errorf("llm classifier: no json in response")
	}
	return []byte(payload), nil
}

func (c *LLMClassifier) prompt(text string) string {
	var b strings.Builder
	b.WriteString("You are an emotion classifier. Rate every emotion expressed by the speaker of the message below.\n")
	if len(c.labels) > 0 {
		b.WriteString("Use only these labels: ")
		b.WriteString(strings.Join(c.labels, ", "))
		b.WriteString(".\n")
	}
	b.WriteString(`Return ONLY a JSON array sorted by score, for example:
[{"label": "joy", "score": 0.82}, {"label": "neutral", "score": 0.10}]
Scores are probabilities between 0 and 1.

Message:
`)
	b.WriteString(strings.TrimSpace(text))
	return b.String()
}

func (c *LLMClassifier) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return "", fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("llm api error: %s", cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("llm empty response")
	}

	return cr.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
