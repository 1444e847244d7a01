package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// OpenRouterService talks to an OpenAI-compatible chat completions endpoint.
type OpenRouterService struct {
	APIKey          string
	ModelName       string
	MaxOutputTokens int
	client          *resty.Client
	logger          *zap.Logger
}

func NewOpenRouterService(cfg *config.OpenRouterConfig, maxOutputTokens int, log *zap.Logger) *OpenRouterService {
	s := &OpenRouterService{
		APIKey:          strings.TrimSpace(cfg.APIKey),
		ModelName:       cfg.Model,
		MaxOutputTokens: maxOutputTokens,
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetHeader("Content-Type", "application/json"),
		logger: logger.WithProvider(log, config.ProviderOpenRouter, cfg.Model),
	}
	if s.APIKey == "" {
		s.logger.Warn("OPENROUTER_API_KEY not set, inference will run in fallback mode")
	}
	return s
}

func (s *OpenRouterService) Provider() string { return config.ProviderOpenRouter }

func (s *OpenRouterService) Model() string { return s.ModelName }

func (s *OpenRouterService) GenerateStructured(ctx context.Context, prompt, schemaHint string) (string, error) {
	if s.APIKey == "" {
		return "", ErrMissingCredential
	}

	system := "You are an assistant for a hiring platform. Respond with exactly one JSON object and nothing else."
	if hint := strings.TrimSpace(schemaHint); hint != "" {
		system += " Shape: " + hint
	}

	body := map[string]any{
		"model": s.ModelName,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	if s.MaxOutputTokens > 0 {
		body["max_tokens"] = s.MaxOutputTokens
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.APIKey).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}

	if resp.IsError() {
		msg := gjson.Get(resp.String(), "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return "", &ProviderError{Provider: config.ProviderOpenRouter, StatusCode: resp.StatusCode(), Message: msg}
	}

	text := strings.TrimSpace(gjson.Get(resp.String(), "choices.0.message.content").String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
