package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type GeminiService struct {
	Client          *genai.Client
	ModelName       string
	MaxOutputTokens int32
	logger          *zap.Logger
}

// NewGeminiService builds the Gemini generator. A missing API key is not an
// error here: the service is returned unconfigured and every call fails with
// ErrMissingCredential, which the gateway turns into a fallback.
func NewGeminiService(ctx context.Context, cfg *config.GeminiConfig, maxOutputTokens int, log *zap.Logger) (*GeminiService, error) {
	s := &GeminiService{
		ModelName:       cfg.Model,
		MaxOutputTokens: int32(maxOutputTokens),
		logger:          logger.WithProvider(log, config.ProviderGemini, cfg.Model),
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		s.logger.Warn("GEMINI_API_KEY not set, inference will run in fallback mode")
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	s.Client = client
	return s, nil
}

func (s *GeminiService) Provider() string { return config.ProviderGemini }

func (s *GeminiService) Model() string { return s.ModelName }

func (s *GeminiService) GenerateStructured(ctx context.Context, prompt, schemaHint string) (string, error) {
	if s.Client == nil {
		return "", ErrMissingCredential
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
	}
	if s.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = s.MaxOutputTokens
	}
	if hint := strings.TrimSpace(schemaHint); hint != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(
			"Respond with exactly one JSON object of this shape and nothing else: "+hint,
			genai.RoleUser,
		)
	}

	result, err := s.Client.Models.GenerateContent(ctx, s.ModelName, genai.Text(prompt), genConfig)
	if err != nil {
		return "", s.wrapError(err)
	}
	if err := validateGenerateResponse(result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyResponse, err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (s *GeminiService) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: config.ProviderGemini, StatusCode: apiErr.Code, Message: apiErr.Status, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ProviderError{Provider: config.ProviderGemini, StatusCode: apiErrPtr.Code, Message: apiErrPtr.Status, Err: err}
	}
	return fmt.Errorf("generate content: %w", err)
}

func validateGenerateResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("response is nil")
	}

	if len(resp.Candidates) == 0 {
		return fmt.Errorf("no candidates in response")
	}

	if resp.Candidates[0].Content == nil {
		return fmt.Errorf("candidate content is nil")
	}

	if len(resp.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("no parts in content")
	}

	return nil
}
