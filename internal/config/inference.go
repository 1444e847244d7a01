package config

import (
	"strings"
	"sync"
	"time"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// DefaultInferenceTimeout also applies when a caller builds an
// InferenceConfig without a positive RequestTimeout.
const DefaultInferenceTimeout = 20 * time.Second

// InferenceConfig bounds every call made through the inference gateway.
type InferenceConfig struct {
	Provider         string
	RequestTimeout   time.Duration
	ContextBudget    int
	MaterialBudget   int
	HistoryTurns     int
	MaxOutputTokens  int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

var (
	inferenceConfig *InferenceConfig
	inferenceOnce   sync.Once
)

func LoadInferenceConfig() *InferenceConfig {
	inferenceOnce.Do(func() {
		inferenceConfig = newInferenceConfig()
	})
	return inferenceConfig
}

func newInferenceConfig() *InferenceConfig {
	provider := strings.ToLower(strings.TrimSpace(getString("INFERENCE_PROVIDER", ProviderGemini)))
	if provider != ProviderOpenRouter {
		provider = ProviderGemini
	}
	return &InferenceConfig{
		Provider:         provider,
		RequestTimeout:   getTimeout("INFERENCE_TIMEOUT", DefaultInferenceTimeout),
		ContextBudget:    getInt("INFERENCE_CONTEXT_BUDGET", 500),
		MaterialBudget:   getInt("INFERENCE_MATERIAL_BUDGET", 4000),
		HistoryTurns:     getInt("INFERENCE_HISTORY_TURNS", 10),
		MaxOutputTokens:  getInt("INFERENCE_MAX_OUTPUT_TOKENS", 1024),
		BreakerThreshold: getInt("INFERENCE_BREAKER_THRESHOLD", 5),
		BreakerCooldown:  getTimeout("INFERENCE_BREAKER_COOLDOWN", 30*time.Second),
	}
}
