package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("inference credential not configured")
	ErrEmptyResponse     = errors.New("provider returned empty response")
)

// Generator is the raw generative-AI capability: one prompt in, text out.
// The text is expected to hold a single JSON object but is not trusted.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt, schemaHint string) (string, error)
	Provider() string
	Model() string
}

// ProviderError carries the upstream HTTP status of a failed call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %s: %v", e.Provider, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
