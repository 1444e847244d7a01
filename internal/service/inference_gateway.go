package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/fadilmartias/hireflow/internal/model"
	"go.uber.org/zap"
)

// FailureReason classifies why a gateway call produced no usable result.
type FailureReason string

const (
	ReasonMissingCredential FailureReason = "missing_credential"
	ReasonNetwork           FailureReason = "network"
	ReasonTimeout           FailureReason = "timeout"
	ReasonQuota             FailureReason = "quota"
	ReasonUpstream          FailureReason = "upstream"
	ReasonMalformedOutput   FailureReason = "malformed_output"
	ReasonSchemaMismatch    FailureReason = "schema_mismatch"
	ReasonCircuitOpen       FailureReason = "circuit_open"
	ReasonCanceled          FailureReason = "canceled"
	ReasonPanic             FailureReason = "panic"
)

// InferenceFailure is the only error the gateway returns.
type InferenceFailure struct {
	Reason FailureReason
	Err    error
}

func (e *InferenceFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failure (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("inference failure (%s)", e.Reason)
}

func (e *InferenceFailure) Unwrap() error {
	return e.Err
}

// PromptSpec describes one gateway call. Context and Material are truncated
// to the gateway budgets and History to the most recent turns.
type PromptSpec struct {
	Schema      Schema
	Instruction string
	Context     string
	Material    string
	History     model.Conversation
}

type Gateway interface {
	Generate(ctx context.Context, spec PromptSpec) (StructuredResult, error)
}

// GenerateAs runs the gateway and asserts the concrete result type.
func GenerateAs[T StructuredResult](ctx context.Context, gw Gateway, spec PromptSpec) (T, error) {
	var zero T
	res, err := gw.Generate(ctx, spec)
	if err != nil {
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, &InferenceFailure{Reason: ReasonSchemaMismatch, Err: fmt.Errorf("unexpected result type %T", res)}
	}
	return typed, nil
}

const maxTurnRunes = 1000

type InferenceGateway struct {
	generator      Generator
	timeout        time.Duration
	contextBudget  int
	materialBudget int
	historyTurns   int
	breaker        *circuitBreaker
	logger         *zap.Logger
}

// NewInferenceGateway wires a generator behind the budgets in cfg. A nil
// generator is allowed and yields missing_credential failures.
func NewInferenceGateway(generator Generator, cfg *config.InferenceConfig, log *zap.Logger) *InferenceGateway {
	log = logger.Component(log, "inference_gateway")
	if generator != nil {
		log = logger.WithProvider(log, generator.Provider(), generator.Model())
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultInferenceTimeout
	}
	return &InferenceGateway{
		generator:      generator,
		timeout:        timeout,
		contextBudget:  cfg.ContextBudget,
		materialBudget: cfg.MaterialBudget,
		historyTurns:   cfg.HistoryTurns,
		breaker:        newCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:         log,
	}
}

func (g *InferenceGateway) Generate(ctx context.Context, spec PromptSpec) (res StructuredResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &InferenceFailure{Reason: ReasonPanic, Err: fmt.Errorf("%v", r)}
		}
	}()

	def, ok := schemas[spec.Schema]
	if !ok {
		return nil, &InferenceFailure{Reason: ReasonSchemaMismatch, Err: fmt.Errorf("unknown schema %q", spec.Schema)}
	}
	if g.generator == nil {
		return nil, &InferenceFailure{Reason: ReasonMissingCredential, Err: ErrMissingCredential}
	}
	if !g.breaker.allow() {
		return nil, &InferenceFailure{Reason: ReasonCircuitOpen}
	}

	prompt := g.buildPrompt(spec)
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("inference request",
		zap.String("schema", string(spec.Schema)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, 200)),
	)

	raw, err := g.generator.GenerateStructured(callCtx, prompt, def.hint)
	if err != nil {
		failure := classify(callCtx, err)
		if failure.Reason != ReasonMissingCredential && failure.Reason != ReasonCanceled {
			g.breaker.failure()
		}
		g.logger.Warn("inference call failed", zap.String("schema", string(spec.Schema)), zap.String("reason", string(failure.Reason)), zap.Error(err))
		return nil, failure
	}
	g.breaker.success()

	g.logger.Debug("inference response",
		zap.String("schema", string(spec.Schema)),
		zap.String("response_preview", logger.TruncateForLog(raw, 200)),
	)

	payload, err := FirstJSONObject(StripCodeFence(raw))
	if err != nil {
		return nil, &InferenceFailure{Reason: ReasonMalformedOutput, Err: err}
	}
	result, err := def.decode(payload)
	if err != nil {
		var se *schemaError
		if errors.As(err, &se) {
			return nil, &InferenceFailure{Reason: ReasonSchemaMismatch, Err: err}
		}
		return nil, &InferenceFailure{Reason: ReasonMalformedOutput, Err: err}
	}
	return result, nil
}

func (g *InferenceGateway) buildPrompt(spec PromptSpec) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(spec.Instruction))
	b.WriteString("\n")

	if jd := truncateRunes(spec.Context, g.contextBudget); jd != "" {
		b.WriteString("\nJob description:\n\"")
		b.WriteString(jd)
		b.WriteString("\"\n")
	}
	if material := truncateRunes(spec.Material, g.materialBudget); material != "" {
		b.WriteString("\nResume:\n\"")
		b.WriteString(material)
		b.WriteString("\"\n")
	}
	if len(spec.History) > 0 {
		b.WriteString("\nConversation so far (oldest first):\n")
		for _, turn := range spec.History.Recent(g.historyTurns) {
			b.WriteString(string(turn.Role))
			b.WriteString(": ")
			b.WriteString(truncateRunes(turn.Content, maxTurnRunes))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nReturn ONLY a JSON object of this shape: ")
	b.WriteString(schemas[spec.Schema].hint)
	return b.String()
}

func classify(ctx context.Context, err error) *InferenceFailure {
	var pe *ProviderError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrMissingCredential):
		return &InferenceFailure{Reason: ReasonMissingCredential, Err: err}
	case errors.Is(err, ErrEmptyResponse):
		return &InferenceFailure{Reason: ReasonMalformedOutput, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &InferenceFailure{Reason: ReasonTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &InferenceFailure{Reason: ReasonCanceled, Err: err}
	case errors.As(err, &pe):
		switch {
		case pe.StatusCode == http.StatusTooManyRequests:
			return &InferenceFailure{Reason: ReasonQuota, Err: err}
		case pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden:
			return &InferenceFailure{Reason: ReasonMissingCredential, Err: err}
		case pe.StatusCode == http.StatusGatewayTimeout || pe.StatusCode == http.StatusRequestTimeout:
			return &InferenceFailure{Reason: ReasonTimeout, Err: err}
		default:
			return &InferenceFailure{Reason: ReasonUpstream, Err: err}
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &InferenceFailure{Reason: ReasonTimeout, Err: err}
	default:
		return &InferenceFailure{Reason: ReasonNetwork, Err: err}
	}
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// circuitBreaker opens after threshold consecutive failures and lets one
// call through once the cooldown has passed.
type circuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	now       func() time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.threshold <= 0 || b.failures < b.threshold {
		return true
	}
	now := b.now()
	if now.Before(b.openUntil) {
		return false
	}
	// half-open: admit one probe and re-arm the cooldown
	b.openUntil = now.Add(b.cooldown)
	return true
}

func (b *circuitBreaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.threshold > 0 && b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
	}
}

func (b *circuitBreaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}
