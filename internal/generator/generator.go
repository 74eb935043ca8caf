// Package generator produces hidden prompts and the AI content shown to
// players, over any OpenAI-compatible chat completion endpoint.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/resilience"
)

// Generator completes a single user directive.
type Generator interface {
	Complete(ctx context.Context, directive string) (string, error)
}

// Config holds the OpenAI-compatible client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
	Metrics *metrics.Metrics
}

// OpenAIGenerator calls the chat completion API through a circuit breaker
// and retry loop.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	temp    func() float32
}

// NewOpenAI builds a generator. An empty APIKey is allowed for endpoints
// that do not require one.
func NewOpenAI(cfg Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	breakerCfg := cfg.Breaker
	if breakerCfg.IsFailure == nil {
		breakerCfg.IsFailure = isUpstreamFailure
	}
	g := &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		breaker: resilience.NewCircuitBreaker("generator", breakerCfg),
		metrics: cfg.Metrics,
		logger:  slog.Default().With("component", "generator"),
		temp:    randomTemperature,
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = func(int, error, time.Duration) { g.record("retry") }
	}
	return g
}

// randomTemperature draws uniformly from [0.7, 1.0).
func randomTemperature() float32 {
	return float32(0.7 + rand.Float64()*0.3)
}

// Complete sends directive as a single user message and returns the first
// choice. Failures wrap ErrGeneratorUnavailable.
func (g *OpenAIGenerator) Complete(ctx context.Context, directive string) (string, error) {
	var content string
	err := g.breaker.Execute(func() error {
		return resilience.Retry(ctx, "chat-completion", g.retry, func() error {
			var callErr error
			content, callErr = g.call(ctx, directive)
			if callErr != nil && !isUpstreamFailure(callErr) {
				return resilience.Permanent(callErr)
			}
			return callErr
		})
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			g.record("rejected")
			return "", apperrors.New(apperrors.ErrGeneratorUnavailable, http.StatusServiceUnavailable,
				"content generator is temporarily unavailable")
		}
		g.logger.Error("chat completion failed", "model", g.model, "error", err)
		return "", fmt.Errorf("%w: %w", apperrors.ErrGeneratorUnavailable, err)
	}
	return content, nil
}

func (g *OpenAIGenerator) call(ctx context.Context, directive string) (string, error) {
	start := time.Now()
	resp, err := resilience.WithTimeout(ctx, g.timeout, "chat-completion", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: directive},
			},
			Temperature: g.temp(),
		})
	})
	if g.metrics != nil {
		g.metrics.GeneratorLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		g.record("error")
		return "", describeAPIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		g.record("empty")
		return "", errEmptyCompletion
	}

	g.record("success")
	if g.metrics != nil && resp.Usage.TotalTokens > 0 {
		g.metrics.GeneratorTokens.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
		g.metrics.GeneratorTokens.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))
	}
	return resp.Choices[0].Message.Content, nil
}

// BreakerState reports the circuit breaker state for health checks.
func (g *OpenAIGenerator) BreakerState() resilience.State {
	return g.breaker.GetState()
}

// Breaker reports the circuit breaker's state and remaining open time.
func (g *OpenAIGenerator) Breaker() resilience.Snapshot {
	return g.breaker.Snapshot()
}

func (g *OpenAIGenerator) record(outcome string) {
	if g.metrics != nil {
		g.metrics.GeneratorRequests.WithLabelValues(outcome).Inc()
	}
}

var errEmptyCompletion = errors.New("empty completion")

// isUpstreamFailure separates transient upstream trouble (5xx, 429, network,
// empty answers) from request errors that retrying cannot fix.
func isUpstreamFailure(err error) bool {
	if status := statusCode(err); status != 0 {
		return status >= 500 || status == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat completion request error %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("chat completion request failed: %w", err)
}
