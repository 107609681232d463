// Package client wraps the chat completion provider behind a daily token
// budget, a circuit breaker and a concurrency limit.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// RequestTimeout bounds a single completion call.
const RequestTimeout = 20 * time.Second

// Config holds the provider settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Models        Models
	Selection     Selection
	MaxConcurrent int64
}

// AIClient implements Chatter over a Completer.
type AIClient struct {
	completer Completer
	breaker   *gobreaker.CircuitBreaker
	semaphore *semaphore.Weighted
	budget    *TokenBudget
	cfg       Config
	logger    *zap.Logger
}

// openAICompleter sends completions through the official SDK.
type openAICompleter struct {
	client openai.Client
}

// Complete implements Completer.
func (c *openAICompleter) Complete(
	ctx context.Context, params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

// NewClient creates a client backed by the OpenAI compatible API.
// Without an API key the client is disabled and every call returns ErrDisabled.
func NewClient(cfg Config, budget *TokenBudget, logger *zap.Logger) *AIClient {
	var completer Completer
	if cfg.APIKey != "" {
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithRequestTimeout(RequestTimeout),
			option.WithMaxRetries(0),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		completer = &openAICompleter{client: openai.NewClient(opts...)}
	}

	return NewClientWithCompleter(cfg, completer, budget, logger)
}

// NewClientWithCompleter creates a client over an arbitrary completer.
func NewClientWithCompleter(cfg Config, completer Completer, budget *TokenBudget, logger *zap.Logger) *AIClient {
	logger = logger.Named("ai_client")

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Selection == "" {
		cfg.Selection = SelectAuto
	}

	settings := gobreaker.Settings{
		Name:        "assistant",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &AIClient{
		completer: completer,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		semaphore: semaphore.NewWeighted(cfg.MaxConcurrent),
		budget:    budget,
		cfg:       cfg,
		logger:    logger,
	}
}

// Enabled reports whether a provider is configured.
func (c *AIClient) Enabled() bool {
	return c.completer != nil
}

// Usage returns today's token accounting.
func (c *AIClient) Usage() Usage {
	return c.budget.Usage()
}

// Chat runs a single completion within the daily budget.
func (c *AIClient) Chat(ctx context.Context, req Request) (Response, error) {
	if c.completer == nil {
		return Response{}, ErrDisabled
	}
	if err := c.budget.Allow(); err != nil {
		return Response{}, err
	}

	selection := req.Selection
	if selection == "" {
		selection = c.cfg.Selection
	}
	model := c.cfg.Models.Pick(selection, req.User)

	maxOutput := req.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       model,
		MaxTokens:   openai.Int(int64(maxOutput)),
		Temperature: openai.Float(temperature),
	}

	if err := c.semaphore.Acquire(ctx, 1); err != nil {
		return Response{}, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.semaphore.Release(1)

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.completer.Complete(ctx, params)
		if err != nil {
			return nil, err
		}
		if err := checkResponse(resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, fmt.Errorf("assistant unavailable: %w", err)
		}
		c.logger.Warn("Failed to make request", zap.String("model", model), zap.Error(err))
		return Response{}, err
	}

	resp := result.(*openai.ChatCompletion)
	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	out := Response{
		Text:       text,
		Model:      model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}
	if out.TokensUsed <= 0 {
		out.TokensUsed = EstimateTokens(req.System, req.User, text)
		out.Estimated = true
	}
	c.budget.Add(out.TokensUsed)

	c.logger.Debug("Assistant completion",
		zap.String("model", model),
		zap.Int("tokens", out.TokensUsed),
		zap.Bool("estimated", out.Estimated))

	return out, nil
}

// checkResponse rejects empty or filtered completions.
func checkResponse(resp *openai.ChatCompletion) error {
	if resp == nil || len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return ErrContentBlocked
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return fmt.Errorf("%w: blank content", ErrEmptyResponse)
	}
	return nil
}

var _ Chatter = (*AIClient)(nil)
