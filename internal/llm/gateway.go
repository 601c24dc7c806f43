package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pitchlens/pitchlens/internal/config"
	"github.com/pitchlens/pitchlens/internal/models"
)

// completionAPI is the slice of the OpenAI client the gateway needs.
// *openai.Client satisfies it; tests substitute a fake.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Observer receives billing signals from the gateway. Implemented by
// the metrics collector; nil-safe via the noopObserver default.
type Observer interface {
	ObserveCompletion(outcome string, tokens int, costUSD float64)
	ObservePricingFallback()
}

type noopObserver struct{}

func (noopObserver) ObserveCompletion(string, int, float64) {}
func (noopObserver) ObservePricingFallback()                {}

// RetryPolicy bounds the gateway's backoff loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the documented doubling sequence:
// 1s, 2s, 4s, ... capped at 30s, four attempts total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Options shape a single completion call. Zero values fall back to the
// gateway's configured defaults.
type Options struct {
	Model          string
	Temperature    *float32
	MaxTokens      int
	MaxInputTokens int
}

// Gateway is the sole point of contact with the completion provider.
// It is stateless aside from the shared rate-limit delay, which applies
// backpressure across requests issued through the same instance.
type Gateway struct {
	client   completionAPI
	cfg      config.OpenAIConfig
	policy   RetryPolicy
	logger   *slog.Logger
	observer Observer

	mu           sync.Mutex
	pendingDelay time.Duration
}

// NewGateway constructs a gateway backed by the real OpenAI client.
func NewGateway(cfg config.OpenAIConfig, policy RetryPolicy, logger *slog.Logger, observer Observer) *Gateway {
	return newGateway(openai.NewClient(cfg.APIKey), cfg, policy, logger, observer)
}

func newGateway(client completionAPI, cfg config.OpenAIConfig, policy RetryPolicy, logger *slog.Logger, observer Observer) *Gateway {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Gateway{
		client:   client,
		cfg:      cfg,
		policy:   policy,
		logger:   logger,
		observer: observer,
	}
}

// Complete runs one completion against the provider, retrying rate
// limits and transient failures with exponential backoff. It fails with
// *InputTooLargeError before any network call when the estimated input
// exceeds the ceiling, and with *ProviderError once retries run out.
func (g *Gateway) Complete(ctx context.Context, messages []models.ChatMessage, opts Options) (*models.CompletionResult, error) {
	model := opts.Model
	if model == "" {
		model = g.cfg.Model
	}

	maxInput := opts.MaxInputTokens
	estimated := EstimateMessageTokens(messages)
	if maxInput > 0 && estimated > maxInput {
		return nil, &InputTooLargeError{EstimatedTokens: estimated, MaxTokens: maxInput}
	}

	request := g.buildRequest(model, messages, opts)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < g.policy.MaxAttempts; attempt++ {
		attempts = attempt + 1
		// Honor backpressure left behind by an earlier 429, whether it
		// came from this request or another one on this instance.
		if err := g.waitPending(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := g.callOnce(ctx, request)
		latency := time.Since(start)

		if err == nil {
			result, rerr := g.buildResult(model, resp)
			if rerr != nil {
				lastErr = rerr
				g.observer.ObserveCompletion("permanent_error", 0, 0)
				break
			}
			g.observer.ObserveCompletion("success", result.TokensUsed, result.Cost)
			g.logger.Debug("completion succeeded",
				"model", model,
				"attempt", attempt+1,
				"tokens", result.TokensUsed,
				"cost_usd", result.Cost,
				"latency_ms", latency.Milliseconds())
			return result, nil
		}

		classified := classifyError(err)
		lastErr = classified

		if !isRetriable(classified) {
			g.observer.ObserveCompletion("permanent_error", 0, 0)
			g.logger.Error("completion failed with non-retriable error",
				"model", model, "attempt", attempt+1, "error", classified)
			break
		}

		delay := backoffDelay(g.policy, attempt)

		if rl, ok := classified.(*RateLimitError); ok {
			g.observer.ObserveCompletion("rate_limited", 0, 0)
			// Record the delay rather than sleeping inline: the next
			// call through this instance honors it via waitPending,
			// whether that call is this request's retry or another
			// request entirely.
			g.setPending(delay)
			g.logger.Warn("provider rate limit",
				"model", model, "attempt", attempt+1,
				"backoff_ms", delay.Milliseconds(), "error", rl.Err)
			continue
		}

		g.observer.ObserveCompletion("transient_error", 0, 0)
		g.logger.Warn("transient provider error",
			"model", model, "attempt", attempt+1,
			"backoff_ms", delay.Milliseconds(), "error", classified)

		if attempt == g.policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("completion cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, &ProviderError{Attempts: attempts, Err: lastErr}
}

func (g *Gateway) callOnce(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	return g.client.CreateChatCompletion(callCtx, request)
}

func (g *Gateway) buildRequest(model string, messages []models.ChatMessage, opts Options) openai.ChatCompletionRequest {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	temperature := g.cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.cfg.MaxTokens
	}

	return openai.ChatCompletionRequest{
		Model:               model,
		Temperature:         temperature,
		MaxCompletionTokens: maxTokens,
		Messages:            chatMessages,
	}
}

func (g *Gateway) buildResult(model string, resp openai.ChatCompletionResponse) (*models.CompletionResult, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned from model %s", model)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty response from model %s (finish_reason: %s)", model, resp.Choices[0].FinishReason)
	}

	cost, fellBack := costFor(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if fellBack {
		g.observer.ObservePricingFallback()
		g.logger.Warn("no pricing for model, billing at default model rates",
			"model", model, "default_model", fallbackPricingModel)
	}

	return &models.CompletionResult{
		Content:      content,
		Model:        model,
		TokensUsed:   resp.Usage.TotalTokens,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Cost:         cost,
	}, nil
}

// waitPending sleeps off any recorded rate-limit delay, clearing it so
// only one caller pays the wait.
func (g *Gateway) waitPending(ctx context.Context) error {
	g.mu.Lock()
	delay := g.pendingDelay
	g.pendingDelay = 0
	g.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	g.logger.Debug("honoring rate-limit backpressure", "delay_ms", delay.Milliseconds())

	select {
	case <-ctx.Done():
		return fmt.Errorf("completion cancelled: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

func (g *Gateway) setPending(delay time.Duration) {
	g.mu.Lock()
	if delay > g.pendingDelay {
		g.pendingDelay = delay
	}
	g.mu.Unlock()
}

// backoffDelay computes the doubling backoff for an attempt, capped at
// the policy's max delay.
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay << uint(attempt)
	if delay > policy.MaxDelay || delay <= 0 {
		delay = policy.MaxDelay
	}
	return delay
}
