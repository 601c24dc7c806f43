package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// InputTooLargeError is returned before any network call when the
// estimated input token count exceeds the caller's ceiling. It is never
// retried; the caller must shrink the request.
type InputTooLargeError struct {
	EstimatedTokens int
	MaxTokens       int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("input too large: estimated %d tokens exceeds limit of %d", e.EstimatedTokens, e.MaxTokens)
}

// RateLimitError wraps a provider 429. Retried with backoff; surfaced
// only after the retry budget is exhausted.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by provider: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError wraps a 5xx or timeout from the provider. Retried with
// backoff like a rate limit, but without recording backpressure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ProviderError is the terminal failure surfaced to callers: either a
// permanent provider failure or a retriable one whose budget ran out.
type ProviderError struct {
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider call failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyError maps a go-openai error onto the retry taxonomy.
// 429 is retriable with backpressure, 5xx and timeouts are retriable,
// everything else aborts immediately.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &RateLimitError{Err: err}
		case apiErr.HTTPStatusCode >= 500,
			apiErr.HTTPStatusCode == http.StatusRequestTimeout:
			return &TransientError{Err: err}
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &RateLimitError{Err: err}
		case reqErr.HTTPStatusCode >= 500,
			reqErr.HTTPStatusCode == http.StatusRequestTimeout:
			return &TransientError{Err: err}
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}

	return err
}

// isRetriable reports whether the classified error may be retried.
func isRetriable(err error) bool {
	var rl *RateLimitError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}
