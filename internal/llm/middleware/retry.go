package llm

import (
	"context"
	"time"

	llmclient "reelsmith/internal/llm/client"
)

// Retry retries GenerateText up to maxAttempts with exponential backoff
// starting at baseDelay. PermanentError aborts immediately, as does
// context cancellation.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next llmclient.LLMClient
	max  int
	base time.Duration
}

func (r *retrying) Name() string                { return r.next.Name() }
func (r *retrying) Close() error                { return r.next.Close() }
func (r *retrying) CountTokens(text string) int { return r.next.CountTokens(text) }
func (r *retrying) TokenCapacity() int          { return r.next.TokenCapacity() }

func (r *retrying) GenerateText(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.GenerateText(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		last = err
		if llmclient.IsPermanent(err) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return "", last
}
