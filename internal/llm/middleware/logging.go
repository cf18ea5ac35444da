package llm

import (
	"context"
	"log"

	llmclient "reelsmith/internal/llm/client"
)

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *log.Logger
}

func (l *logging) Name() string                { return l.next.Name() }
func (l *logging) Close() error                { return l.next.Close() }
func (l *logging) CountTokens(text string) int { return l.next.CountTokens(text) }
func (l *logging) TokenCapacity() int          { return l.next.TokenCapacity() }

func (l *logging) GenerateText(ctx context.Context, prompt string) (string, error) {
	l.log.Printf("LLM request (%s): %d bytes", WorkerFrom(ctx), len(prompt))
	out, err := l.next.GenerateText(ctx, prompt)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", WorkerFrom(ctx), err)
	}
	return out, err
}
