package llmclient

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("empty response from LLM")

// LLMClient defines the interface for text-generation providers.
// Cross-cutting concerns (rate limiting, retries, logging, hooks) are
// layered on via middleware, not implemented by providers.
type LLMClient interface {
	Name() string
	Close() error
	CountTokens(text string) int
	TokenCapacity() int
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
