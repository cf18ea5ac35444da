package llmclient

import (
	"errors"
	"fmt"
	"testing"

	"reelsmith/internal/tester"
)

func TestCountTokens(t *testing.T) {
	tester.Eq(t, CountTokens(""), 0)
	tester.Eq(t, CountTokens("   "), 0)
	tester.Eq(t, CountTokens("one two three"), 3)
	tester.Eq(t, CountTokens("word"), 1)
}

func TestPermanentError_ChainDetection(t *testing.T) {
	base := errors.New("invalid api key")
	perm := NewPermanentError(base)

	tester.True(t, IsPermanent(perm))
	tester.True(t, IsPermanent(fmt.Errorf("request failed: %w", perm)))
	tester.False(t, IsPermanent(base))
	tester.False(t, IsPermanent(nil))
	tester.True(t, errors.Is(perm, base), "permanent wrapper must unwrap")
	tester.Eq(t, perm.Error(), "invalid api key")
}
