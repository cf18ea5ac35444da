package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelsmith/internal/compose"
	generationrepo "reelsmith/internal/gateway/repository/generation"
)

type fakeLLM struct {
	response string
	prompts  []string
}

func (f *fakeLLM) Name() string             { return "fake" }
func (f *fakeLLM) Close() error             { return nil }
func (f *fakeLLM) CountTokens(s string) int { return len(s) }
func (f *fakeLLM) TokenCapacity() int       { return 1 << 20 }

func (f *fakeLLM) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

type fakeValidator struct{ valid bool }

func (v *fakeValidator) Validate(context.Context, string) (compose.ValidationResult, error) {
	if v.valid {
		return compose.ValidationResult{Valid: true}, nil
	}
	return compose.ValidationResult{Valid: false, Diagnostic: "TS0000"}, nil
}

type fakeCatalog struct {
	assets []compose.AssetMeta
	err    error
	calls  int
}

func (c *fakeCatalog) List(context.Context, time.Duration) ([]compose.AssetMeta, error) {
	c.calls++
	return c.assets, c.err
}

type fakeRunStore struct {
	saved     []generationrepo.Run
	saveErr   error
	history   []compose.ChatMessage
	latest    string
	latestErr error
}

func (s *fakeRunStore) SaveRun(_ context.Context, run generationrepo.Run) (int64, error) {
	s.saved = append(s.saved, run)
	return int64(len(s.saved)), s.saveErr
}

func (s *fakeRunStore) RecentHistory(context.Context, int) ([]compose.ChatMessage, error) {
	return s.history, nil
}

func (s *fakeRunStore) LatestComposition(context.Context) (string, float64, error) {
	return s.latest, 0, s.latestErr
}

func validResponse(code string) string {
	return fmt.Sprintf("DURATION: 4\nCODE:\n%s", code)
}

func newService(t *testing.T, llm *fakeLLM, catalog AssetCatalog, runs RunStore) *Service {
	t.Helper()
	svc, err := New(compose.Pipeline{
		LLM:        llm,
		Validator:  &fakeValidator{valid: true},
		MaxRetries: 2,
	}, catalog, runs)
	require.NoError(t, err)
	return svc
}

func TestGenerate_ResolvesAssetsAndHistory(t *testing.T) {
	llm := &fakeLLM{response: validResponse("const a = 1;")}
	catalog := &fakeCatalog{assets: []compose.AssetMeta{{Name: "intro.mp4", Kind: "video"}}}
	runs := &fakeRunStore{
		history: []compose.ChatMessage{{Role: "user", Content: "earlier ask"}},
		latest:  "<AbsoluteFill>old</AbsoluteFill>",
	}
	svc := newService(t, llm, catalog, runs)

	out, err := svc.Generate(context.Background(), Input{Instruction: "add music"}, nil)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "const a = 1;", out.CompositionCode)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "intro.mp4")
	assert.Contains(t, prompt, "earlier ask")
	assert.Contains(t, prompt, "<AbsoluteFill>old</AbsoluteFill>")
	assert.Equal(t, 1, catalog.calls)
}

func TestGenerate_ExplicitInputsSkipResolution(t *testing.T) {
	llm := &fakeLLM{response: validResponse("x")}
	catalog := &fakeCatalog{assets: []compose.AssetMeta{{Name: "catalog.mp4"}}}
	runs := &fakeRunStore{latest: "stored code", history: []compose.ChatMessage{{Role: "user", Content: "stored"}}}
	svc := newService(t, llm, catalog, runs)

	in := Input{
		Instruction: "edit",
		PriorCode:   "caller code",
		Assets:      []compose.AssetMeta{{Name: "caller.mp4", Kind: "video"}},
		History:     []compose.ChatMessage{{Role: "user", Content: "caller history"}},
	}
	_, err := svc.Generate(context.Background(), in, nil)
	require.NoError(t, err)

	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "caller.mp4")
	assert.Contains(t, prompt, "caller code")
	assert.Contains(t, prompt, "caller history")
	assert.NotContains(t, prompt, "catalog.mp4")
	assert.NotContains(t, prompt, "stored code")
	assert.Equal(t, 0, catalog.calls)
}

func TestGenerate_RequiresInstruction(t *testing.T) {
	svc := newService(t, &fakeLLM{response: validResponse("x")}, nil, nil)
	_, err := svc.Generate(context.Background(), Input{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction is required")
}

func TestGenerate_SavesRun(t *testing.T) {
	runs := &fakeRunStore{}
	svc := newService(t, &fakeLLM{response: validResponse("saved code")}, nil, runs)

	out, err := svc.Generate(context.Background(), Input{Instruction: "x", History: []compose.ChatMessage{}}, nil)
	require.NoError(t, err)
	require.Len(t, runs.saved, 1)
	assert.Equal(t, out, runs.saved[0].Outcome)
	require.Len(t, runs.saved[0].Attempts, 1)
	assert.Equal(t, "saved code", runs.saved[0].Attempts[0].Code)
}

func TestGenerate_SaveFailureDoesNotFailOutcome(t *testing.T) {
	runs := &fakeRunStore{saveErr: errors.New("db down")}
	svc := newService(t, &fakeLLM{response: validResponse("x")}, nil, runs)

	out, err := svc.Generate(context.Background(), Input{Instruction: "x", History: []compose.ChatMessage{}}, nil)
	require.NoError(t, err, "persistence is best effort")
	assert.True(t, out.Success)
}

func TestGenerate_ExhaustionReturnsSentinelOutcome(t *testing.T) {
	llm := &fakeLLM{response: validResponse("never valid")}
	svc, err := New(compose.Pipeline{
		LLM:        llm,
		Validator:  &fakeValidator{valid: false},
		MaxRetries: 2,
	}, nil, nil)
	require.NoError(t, err)

	out, err := svc.Generate(context.Background(), Input{Instruction: "x"}, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Zero(t, out.Duration)
	assert.NotEmpty(t, out.ErrorMessage)
	assert.Len(t, llm.prompts, 3)
	assert.True(t, strings.Contains(llm.prompts[1], "TS0000"))
}

func TestGenerate_CatalogErrorFailsRequest(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("minio unreachable")}
	svc := newService(t, &fakeLLM{response: validResponse("x")}, catalog, nil)

	_, err := svc.Generate(context.Background(), Input{Instruction: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list assets")
}

func TestNew_RequiresPipelineCollaborators(t *testing.T) {
	_, err := New(compose.Pipeline{}, nil, nil)
	require.Error(t, err)
}
