package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelsmith/internal/compose"
	generation "reelsmith/internal/gateway/service/generation"
)

type stubLLM struct{ response string }

func (s *stubLLM) Name() string             { return "stub" }
func (s *stubLLM) Close() error             { return nil }
func (s *stubLLM) CountTokens(p string) int { return len(p) }
func (s *stubLLM) TokenCapacity() int       { return 1 << 20 }

func (s *stubLLM) GenerateText(context.Context, string) (string, error) {
	return s.response, nil
}

type stubValidator struct{ valid bool }

func (v *stubValidator) Validate(context.Context, string) (compose.ValidationResult, error) {
	if v.valid {
		return compose.ValidationResult{Valid: true}, nil
	}
	return compose.ValidationResult{Valid: false, Diagnostic: "TS0000"}, nil
}

func newTestService(t *testing.T, response string, valid bool) *generation.Service {
	t.Helper()
	svc, err := generation.New(compose.Pipeline{
		LLM:        &stubLLM{response: response},
		Validator:  &stubValidator{valid: valid},
		MaxRetries: 1,
	}, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestHandleGenerate_Success(t *testing.T) {
	mux := NewMux(newTestService(t, "DURATION: 4\nCODE:\nconst a = 1;", true), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate",
		strings.NewReader(`{"instruction":"add a title","history":[]}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, "const a = 1;")
	assert.Contains(t, body, `"duration":4`)
}

func TestHandleGenerate_ExhaustionStillHTTP200(t *testing.T) {
	mux := NewMux(newTestService(t, "DURATION: 4\nCODE:\nbad", false), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate",
		strings.NewReader(`{"instruction":"x","history":[]}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "a failed generation is a result, not a server error")
	body := rec.Body.String()
	assert.Contains(t, body, `"success":false`)
	assert.Contains(t, body, `"duration":0`)
	assert.Contains(t, body, "TS0000")
}

func TestHandleGenerate_BadRequests(t *testing.T) {
	mux := NewMux(newTestService(t, "DURATION: 4\nCODE:\nx", true), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(`{"instruction":"  "}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/generate", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMux_AssetsWithoutStore(t *testing.T) {
	mux := NewMux(newTestService(t, "DURATION: 4\nCODE:\nx", true), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/assets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMux_Healthz(t *testing.T) {
	mux := NewMux(newTestService(t, "DURATION: 4\nCODE:\nx", true), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}
