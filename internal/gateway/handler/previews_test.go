package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	disk "reelsmith/internal/cache/disk"
)

func newPreviewMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cache, err := disk.NewPreviewCache(disk.PreviewCacheConfig{
		Root:       t.TempDir(),
		MaxEntries: 8,
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	return NewMux(newTestService(t, "DURATION: 4\nCODE:\nx", true), nil, cache)
}

func postPreview(t *testing.T, mux *http.ServeMux, code string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("code", code))
	fw, err := mw.CreateFormFile("file", "preview.mp4")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/previews", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlePreviews_StoreAndLoad(t *testing.T) {
	mux := newPreviewMux(t)
	code := "const a = 1;"
	payload := []byte("rendered preview bytes")

	rec := postPreview(t, mux, code, payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), disk.Key(code))

	req := httptest.NewRequest(http.MethodGet, "/v1/previews?key="+disk.Key(code), nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestHandlePreviews_MissIs404(t *testing.T) {
	mux := newPreviewMux(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/previews?key="+disk.Key("never stored"), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePreviews_BadRequests(t *testing.T) {
	mux := newPreviewMux(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/previews", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing key")

	rec = postPreview(t, mux, "  ", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing code")
}

func TestHandlePreviews_WithoutCache(t *testing.T) {
	mux := NewMux(newTestService(t, "DURATION: 4\nCODE:\nx", true), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/previews?key=abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
