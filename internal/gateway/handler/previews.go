package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	disk "reelsmith/internal/cache/disk"
)

const previewUploadLimit = 64 << 20 // 64 MiB

// PreviewHandler serves the rendered-preview cache. The player renders a
// composition once, posts the result here keyed by the composition code,
// and later loads replay it from disk instead of re-rendering.
type PreviewHandler struct {
	cache *disk.PreviewCache
}

func NewPreviewHandler(cache *disk.PreviewCache) *PreviewHandler {
	return &PreviewHandler{cache: cache}
}

func (h *PreviewHandler) HandlePreviews(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.load(w, r)
	case http.MethodPost:
		h.store(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *PreviewHandler) load(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	payload, ok, err := h.cache.Load(r.Context(), key)
	if err != nil {
		log.Printf("handler: load preview %s: %v", key, err)
		http.Error(w, "preview cache unavailable", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "preview not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(payload)
}

func (h *PreviewHandler) store(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(previewUploadLimit); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	code := r.FormValue("code")
	if strings.TrimSpace(code) == "" {
		http.Error(w, "code field is required", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, previewUploadLimit))
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		return
	}

	key := disk.Key(code)
	if err := h.cache.Store(r.Context(), key, payload); err != nil {
		log.Printf("handler: store preview %s: %v", key, err)
		http.Error(w, "preview cache unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "key": key})
}
