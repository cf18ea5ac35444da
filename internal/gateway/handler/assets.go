package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	asset "reelsmith/internal/gateway/repository/asset"
)

const assetUploadLimit = 256 << 20 // 256 MiB

// AssetHandler serves the media catalog endpoints.
type AssetHandler struct {
	store *asset.S3Store
}

func NewAssetHandler(store *asset.S3Store) *AssetHandler {
	return &AssetHandler{store: store}
}

func (h *AssetHandler) HandleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *AssetHandler) list(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.List(r.Context(), time.Hour)
	if err != nil {
		log.Printf("handler: list assets: %v", err)
		http.Error(w, "asset store unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"assets": assets})
}

func (h *AssetHandler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(assetUploadLimit); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}
	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	content, err := io.ReadAll(io.LimitReader(file, assetUploadLimit))
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := h.store.Put(r.Context(), name, contentType, duration, content); err != nil {
		log.Printf("handler: upload asset %s: %v", name, err)
		http.Error(w, "asset store unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "name": name})
}
