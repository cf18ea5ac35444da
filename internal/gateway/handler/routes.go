package handler

import (
	"encoding/json"
	"net/http"

	disk "reelsmith/internal/cache/disk"
	asset "reelsmith/internal/gateway/repository/asset"
	generation "reelsmith/internal/gateway/service/generation"
)

// NewMux registers every API route. assets and previews may be nil when the
// corresponding store is not configured; those routes then answer 503.
func NewMux(svc *generation.Service, assets *asset.S3Store, previews *disk.PreviewCache) *http.ServeMux {
	mux := http.NewServeMux()

	gen := NewGenerateHandler(svc)
	mux.HandleFunc("/v1/generate", gen.HandleGenerate)
	mux.HandleFunc("/v1/generate/ws", gen.HandleGenerateWS)

	if assets != nil {
		ah := NewAssetHandler(assets)
		mux.HandleFunc("/v1/assets", ah.HandleAssets)
	} else {
		mux.HandleFunc("/v1/assets", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "asset store not configured", http.StatusServiceUnavailable)
		})
	}

	if previews != nil {
		ph := NewPreviewHandler(previews)
		mux.HandleFunc("/v1/previews", ph.HandlePreviews)
	} else {
		mux.HandleFunc("/v1/previews", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "preview cache not configured", http.StatusServiceUnavailable)
		})
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	return mux
}
