package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	generation "reelsmith/internal/gateway/service/generation"
)

// GenerateHandler serves the synchronous generation endpoint.
type GenerateHandler struct {
	svc *generation.Service
}

func NewGenerateHandler(svc *generation.Service) *GenerateHandler {
	return &GenerateHandler{svc: svc}
}

func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in generation.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(in.Instruction) == "" {
		http.Error(w, "instruction is required", http.StatusBadRequest)
		return
	}

	outcome, err := h.svc.Generate(r.Context(), in, nil)
	if err != nil {
		log.Printf("handler: generate: %v", err)
		http.Error(w, "generation unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(outcome)
}
