package generation

import (
	"context"
	"fmt"
	"log"
	"time"

	"reelsmith/internal/compose"
	generationrepo "reelsmith/internal/gateway/repository/generation"
)

// AssetCatalog lists the media available to compositions.
type AssetCatalog interface {
	List(ctx context.Context, urlTTL time.Duration) ([]compose.AssetMeta, error)
}

// RunStore persists finished runs and feeds conversation context into new
// ones. Implemented by the postgres repository; optional.
type RunStore interface {
	SaveRun(ctx context.Context, run generationrepo.Run) (int64, error)
	RecentHistory(ctx context.Context, limit int) ([]compose.ChatMessage, error)
	LatestComposition(ctx context.Context) (string, float64, error)
}

const historyLimit = 10

// Service runs the generation pipeline for API callers, resolving the
// asset catalog and conversation history, and persisting each run.
type Service struct {
	pipeline compose.Pipeline
	assets   AssetCatalog
	runs     RunStore
}

// New wires a service. assets and runs may be nil: generation then runs
// without a catalog or without persistence.
func New(pipeline compose.Pipeline, assets AssetCatalog, runs RunStore) (*Service, error) {
	if pipeline.LLM == nil || pipeline.Validator == nil {
		return nil, fmt.Errorf("generation: pipeline needs an LLM and a validator")
	}
	return &Service{pipeline: pipeline, assets: assets, runs: runs}, nil
}

// Input is what API callers provide. Zero-value fields are resolved from
// the stores: empty PriorCode falls back to the last applied composition,
// nil History to the recent persisted conversation.
type Input struct {
	Instruction string                `json:"instruction"`
	PriorCode   string                `json:"prior_code,omitempty"`
	Assets      []compose.AssetMeta   `json:"assets,omitempty"`
	History     []compose.ChatMessage `json:"history,omitempty"`
}

// Generate resolves the full request, runs the pipeline and persists the
// run. hook may be nil; when set it receives per-attempt progress.
func (s *Service) Generate(ctx context.Context, in Input, hook compose.AttemptHook) (compose.GenerationOutcome, error) {
	if s == nil {
		return compose.GenerationOutcome{}, fmt.Errorf("generation: service is nil")
	}
	req, err := s.resolveRequest(ctx, in)
	if err != nil {
		return compose.GenerationOutcome{}, err
	}

	// Per-call copy so concurrent requests can carry their own hook.
	p := s.pipeline
	p.Hook = hook

	outcome, attempts, err := p.Run(ctx, req)
	if err != nil {
		return compose.GenerationOutcome{}, err
	}

	if s.runs != nil {
		if _, saveErr := s.runs.SaveRun(ctx, generationrepo.Run{
			Request:  req,
			Attempts: attempts,
			Outcome:  outcome,
		}); saveErr != nil {
			// Persistence is bookkeeping; the outcome already stands.
			log.Printf("generation: save run: %v", saveErr)
		}
	}
	return outcome, nil
}

func (s *Service) resolveRequest(ctx context.Context, in Input) (compose.GenerationRequest, error) {
	req := compose.GenerationRequest{
		Instruction: in.Instruction,
		PriorCode:   in.PriorCode,
		Assets:      in.Assets,
		History:     in.History,
	}
	if req.Instruction == "" {
		return compose.GenerationRequest{}, fmt.Errorf("generation: instruction is required")
	}

	if req.Assets == nil && s.assets != nil {
		assets, err := s.assets.List(ctx, time.Hour)
		if err != nil {
			return compose.GenerationRequest{}, fmt.Errorf("generation: list assets: %w", err)
		}
		req.Assets = assets
	}
	if s.runs != nil {
		if req.PriorCode == "" {
			code, _, err := s.runs.LatestComposition(ctx)
			if err != nil {
				return compose.GenerationRequest{}, fmt.Errorf("generation: latest composition: %w", err)
			}
			req.PriorCode = code
		}
		if req.History == nil {
			history, err := s.runs.RecentHistory(ctx, historyLimit)
			if err != nil {
				return compose.GenerationRequest{}, fmt.Errorf("generation: recent history: %w", err)
			}
			req.History = history
		}
	}
	return req, nil
}
