package compose

import (
	"context"
	"fmt"
	"log"

	llmclient "reelsmith/internal/llm/client"
)

// Validator compiles one candidate in isolation and reduces the result to a
// verdict. A returned error means the environment itself is broken
// (toolchain missing, template install failed) and aborts the pipeline; it
// is never used for ordinary compile diagnostics.
type Validator interface {
	Validate(ctx context.Context, code string) (ValidationResult, error)
}

// AttemptHook observes pipeline progress. Implementations must not block.
type AttemptHook interface {
	BeforeAttempt(index int, prompt string)
	AfterAttempt(att Attempt)
}

// Pipeline drives the generate->parse->validate loop: up to MaxRetries+1
// sequential attempts, each retry prompted only with the immediately
// preceding failure.
type Pipeline struct {
	LLM        llmclient.LLMClient
	Validator  Validator
	Estimator  DurationEstimator
	MaxRetries int
	Hook       AttemptHook
}

// Run executes the pipeline for one request. The returned error is non-nil
// only for environment failures or cancellation; exhausting the retry
// budget is a normal outcome with Success=false and the duration-0
// sentinel.
func (p *Pipeline) Run(ctx context.Context, req GenerationRequest) (GenerationOutcome, []Attempt, error) {
	if p == nil || p.LLM == nil || p.Validator == nil {
		return GenerationOutcome{}, nil, fmt.Errorf("compose: pipeline is missing LLM or validator")
	}
	est := p.Estimator
	if est == nil {
		est = defaultEstimator
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var attempts []Attempt
	lastCode := ""
	lastDiagnostic := ""

	for i := 0; i <= maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return GenerationOutcome{}, attempts, err
		}

		var prompt string
		if i == 0 {
			prompt = BuildEditPrompt(req)
		} else {
			prompt = BuildRepairPrompt(lastCode, lastDiagnostic)
		}
		if p.Hook != nil {
			p.Hook.BeforeAttempt(i, prompt)
		}

		raw, err := p.LLM.GenerateText(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return GenerationOutcome{}, attempts, ctx.Err()
			}
			// A failed model call seeds the next repair prompt the
			// same way a compile failure does: previous candidate
			// (empty on the very first attempt) plus the error text.
			log.Printf("compose: attempt %d model call failed: %v", i, err)
			att := Attempt{
				Index:      i,
				Prompt:     prompt,
				Code:       lastCode,
				Validation: ValidationResult{Valid: false, Diagnostic: err.Error()},
			}
			attempts = append(attempts, att)
			lastDiagnostic = err.Error()
			if p.Hook != nil {
				p.Hook.AfterAttempt(att)
			}
			continue
		}

		duration, code := ParseResponse(raw, est)
		res, err := p.Validator.Validate(ctx, code)
		if err != nil {
			return GenerationOutcome{}, attempts, fmt.Errorf("compose: validation environment: %w", err)
		}

		att := Attempt{
			Index:       i,
			Prompt:      prompt,
			RawResponse: raw,
			Duration:    duration,
			Code:        code,
			Validation:  res,
		}
		attempts = append(attempts, att)
		if p.Hook != nil {
			p.Hook.AfterAttempt(att)
		}

		if res.Valid {
			return GenerationOutcome{
				Success:         true,
				CompositionCode: code,
				Duration:        duration,
				Explanation:     fmt.Sprintf("Updated the composition: %s", req.Instruction),
			}, attempts, nil
		}

		log.Printf("compose: attempt %d invalid: %s", i, firstLine(res.Diagnostic))
		lastCode = code
		lastDiagnostic = res.Diagnostic
	}

	return GenerationOutcome{
		Success:      false,
		Duration:     0,
		Explanation:  fmt.Sprintf("Could not produce a valid composition for: %s", req.Instruction),
		ErrorMessage: lastDiagnostic,
	}, attempts, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
