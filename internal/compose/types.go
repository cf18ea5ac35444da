package compose

// ReferenceFPS is the frame rate the production player renders at.
// Duration heuristics and generated timing code both assume it.
const ReferenceFPS = 30.0

// AssetMeta describes one entry of the media catalog available to a
// generation request.
type AssetMeta struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"` // "video", "audio" or "image"
	Duration float64 `json:"duration,omitempty"`
	URL      string  `json:"url,omitempty"`
}

// ChatMessage is one turn of prior conversation, oldest first.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest carries everything one pipeline invocation needs.
// It is never mutated after construction.
type GenerationRequest struct {
	Instruction string        `json:"instruction"`
	PriorCode   string        `json:"prior_code,omitempty"`
	Assets      []AssetMeta   `json:"assets,omitempty"`
	History     []ChatMessage `json:"history,omitempty"`
}

// ValidationResult is the reduced verdict of one sandboxed compile.
// Diagnostic is empty iff Valid is true.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Attempt records one generate->parse->validate round.
type Attempt struct {
	Index       int              `json:"index"`
	Prompt      string           `json:"prompt"`
	RawResponse string           `json:"raw_response"`
	Duration    float64          `json:"duration"`
	Code        string           `json:"code"`
	Validation  ValidationResult `json:"validation"`
}

// GenerationOutcome is the terminal result handed back to callers.
// Duration 0 is a reserved sentinel: apply no change, keep whatever
// composition was in place before the pipeline ran. A failed outcome
// therefore always carries empty code and duration 0.
type GenerationOutcome struct {
	Success         bool    `json:"success"`
	CompositionCode string  `json:"composition_code"`
	Duration        float64 `json:"duration"`
	Explanation     string  `json:"explanation"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}
