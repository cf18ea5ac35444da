package compose

import (
	"fmt"
	"strings"
)

// Prompt construction is deliberately the only place request and attempt
// state turn into model-facing text. Both builders are pure.

const promptRules = `You edit video compositions written as Remotion TSX component trees.
Rules:
- The composition renders at 30fps.
- Use only the remotion and react imports already provided by the player; do not add import statements.
- Reference assets strictly by the names listed in [ASSETS]; never invent asset names.
- Timing is frame based: use useCurrentFrame(), interpolate(), spring() and Sequence offsets.
- Return the complete composition code, not a fragment.

Respond in exactly this format:
DURATION: <total seconds as a number>
CODE:
<the full composition code>`

// BuildEditPrompt assembles the first-attempt prompt from the request:
// domain rules, the asset catalog, the prior composition verbatim when one
// exists, recent conversation, and the user instruction.
func BuildEditPrompt(req GenerationRequest) string {
	var b strings.Builder
	b.WriteString(promptRules)

	b.WriteString("\n\n[ASSETS]\n")
	if len(req.Assets) == 0 {
		b.WriteString("(none)\n")
	}
	for i, a := range req.Assets {
		if a.Duration > 0 {
			fmt.Fprintf(&b, "%d. %s (%s, %.1fs)\n", i+1, a.Name, a.Kind, a.Duration)
		} else {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, a.Name, a.Kind)
		}
	}

	if len(req.History) > 0 {
		b.WriteString("\n[CONVERSATION]\n")
		for _, m := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	if strings.TrimSpace(req.PriorCode) != "" {
		b.WriteString("\n[CURRENT COMPOSITION]\n")
		b.WriteString(req.PriorCode)
		b.WriteString("\n")
	}

	b.WriteString("\n[INSTRUCTION]\n")
	b.WriteString(req.Instruction)
	return b.String()
}

// BuildRepairPrompt assembles the retry prompt from the immediately
// preceding failure only. It asks for a minimal correction, not a
// regeneration.
func BuildRepairPrompt(failedCode, diagnostic string) string {
	var b strings.Builder
	b.WriteString("The composition code below failed to compile. Fix the error with the smallest possible change; do not redesign or regenerate the composition.\n")
	b.WriteString("\n[COMPILER ERROR]\n")
	b.WriteString(diagnostic)
	b.WriteString("\n\n[FAILING CODE]\n")
	b.WriteString(failedCode)
	b.WriteString("\n\nRespond in exactly this format:\nDURATION: <total seconds as a number>\nCODE:\n<the corrected composition code>")
	return b.String()
}
