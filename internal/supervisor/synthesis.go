package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mosaicworks/querydesk/provider"
)

// LLMSynthesizer merges per-category answers into one natural response. The
// prompt carries the same constraints the supervisor enforces elsewhere: no
// mention of categories or sources, and already-masked identifiers stay
// masked.
type LLMSynthesizer struct {
	Provider provider.Provider
	Model    string
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, query string, answers []WorkerAnswer) (string, error) {
	var collected strings.Builder
	for _, a := range answers {
		fmt.Fprintf(&collected, "%s: %s\n", a.Category, a.Text)
	}

	prompt := fmt.Sprintf(`User Query: %s

Information collected:
%s
Create ONE unified, natural answer that:
1. Directly answers the user's question
2. Combines all relevant information seamlessly
3. Never mentions workers, categories, sources, or combined results
4. Flows as a single, coherent response
5. Keeps any masked identifiers (XXXX-XXXX-NNNN) masked; do not reconstruct them`, query, collected.String())

	out, err := s.Provider.Generate(ctx, prompt, s.Model)
	if err != nil {
		return "", fmt.Errorf("synthesis call: %w", err)
	}
	return out, nil
}

// LabeledSynthesizer is the deterministic merge policy: every category's
// contribution is preserved intact under its own label. It backs the LLM
// synthesizer when the model is unavailable and is the policy under test.
type LabeledSynthesizer struct{}

func (LabeledSynthesizer) Synthesize(_ context.Context, _ string, answers []WorkerAnswer) (string, error) {
	return labeledMerge(answers), nil
}
