package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mosaicworks/querydesk/provider"
)

// LLMValidator judges an answer against the original query with a single
// completion call. The model is told to output ACCEPT or RETRY; an unclear
// verdict parses as acceptance.
type LLMValidator struct {
	Provider provider.Provider
	Model    string
}

var acceptKeywords = []string{
	"sufficient", "complete", "correct", "accurate",
	"found", "yes", "good", "adequate", "satisfactory",
}

var retryKeywords = []string{
	"retry", "insufficient", "incomplete", "missing", "try again",
	"not found", "could not find", "failed",
}

func (v *LLMValidator) Validate(ctx context.Context, query string, answer WorkerAnswer) (ValidationVerdict, error) {
	prompt := fmt.Sprintf(`Original Query: %s

Answer Received: %s

Validate if the answer addresses the query:
- If the answer contains the requested information, output ACCEPT
- If the answer says the information could not be found, output RETRY followed by one sentence naming what is missing
- Be lenient: if the answer attempts to address the query with some information, ACCEPT it

Output ACCEPT, or RETRY plus the missing detail.`, query, answer.Text)

	out, err := v.Provider.Generate(ctx, prompt, v.Model)
	if err != nil {
		return ValidationVerdict{}, fmt.Errorf("validation call: %w", err)
	}
	return parseVerdict(out), nil
}

// parseVerdict maps free-form judge output onto a boolean verdict. An
// explicit ACCEPT wins outright; otherwise retry phrases are scanned before
// the softer accept indicators so "not found" is not mistaken for "found".
// When neither side appears the answer is accepted to avoid false negatives.
func parseVerdict(out string) ValidationVerdict {
	lower := strings.ToLower(out)

	if strings.Contains(lower, "accept") {
		return ValidationVerdict{Accepted: true}
	}
	for _, kw := range retryKeywords {
		if strings.Contains(lower, kw) {
			return ValidationVerdict{Accepted: false, Feedback: strings.TrimSpace(out)}
		}
	}
	for _, kw := range acceptKeywords {
		if strings.Contains(lower, kw) {
			return ValidationVerdict{Accepted: true}
		}
	}
	return ValidationVerdict{Accepted: true}
}
