// Package worker provides the category workers the supervisor invokes:
// a tool-calling worker over the record databases and a grounded
// answer worker over the document corpus.
package worker

import (
	"context"
	"strings"
	"time"

	"github.com/mosaicworks/querydesk/internal/supervisor"
)

// Generator is the slice of the LLM provider the workers need.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

type timeoutInvoker struct {
	inner   supervisor.Invoker
	timeout time.Duration
}

// WithTimeout bounds every invocation. A timed-out invocation surfaces
// as a worker error, which the supervisor counts as a failed attempt.
func WithTimeout(inner supervisor.Invoker, timeout time.Duration) supervisor.Invoker {
	if timeout <= 0 {
		return inner
	}
	return &timeoutInvoker{inner: inner, timeout: timeout}
}

func (t *timeoutInvoker) Invoke(ctx context.Context, task supervisor.WorkerTask) (supervisor.WorkerAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Invoke(ctx, task)
}

// extractJSON pulls the first top-level JSON object out of an LLM
// response, tolerating code fences and prose around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func feedbackBlock(feedback []string) string {
	if len(feedback) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nEarlier answers were rejected for these reasons; address them:\n")
	for _, f := range feedback {
		b.WriteString("- " + f + "\n")
	}
	return b.String()
}
