package supervisor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxAttempts bounds the invoke/validate loop per category.
const DefaultMaxAttempts = 3

// categoryOutcome is the terminal state of one category's retry loop.
type categoryOutcome struct {
	category Category
	accepted bool
	answer   WorkerAnswer
	attempts []Attempt
}

// Controller runs the supervisor pattern: route once, then for every selected
// category run an independent invoke/validate loop with bounded retries, and
// synthesize a single response once every loop has terminated. The controller
// holds no state across queries; everything it needs is injected at
// construction.
type Controller struct {
	router      Router
	invokers    map[Category]Invoker
	validator   Validator
	synthesizer Synthesizer
	maxAttempts int
	logger      *log.Logger
}

// NewController wires the supervisor's collaborators together. maxAttempts
// values below 1 fall back to DefaultMaxAttempts.
func NewController(router Router, invokers map[Category]Invoker, validator Validator, synthesizer Synthesizer, maxAttempts int, logger *log.Logger) *Controller {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SUPERVISOR] ", log.LstdFlags)
	}
	return &Controller{
		router:      router,
		invokers:    invokers,
		validator:   validator,
		synthesizer: synthesizer,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Process answers one query. The returned error is reserved for context
// cancellation; every other failure mode resolves to a well-formed
// FinalResult, degraded (Success=false) when no category converged.
func (c *Controller) Process(ctx context.Context, query string) (FinalResult, error) {
	start := time.Now()

	decision := c.router.Route(ctx, query)
	c.logger.Printf("routed %q -> %v (combined=%v)", truncate(query, 80), decision.Categories, decision.Combined)

	outcomes := make([]categoryOutcome, len(decision.Categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range decision.Categories {
		g.Go(func() error {
			out, err := c.runCategory(gctx, query, cat)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	// Synthesis must not start until every category's loop is terminal.
	if err := g.Wait(); err != nil {
		return FinalResult{}, err
	}

	return c.finish(ctx, query, decision, outcomes, start)
}

// runCategory drives one category's retry loop to its terminal state. An
// invoker error is charged as a rejected attempt so a failing worker degrades
// instead of hanging the query.
func (c *Controller) runCategory(ctx context.Context, query string, cat Category) (categoryOutcome, error) {
	invoker, ok := c.invokers[cat]
	if !ok {
		return categoryOutcome{
			category: cat,
			attempts: []Attempt{{
				Number:  1,
				Task:    WorkerTask{Query: query, Category: cat, Attempt: 1},
				Verdict: ValidationVerdict{Feedback: fmt.Sprintf("no worker registered for category %s", cat)},
			}},
		}, nil
	}

	out := categoryOutcome{category: cat}
	var feedback []string

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return categoryOutcome{}, err
		}

		task := WorkerTask{
			Query:    query,
			Category: cat,
			Attempt:  attempt,
			Feedback: append([]string(nil), feedback...),
		}

		answer, err := invoker.Invoke(ctx, task)
		if err != nil {
			if ctx.Err() != nil {
				return categoryOutcome{}, ctx.Err()
			}
			// Worker failure counts as one rejected attempt.
			verdict := ValidationVerdict{Feedback: fmt.Sprintf("worker error: %v", err)}
			out.attempts = append(out.attempts, Attempt{Number: attempt, Task: task, Verdict: verdict})
			feedback = append(feedback, verdict.Feedback)
			c.logger.Printf("category %s attempt %d/%d worker error: %v", cat, attempt, c.maxAttempts, err)
			continue
		}
		answer.Category = cat
		out.answer = answer

		verdict, err := c.validator.Validate(ctx, query, answer)
		if err != nil {
			if ctx.Err() != nil {
				return categoryOutcome{}, ctx.Err()
			}
			// The verdict must always resolve; a validator error rejects.
			verdict = ValidationVerdict{Feedback: fmt.Sprintf("validator error: %v", err)}
		}
		out.attempts = append(out.attempts, Attempt{Number: attempt, Task: task, Answer: answer, Verdict: verdict})

		if verdict.Accepted {
			out.accepted = true
			c.logger.Printf("category %s accepted on attempt %d", cat, attempt)
			return out, nil
		}

		if verdict.Feedback != "" {
			feedback = append(feedback, verdict.Feedback)
		}
		c.logger.Printf("category %s attempt %d/%d rejected: %s", cat, attempt, c.maxAttempts, truncate(verdict.Feedback, 120))
	}

	// Attempt bound reached: terminal with the best-available (last) answer.
	return out, nil
}

// finish synthesizes the per-category outcomes into the FinalResult.
func (c *Controller) finish(ctx context.Context, query string, decision RoutingDecision, outcomes []categoryOutcome, start time.Time) (FinalResult, error) {
	success := true
	maxAttempts := 0
	var answers []WorkerAnswer
	for _, out := range outcomes {
		if !out.accepted {
			success = false
		}
		if n := len(out.attempts); n > maxAttempts {
			maxAttempts = n
		}
		if out.answer.Text != "" {
			answers = append(answers, out.answer)
		}
	}

	result := FinalResult{
		Success:  success,
		Query:    query,
		Attempts: maxAttempts,
		Pattern:  PatternTag,
		Routing:  decision,
	}

	switch len(answers) {
	case 0:
		result.Result = "no answer could be produced"
	case 1:
		result.Result = answers[0].Text
	default:
		text, err := c.synthesizer.Synthesize(ctx, query, answers)
		if err != nil {
			if ctx.Err() != nil {
				return FinalResult{}, ctx.Err()
			}
			// Synthesis failure must not discard the workers' answers.
			c.logger.Printf("synthesis failed, falling back to labeled merge: %v", err)
			text = labeledMerge(answers)
		}
		result.Result = text
	}

	result.Elapsed = time.Since(start)
	result.ElapsedMS = result.Elapsed.Milliseconds()
	return result, nil
}

// labeledMerge is the deterministic merge policy: each category's
// contribution is kept intact under its own label, ordered by category name.
func labeledMerge(answers []WorkerAnswer) string {
	sorted := append([]WorkerAnswer(nil), answers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Category < sorted[j].Category })
	parts := make([]string, 0, len(sorted))
	for _, a := range sorted {
		parts = append(parts, fmt.Sprintf("[%s] %s", a.Category, a.Text))
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
